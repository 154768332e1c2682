package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ExtractorKind enum
type ExtractorKind string

const (
	ExtractorPDF ExtractorKind = "pdf"
	ExtractorOCR ExtractorKind = "ocr"
	ExtractorCSV ExtractorKind = "csv"
)

// Status enum for a single biomarker parameter
type Status string

const (
	StatusNormal   Status = "normal"
	StatusLow      Status = "low"
	StatusHigh     Status = "high"
	StatusCritical Status = "critical"
)

// Risk enum for the aggregate result
type Risk string

const (
	RiskLow      Risk = "low"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

// Document is the immutable pipeline input. It lives for one invocation
// and is never persisted.
type Document struct {
	Bytes       []byte
	ContentType string
	Filename    string
}

func (d Document) Size() int { return len(d.Bytes) }

// Fingerprint is the cache key: a content hash of the raw bytes.
func (d Document) Fingerprint() string {
	sum := sha256.Sum256(d.Bytes)
	return hex.EncodeToString(sum[:])
}

// CandidateField is one label/value pair found by an extractor.
type CandidateField struct {
	Name     string
	RawValue string
	Unit     string
	Context  string
}

// ExtractionOutcome is the normalized intermediate representation produced
// by one extractor. Immutable once returned.
type ExtractionOutcome struct {
	RawText    string
	Fields     []CandidateField
	Confidence float64
	Kind       ExtractorKind
}

// DraftParameter is one pre-normalization candidate emitted by an engine.
type DraftParameter struct {
	Name        string
	Value       string
	Unit        string
	Status      Status
	Confidence  float64
	Explanation string
}

// AnalysisDraft is the engine output before reference reconciliation.
type AnalysisDraft struct {
	Parameters       []DraftParameter
	EngineUsed       string
	EngineConfidence float64
}

// Parameter is one normalized biomarker in the final result.
// Invariant: RedFlag implies Status is high or critical.
type Parameter struct {
	Name        string  `json:"name"`
	Value       string  `json:"value"`
	Unit        string  `json:"unit"`
	NormalRange string  `json:"normal_range"`
	Status      Status  `json:"status"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	RedFlag     bool    `json:"red_flag"`
}

// Audit is the per-invocation metadata attached to a result.
type Audit struct {
	AnalysisID       string `json:"analysis_id"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	CacheHit         bool   `json:"cache_hit"`
	Engine           string `json:"engine"`
}

// AnalysisResult is the structured clinical result. Immutable once returned.
type AnalysisResult struct {
	Parameters  []Parameter `json:"parameters"`
	OverallRisk Risk        `json:"overall_risk"`
	HealthScore int         `json:"health_score"`
	Audit       Audit       `json:"audit"`
}

// HistorySnapshot is the tuple handed to the history collaborator after
// each successful analysis.
type HistorySnapshot struct {
	AnalysisID  string    `json:"analysis_id"`
	Filename    string    `json:"filename"`
	Timestamp   time.Time `json:"timestamp"`
	HealthScore int       `json:"health_score"`
	OverallRisk Risk      `json:"overall_risk"`
}

// AuditRecord is one append-only telemetry entry per pipeline invocation,
// written on success and failure alike.
type AuditRecord struct {
	AnalysisID string    `json:"analysis_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CacheHit   bool      `json:"cache_hit"`
	Engine     string    `json:"engine,omitempty"`
	Succeeded  bool      `json:"succeeded"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
}
