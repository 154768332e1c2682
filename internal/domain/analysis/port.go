package analysis

import "context"

// Validator port: pure pre-flight check on a document.
type Validator interface {
	Validate(d Document) error
}

// Extractor port: converts a validated document into the intermediate
// representation. The extraction router implements this.
type Extractor interface {
	Extract(ctx context.Context, d Document) (ExtractionOutcome, error)
}

// Engine port: one interchangeable biomarker-inference strategy.
type Engine interface {
	Name() string
	Analyze(ctx context.Context, o ExtractionOutcome) (AnalysisDraft, error)
}

// Prober is implemented by engines whose reachability can be checked.
type Prober interface {
	Probe(ctx context.Context) bool
}

// EngineChain port: the ordered fallback policy over engines.
type EngineChain interface {
	Analyze(ctx context.Context, o ExtractionOutcome) (AnalysisDraft, error)
	ProbePrimary(ctx context.Context) bool
}

// ResultCache port: at most one computation per fingerprint across
// concurrent callers; failed computations are not stored.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key string, compute func(context.Context) (*AnalysisResult, error)) (*AnalysisResult, bool, error)
}

// HistoryRepository port (interface for snapshot persistence).
type HistoryRepository interface {
	Save(ctx context.Context, s *HistorySnapshot) error
	Latest(ctx context.Context, limit int) ([]*HistorySnapshot, error)
}

// ArchiveStore port (interface for result artifact storage).
type ArchiveStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Recorder port: side-effect-only audit sink, called exactly once per
// invocation.
type Recorder interface {
	Record(rec AuditRecord)
}
