// Package analysis wires the pipeline stages into the one use case the
// service exposes: analyze a document end to end.
package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediqlabs/mediq-analyzer/internal/application"
	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
	"github.com/mediqlabs/mediq-analyzer/internal/domain/biomarker"
)

// Service orchestrates validate, extract, analyze, normalize, cache and
// audit. Collaborator ports are exported so wiring stays in main.
type Service struct {
	Validator domain.Validator
	Extractor domain.Extractor
	Engines   domain.EngineChain
	Reference *biomarker.Table
	Policy    domain.ScoringPolicy
	Cache     domain.ResultCache
	History   domain.HistoryRepository // optional
	Archive   domain.ArchiveStore      // optional
	Recorder  domain.Recorder
	Clock     application.Clock
	Log       zerolog.Logger
}

// AnalyzeCommand carries one document through the pipeline.
type AnalyzeCommand struct {
	Bytes       []byte
	ContentType string
	Filename    string
}

// Analyze runs the full pipeline for one document. Every invocation
// produces exactly one audit record, on success and failure alike.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.AnalysisResult, error) {
	id := newAnalysisID()
	started := s.Clock.Now()
	doc := domain.Document{Bytes: cmd.Bytes, ContentType: cmd.ContentType, Filename: cmd.Filename}

	if err := s.Validator.Validate(doc); err != nil {
		s.audit(id, started, false, "", false, err)
		return nil, err
	}

	cached, hit, err := s.Cache.GetOrCompute(ctx, doc.Fingerprint(), func(ctx context.Context) (*domain.AnalysisResult, error) {
		return s.run(ctx, id, doc)
	})
	if err != nil {
		s.audit(id, started, false, "", false, err)
		return nil, err
	}
	engineUsed := cached.Audit.Engine

	// Shared results get a fresh per-invocation audit block; the clinical
	// payload itself is reused as-is.
	result := *cached
	result.Audit = domain.Audit{
		AnalysisID:       id,
		ProcessingTimeMS: s.Clock.Now().Sub(started).Milliseconds(),
		CacheHit:         hit,
		Engine:           engineUsed,
	}

	if s.History != nil {
		snap := &domain.HistorySnapshot{
			AnalysisID:  id,
			Filename:    doc.Filename,
			Timestamp:   s.Clock.Now(),
			HealthScore: result.HealthScore,
			OverallRisk: result.OverallRisk,
		}
		if err := s.History.Save(ctx, snap); err != nil {
			s.Log.Warn().Err(err).Str("analysis_id", id).Msg("history save failed")
		}
	}

	s.audit(id, started, hit, engineUsed, true, nil)
	return &result, nil
}

// run is the cacheable core: extract, infer, normalize, archive.
func (s *Service) run(ctx context.Context, id string, doc domain.Document) (*domain.AnalysisResult, error) {
	outcome, err := s.Extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	draft, err := s.Engines.Analyze(ctx, outcome)
	if err != nil {
		return nil, err
	}
	draft = domain.ApplyExtractionConfidence(draft, outcome.Confidence, s.Policy)

	params, score, risk := domain.Normalize(draft, s.Reference, s.Policy)
	result := &domain.AnalysisResult{
		Parameters:  params,
		OverallRisk: risk,
		HealthScore: score,
		Audit:       domain.Audit{AnalysisID: id, Engine: draft.EngineUsed},
	}

	if s.Archive != nil {
		// Derived JSON only. Raw document bytes are never archived.
		if data, err := json.Marshal(result); err == nil {
			key := "results/" + id + ".json"
			if _, err := s.Archive.Upload(ctx, key, data, "application/json"); err != nil {
				s.Log.Warn().Err(err).Str("analysis_id", id).Msg("archive upload failed")
			}
		}
	}

	return result, nil
}

// Trend labels for the history report.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// HistoryReport is the latest snapshots plus a trend over the two most
// recent health scores.
type HistoryReport struct {
	Count     int                       `json:"count"`
	Snapshots []*domain.HistorySnapshot `json:"snapshots"`
	Trend     string                    `json:"trend"`
}

func (s *Service) RecentHistory(ctx context.Context, limit int) (*HistoryReport, error) {
	if s.History == nil {
		return &HistoryReport{Trend: TrendStable}, nil
	}
	snaps, err := s.History.Latest(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryReport{Count: len(snaps), Snapshots: snaps, Trend: trend(snaps)}, nil
}

// ProbePrimary reports primary engine reachability for health checks.
func (s *Service) ProbePrimary(ctx context.Context) bool {
	return s.Engines.ProbePrimary(ctx)
}

func (s *Service) audit(id string, started time.Time, hit bool, engine string, ok bool, err error) {
	rec := domain.AuditRecord{
		AnalysisID: id,
		StartedAt:  started,
		FinishedAt: s.Clock.Now(),
		CacheHit:   hit,
		Engine:     engine,
		Succeeded:  ok,
	}
	if err != nil {
		rec.ErrorKind = domain.KindOf(err)
		rec.Error = err.Error()
	}
	s.Recorder.Record(rec)
}

func trend(snaps []*domain.HistorySnapshot) string {
	if len(snaps) < 2 {
		return TrendStable
	}
	// snaps are newest first
	latest, previous := snaps[0].HealthScore, snaps[1].HealthScore
	switch {
	case latest > previous:
		return TrendImproving
	case latest < previous:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// newAnalysisID mints a short report identifier, e.g. RPT-3F2A9C01D4.
func newAnalysisID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RPT-" + strings.ToUpper(raw[:10])
}
