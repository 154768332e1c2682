// Package telemetry keeps the append-only audit trail and the service
// counters. The recorder is a sink: it never influences pipeline
// behavior, it only observes it.
package telemetry

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

const defaultRingSize = 512

// Recorder logs every audit record and retains the most recent ones in a
// bounded ring. Safe for concurrent use.
type Recorder struct {
	log  zerolog.Logger
	mu   sync.Mutex
	ring []domain.AuditRecord
	next int
	full bool

	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	start time.Time
}

func NewRecorder(log zerolog.Logger, ringSize int) *Recorder {
	if ringSize <= 0 {
		ringSize = defaultRingSize
	}
	return &Recorder{
		log:   log,
		ring:  make([]domain.AuditRecord, ringSize),
		start: time.Now(),
	}
}

func (r *Recorder) Record(rec domain.AuditRecord) {
	r.processed.Add(1)
	if rec.Succeeded {
		r.succeeded.Add(1)
	} else {
		r.failed.Add(1)
	}
	if rec.CacheHit {
		r.cacheHits.Add(1)
	}

	var ev *zerolog.Event
	switch {
	case rec.Succeeded:
		ev = r.log.Info()
	case rec.ErrorKind == domain.ErrAllEnginesExhausted:
		// the floor engine failing means no document can be analyzed
		ev = r.log.Error()
	default:
		ev = r.log.Warn()
	}
	ev.Str("analysis_id", rec.AnalysisID).
		Dur("elapsed", rec.FinishedAt.Sub(rec.StartedAt)).
		Bool("cache_hit", rec.CacheHit).
		Str("engine", rec.Engine).
		Bool("succeeded", rec.Succeeded).
		Str("error_kind", string(rec.ErrorKind)).
		Msg("analysis audited")

	r.mu.Lock()
	r.ring[r.next] = rec
	r.next++
	if r.next == len(r.ring) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Records returns the retained audit records, oldest first.
func (r *Recorder) Records() []domain.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]domain.AuditRecord, r.next)
		copy(out, r.ring[:r.next])
		return out
	}
	out := make([]domain.AuditRecord, 0, len(r.ring))
	out = append(out, r.ring[r.next:]...)
	out = append(out, r.ring[:r.next]...)
	return out
}

// Snapshot returns the service counters plus runtime stats for the
// metrics endpoint.
func (r *Recorder) Snapshot() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]any{
		"documents_processed": r.processed.Load(),
		"succeeded":           r.succeeded.Load(),
		"failed":              r.failed.Load(),
		"cache_hits":          r.cacheHits.Load(),
		"uptime_seconds":      int64(time.Since(r.start).Seconds()),
		"goroutines":          runtime.NumGoroutine(),
		"heap_alloc_bytes":    m.HeapAlloc,
		"gc_runs":             m.NumGC,
	}
}
