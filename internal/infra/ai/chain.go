// Package ai assembles inference engines into an ordered fallback chain.
package ai

import (
	"context"

	"github.com/rs/zerolog"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

// Chain tries engines in order. It falls over to the next engine when
// the current one errors or returns a low-confidence draft. The last
// engine's result is accepted as-is, so a never-failing engine at the
// tail guarantees the chain itself never leaves a document unanalyzed.
type Chain struct {
	engines   []domain.Engine
	threshold float64
	log       zerolog.Logger
}

func NewChain(log zerolog.Logger, threshold float64, engines ...domain.Engine) *Chain {
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	return &Chain{engines: engines, threshold: threshold, log: log}
}

func (c *Chain) Analyze(ctx context.Context, o domain.ExtractionOutcome) (domain.AnalysisDraft, error) {
	if len(c.engines) == 0 {
		return domain.AnalysisDraft{}, domain.NewError(domain.ErrAllEnginesExhausted, "no engines configured")
	}

	var lastErr error
	for i, eng := range c.engines {
		last := i == len(c.engines)-1

		draft, err := eng.Analyze(ctx, o)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Str("engine", eng.Name()).Msg("engine failed, falling over")
			continue
		}
		if !last && c.lowConfidence(draft, o) {
			lastErr = domain.Errorf(domain.ErrLowConfidence,
				"%s: draft confidence below %.2f", eng.Name(), c.threshold)
			c.log.Warn().Str("engine", eng.Name()).
				Float64("confidence", draft.EngineConfidence).
				Msg("low-confidence draft, falling over")
			continue
		}
		return draft, nil
	}

	return domain.AnalysisDraft{}, domain.WrapError(domain.ErrAllEnginesExhausted,
		"all engines exhausted", lastErr)
}

// lowConfidence rejects a draft when more than half of its parameters sit
// below the threshold, or when it found nothing despite candidate fields
// being present.
func (c *Chain) lowConfidence(d domain.AnalysisDraft, o domain.ExtractionOutcome) bool {
	if len(d.Parameters) == 0 {
		return len(o.Fields) > 0
	}
	low := 0
	for _, p := range d.Parameters {
		if p.Confidence < c.threshold {
			low++
		}
	}
	denom := len(o.Fields)
	if len(d.Parameters) > denom {
		denom = len(d.Parameters)
	}
	if denom == 0 {
		denom = 1
	}
	return low*2 > denom
}

// ProbePrimary reports whether the first engine is reachable. Engines
// without a probe are assumed reachable.
func (c *Chain) ProbePrimary(ctx context.Context) bool {
	if len(c.engines) == 0 {
		return false
	}
	if p, ok := c.engines[0].(domain.Prober); ok {
		return p.Probe(ctx)
	}
	return true
}
