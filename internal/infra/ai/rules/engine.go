// Package rules implements the deterministic inference engine. It knows
// nothing about language models: every candidate field that resolves
// against the reference table becomes a draft parameter. It never fails,
// which makes it the availability floor of the engine chain.
package rules

import (
	"context"
	"strings"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
	"github.com/mediqlabs/mediq-analyzer/internal/domain/biomarker"
)

// fixed confidence for rule-derived parameters; below any model engine
// so the chain prefers model output when both would succeed.
const ruleConfidence = 0.6

type Engine struct {
	ref *biomarker.Table
}

func New(ref *biomarker.Table) *Engine {
	return &Engine{ref: ref}
}

func (e *Engine) Name() string { return "rules" }

func (e *Engine) Analyze(_ context.Context, o domain.ExtractionOutcome) (domain.AnalysisDraft, error) {
	var params []domain.DraftParameter
	for _, f := range o.Fields {
		def, ok := e.ref.Match(f.Name)
		if !ok {
			continue
		}
		value, numeric := domain.ParseNumeric(f.RawValue)
		if !numeric {
			continue
		}

		unit := strings.TrimSpace(f.Unit)
		inRefUnit := value
		converted := true
		if unit != "" && !biomarker.SameUnit(unit, def.Unit) {
			inRefUnit, converted = biomarker.Convert(value, unit, def.Unit)
		}
		if unit == "" {
			unit = def.Unit
		}

		status := domain.StatusNormal
		if converted {
			status = domain.Classify(inRefUnit, def)
		}

		params = append(params, domain.DraftParameter{
			Name:        def.CanonicalName,
			Value:       f.RawValue,
			Unit:        unit,
			Status:      status,
			Confidence:  ruleConfidence,
			Explanation: def.Explain(string(status)),
		})
	}

	return domain.AnalysisDraft{
		Parameters:       params,
		EngineUsed:       e.Name(),
		EngineConfidence: ruleConfidence,
	}, nil
}
