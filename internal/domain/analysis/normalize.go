package analysis

import (
	"strconv"
	"strings"

	"github.com/mediqlabs/mediq-analyzer/internal/domain/biomarker"
)

// ScoringPolicy holds the policy constants of the normalizer and risk
// scorer. The values are configuration, not contract; tests rely on the
// ordering and escalation rules only.
type ScoringPolicy struct {
	AbnormalPenalty    int     // subtracted per low/high parameter
	CriticalPenalty    int     // subtracted per critical parameter
	LowRiskFloor       int     // score >= floor -> low risk
	ModerateRiskFloor  int
	HighRiskFloor      int
	UnknownUnitPenalty float64 // confidence penalty when unit cannot be converted
	ExtractionFloor    float64 // extraction confidence below this scales parameter confidence
}

func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		AbnormalPenalty:    12,
		CriticalPenalty:    25,
		LowRiskFloor:       85,
		ModerateRiskFloor:  60,
		HighRiskFloor:      35,
		UnknownUnitPenalty: 0.1,
		ExtractionFloor:    0.4,
	}
}

// ApplyExtractionConfidence discounts a draft by the extractor's own
// confidence. A blurry scan that still parses must not report parameters
// as confidently as a crisp one, so below the policy floor every
// parameter confidence is scaled by the extraction confidence.
func ApplyExtractionConfidence(draft AnalysisDraft, extraction float64, pol ScoringPolicy) AnalysisDraft {
	if extraction <= 0 || extraction >= pol.ExtractionFloor {
		return draft
	}
	scaled := make([]DraftParameter, len(draft.Parameters))
	copy(scaled, draft.Parameters)
	for i := range scaled {
		scaled[i].Confidence = clampConfidence(scaled[i].Confidence * extraction)
	}
	draft.Parameters = scaled
	draft.EngineConfidence = clampConfidence(draft.EngineConfidence * extraction)
	return draft
}

// Normalize reconciles an engine draft against the biomarker reference
// table and derives the aggregate score and risk. It is a pure function
// of its inputs.
func Normalize(draft AnalysisDraft, ref *biomarker.Table, pol ScoringPolicy) ([]Parameter, int, Risk) {
	params := make([]Parameter, 0, len(draft.Parameters))
	for _, dp := range draft.Parameters {
		params = append(params, normalizeOne(dp, ref, pol))
	}

	score := 100
	anyCritical := false
	for _, p := range params {
		switch p.Status {
		case StatusCritical:
			score -= pol.CriticalPenalty
			anyCritical = true
		case StatusHigh, StatusLow:
			score -= pol.AbnormalPenalty
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	risk := riskFromScore(score, pol)
	// A single critical biomarker must never be masked by the aggregate.
	if anyCritical {
		risk = RiskCritical
	}
	return params, score, risk
}

func normalizeOne(dp DraftParameter, ref *biomarker.Table, pol ScoringPolicy) Parameter {
	p := Parameter{
		Name:        strings.TrimSpace(dp.Name),
		Value:       strings.TrimSpace(dp.Value),
		Unit:        strings.TrimSpace(dp.Unit),
		Confidence:  clampConfidence(dp.Confidence),
		Explanation: dp.Explanation,
	}

	def, known := ref.Match(dp.Name)
	value, numeric := ParseNumeric(p.Value)

	if !known {
		p.Status = fallbackStatus(dp.Status)
		p.RedFlag = redFlag(p.Status)
		if p.Explanation == "" {
			p.Explanation = p.Name + " interpreted as " + string(p.Status) + "."
		}
		return p
	}

	p.Name = def.CanonicalName
	p.NormalRange = def.RangeString()

	if numeric {
		if p.Unit != "" && !biomarker.SameUnit(p.Unit, def.Unit) {
			if conv, ok := biomarker.Convert(value, p.Unit, def.Unit); ok {
				value = conv
				p.Value = strconv.FormatFloat(value, 'f', -1, 64)
				p.Unit = def.Unit
			} else {
				// keep the reported unit, lower our confidence in it
				p.Confidence = clampConfidence(p.Confidence - pol.UnknownUnitPenalty)
			}
		}
		if p.Unit == "" {
			p.Unit = def.Unit
		}
		if biomarker.SameUnit(p.Unit, def.Unit) {
			p.Status = Classify(value, def)
		} else {
			p.Status = fallbackStatus(dp.Status)
		}
	} else {
		p.Status = fallbackStatus(dp.Status)
	}

	p.RedFlag = redFlag(p.Status)
	if p.Explanation == "" {
		p.Explanation = def.Explain(string(p.Status))
	}
	return p
}

// Classify compares a value in the reference unit against the reference
// ranges. Critical supersedes low/high; a zero critical bound means the
// range is unbounded on that side.
func Classify(v float64, def *biomarker.Definition) Status {
	if (def.CriticalLow > 0 && v < def.CriticalLow) || (def.CriticalHigh > 0 && v > def.CriticalHigh) {
		return StatusCritical
	}
	if v < def.NormalLow {
		return StatusLow
	}
	if v > def.NormalHigh {
		return StatusHigh
	}
	return StatusNormal
}

func riskFromScore(score int, pol ScoringPolicy) Risk {
	switch {
	case score >= pol.LowRiskFloor:
		return RiskLow
	case score >= pol.ModerateRiskFloor:
		return RiskModerate
	case score >= pol.HighRiskFloor:
		return RiskHigh
	default:
		return RiskCritical
	}
}

func redFlag(s Status) bool { return s == StatusHigh || s == StatusCritical }

// fallbackStatus keeps a sane engine-provided status when the value is not
// numeric or the unit is unknown; anything unrecognized becomes normal.
func fallbackStatus(s Status) Status {
	switch s {
	case StatusLow, StatusHigh, StatusCritical, StatusNormal:
		return s
	default:
		return StatusNormal
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ParseNumeric parses a reported value as a float. Non-numeric values
// ("pending", "trace") return false and skip range classification.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
