package extract

import (
	"regexp"
	"strings"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

// Patterns for one report line carrying a measurement. Two shapes are
// recognized: "Label: 12.3 mg/dL" and the tabular "Label   12.3 mg/dL".
var (
	reLabelValue = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9 ()./%-]*?)\s*[:=]\s*(-?\d+(?:\.\d+)?)\s*([A-Za-zµ^0-9/%.]*)\s*$`)
	reTabular    = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z ()./%-]*[A-Za-z)])\s{2,}(-?\d+(?:\.\d+)?)\s+([A-Za-zµ^0-9/%.]+)\s*$`)
)

// ScanFields walks text line by line and emits one candidate field per
// matched measurement, preserving encounter order.
func ScanFields(text string) []domain.CandidateField {
	var fields []domain.CandidateField
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == "" {
			continue
		}
		m := reLabelValue.FindStringSubmatch(trimmed)
		if m == nil {
			m = reTabular.FindStringSubmatch(trimmed)
		}
		if m == nil {
			continue
		}
		fields = append(fields, domain.CandidateField{
			Name:     strings.TrimSpace(m[1]),
			RawValue: m[2],
			Unit:     strings.TrimSpace(m[3]),
			Context:  strings.TrimSpace(trimmed),
		})
	}
	return fields
}
