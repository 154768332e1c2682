package biomarker

import "strings"

// conversion factors between common lab units, keyed by
// "<from>-><to>" using normalized unit spellings. Value = multiplier.
var conversions = map[string]float64{
	// glucose and other mg/dL analytes reported in mmol/L
	"mmol/l->mg/dl": 18.0182,
	"mg/dl->mmol/l": 1.0 / 18.0182,
	// hemoglobin
	"g/l->g/dl": 0.1,
	"g/dl->g/l": 10.0,
	// cell counts
	"10^9/l->10^3/ul": 1.0,
	"10^3/ul->10^9/l": 1.0,
}

// NormalizeUnit canonicalizes unit spellings for comparison:
// case-insensitive, µ treated as u, no surrounding space.
func NormalizeUnit(u string) string {
	u = strings.TrimSpace(strings.ToLower(u))
	u = strings.ReplaceAll(u, "µ", "u")
	u = strings.ReplaceAll(u, " ", "")
	return u
}

// SameUnit reports whether two unit spellings denote the same unit.
func SameUnit(a, b string) bool {
	return NormalizeUnit(a) == NormalizeUnit(b)
}

// Convert converts value from one unit to another when a known conversion
// exists. The second return is false when no conversion is known.
func Convert(value float64, from, to string) (float64, bool) {
	nf, nt := NormalizeUnit(from), NormalizeUnit(to)
	if nf == nt {
		return value, true
	}
	if f, ok := conversions[nf+"->"+nt]; ok {
		return value * f, true
	}
	return value, false
}
