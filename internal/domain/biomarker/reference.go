// Package biomarker holds the process-wide reference table of biomarker
// definitions. The table is loaded once at startup and read-only after.
package biomarker

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Definition is one reference entry: canonical name, lookup aliases, the
// reference unit and the normal/critical ranges in that unit.
type Definition struct {
	CanonicalName string   `yaml:"name"`
	Aliases       []string `yaml:"aliases"`
	Unit          string   `yaml:"unit"`
	NormalLow     float64  `yaml:"normal_low"`
	NormalHigh    float64  `yaml:"normal_high"`
	CriticalLow   float64  `yaml:"critical_low"`
	CriticalHigh  float64  `yaml:"critical_high"`
	Explanation   string   `yaml:"explanation"`
}

// RangeString renders the normal range for display, e.g. "70-140 mg/dL".
func (d *Definition) RangeString() string {
	return fmt.Sprintf("%s-%s %s", trimFloat(d.NormalLow), trimFloat(d.NormalHigh), d.Unit)
}

// Explain renders the explanation template. Supported placeholders:
// {name}, {status}, {range}.
func (d *Definition) Explain(status string) string {
	s := d.Explanation
	if s == "" {
		s = "{name} interpreted as {status}."
	}
	s = strings.ReplaceAll(s, "{name}", d.CanonicalName)
	s = strings.ReplaceAll(s, "{status}", status)
	s = strings.ReplaceAll(s, "{range}", d.RangeString())
	return s
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// Table is the immutable set of definitions plus a normalized alias index.
type Table struct {
	defs    []Definition
	byAlias map[string]int
}

type tableFile struct {
	Biomarkers []Definition `yaml:"biomarkers"`
}

// Default returns the table built from the embedded reference set.
func Default() *Table {
	t, err := parse(defaultsYAML)
	if err != nil {
		// The embedded set is validated by tests; a parse failure here is
		// a build defect.
		panic(fmt.Sprintf("biomarker: embedded defaults invalid: %v", err))
	}
	return t
}

// Load reads a reference table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse reference table: %w", err)
	}
	if len(f.Biomarkers) == 0 {
		return nil, fmt.Errorf("reference table has no biomarkers")
	}
	t := &Table{defs: f.Biomarkers, byAlias: make(map[string]int)}
	for i := range t.defs {
		d := &t.defs[i]
		t.byAlias[NormalizeLabel(d.CanonicalName)] = i
		for _, a := range d.Aliases {
			t.byAlias[NormalizeLabel(a)] = i
		}
	}
	return t, nil
}

// Len returns the number of definitions.
func (t *Table) Len() int { return len(t.defs) }

// NormalizeLabel lowercases a field label and strips punctuation so that
// "Glucose (Fasting)" and "glucose fasting" compare equal.
func NormalizeLabel(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Match resolves a raw field label to a definition. Matching is
// case-insensitive and punctuation-normalized; when several aliases match
// as whole words inside the label, the longest alias wins. An alias never
// matches inside a longer word, so "hemoglobin" does not match
// "hemoglobinopathy" via substring accident.
func (t *Table) Match(label string) (*Definition, bool) {
	norm := NormalizeLabel(label)
	if norm == "" {
		return nil, false
	}
	if i, ok := t.byAlias[norm]; ok {
		return &t.defs[i], true
	}

	best := -1
	bestLen := 0
	for alias, i := range t.byAlias {
		if len(alias) <= bestLen {
			continue
		}
		if containsWords(norm, alias) {
			best = i
			bestLen = len(alias)
		}
	}
	if best < 0 {
		return nil, false
	}
	return &t.defs[best], true
}

// containsWords reports whether needle appears in haystack on word
// boundaries (both already normalized).
func containsWords(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		leftOK := start == 0 || haystack[start-1] == ' '
		rightOK := end == len(haystack) || haystack[end] == ' '
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
		if idx >= len(haystack) {
			return false
		}
	}
}
