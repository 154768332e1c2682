// Package prompt builds chat prompts for the inference engines and parses
// model output back into draft parameters, tolerating the usual JSON
// wrapping noise.
package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

const maxPromptText = 12000

var reJSONObject = regexp.MustCompile(`\{[\s\S]*\}`)

func SystemPrompt() string {
	return strings.Join([]string{
		"You are a clinical lab report parser. Return ONLY valid JSON with this shape:",
		`{"parameters":[{"name":"","value":"","unit":"","status":"low | normal | high | critical","confidence":0.0,"explanation":""}]}`,
		"Rules: no hallucinations; include only biomarkers present in the input; JSON only.",
	}, "\n")
}

// UserPrompt packages the extraction outcome: candidate fields first so
// the model anchors on them, then the raw text, truncated.
func UserPrompt(o domain.ExtractionOutcome) string {
	var b strings.Builder
	if len(o.Fields) > 0 {
		b.WriteString("Detected fields:\n")
		for _, f := range o.Fields {
			fmt.Fprintf(&b, "- %s: %s %s\n", f.Name, f.RawValue, f.Unit)
		}
		b.WriteString("\n")
	}
	b.WriteString("Report text:\n")
	b.WriteString(truncate(o.RawText, maxPromptText))
	return b.String()
}

// truncate cuts on a rune boundary so the prompt stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ExtractJSON strips markdown fences and, failing a direct parse, falls
// back to the outermost brace-delimited object in the model output.
func ExtractJSON(content string) ([]byte, error) {
	s := strings.ReplaceAll(content, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	m := reJSONObject.FindString(s)
	if m == "" || !json.Valid([]byte(m)) {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	return []byte(m), nil
}

type wireParameter struct {
	Name        string  `json:"name"`
	Value       any     `json:"value"`
	Unit        string  `json:"unit"`
	Status      string  `json:"status"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

type wireDraft struct {
	Parameters []wireParameter `json:"parameters"`
}

// ParseDraft decodes model output into draft parameters, sanitizing the
// enum fields and filling in confidence defaults per status.
func ParseDraft(content string) ([]domain.DraftParameter, float64, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, 0, err
	}
	var w wireDraft
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, 0, fmt.Errorf("decode draft: %w", err)
	}

	params := make([]domain.DraftParameter, 0, len(w.Parameters))
	var confSum float64
	for _, p := range w.Parameters {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		status := sanitizeStatus(p.Status)
		conf := p.Confidence
		if conf <= 0 || conf > 1 {
			conf = defaultConfidence(status)
		}
		params = append(params, domain.DraftParameter{
			Name:        name,
			Value:       valueString(p.Value),
			Unit:        strings.TrimSpace(p.Unit),
			Status:      status,
			Confidence:  conf,
			Explanation: strings.TrimSpace(p.Explanation),
		})
		confSum += conf
	}
	if len(params) == 0 {
		return nil, 0, fmt.Errorf("draft contains no parameters")
	}
	return params, confSum / float64(len(params)), nil
}

func sanitizeStatus(s string) domain.Status {
	switch domain.Status(strings.ToLower(strings.TrimSpace(s))) {
	case domain.StatusLow:
		return domain.StatusLow
	case domain.StatusHigh:
		return domain.StatusHigh
	case domain.StatusCritical:
		return domain.StatusCritical
	default:
		return domain.StatusNormal
	}
}

func defaultConfidence(s domain.Status) float64 {
	switch s {
	case domain.StatusNormal:
		return 0.9
	case domain.StatusLow, domain.StatusHigh:
		return 0.8
	default:
		return 0.75
	}
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		// strip the trailing ".0" of integral JSON numbers
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
