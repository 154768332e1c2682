package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare object", `{"parameters":[]}`, `{"parameters":[]}`, false},
		{"fenced", "```json\n{\"parameters\":[]}\n```", `{"parameters":[]}`, false},
		{"fence without language", "```\n{\"parameters\":[]}\n```", `{"parameters":[]}`, false},
		{"prose around object", `Here is the result: {"parameters":[]} hope that helps`, `{"parameters":[]}`, false},
		{"no json", "I could not parse the report.", "", true},
		{"truncated json", `{"parameters":[`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestParseDraft(t *testing.T) {
	content := `{"parameters":[
		{"name":"Glucose","value":250,"unit":"mg/dL","status":"HIGH","confidence":0.92,"explanation":"elevated"},
		{"name":"Hemoglobin","value":"13.2","unit":"g/dL","status":"normal"},
		{"name":"","value":"9","unit":"","status":"low"}
	]}`

	params, conf, err := ParseDraft(content)
	require.NoError(t, err)
	require.Len(t, params, 2, "nameless entries are dropped")

	assert.Equal(t, "Glucose", params[0].Name)
	assert.Equal(t, "250", params[0].Value, "numeric values are stringified without decimals")
	assert.Equal(t, domain.StatusHigh, params[0].Status, "status is case-normalized")
	assert.Equal(t, 0.92, params[0].Confidence)

	assert.Equal(t, domain.StatusNormal, params[1].Status)
	assert.Equal(t, 0.9, params[1].Confidence, "missing confidence defaults by status")

	assert.InDelta(t, (0.92+0.9)/2, conf, 1e-9)
}

func TestParseDraftSanitizesStatus(t *testing.T) {
	content := `{"parameters":[{"name":"TSH","value":"5.1","status":"borderline-weird"}]}`
	params, _, err := ParseDraft(content)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNormal, params[0].Status)
}

func TestParseDraftRejectsEmpty(t *testing.T) {
	_, _, err := ParseDraft(`{"parameters":[]}`)
	assert.Error(t, err)

	_, _, err = ParseDraft("no json at all")
	assert.Error(t, err)
}

func TestUserPromptTruncatesAndListsFields(t *testing.T) {
	o := domain.ExtractionOutcome{
		RawText: strings.Repeat("x", 20000),
		Fields: []domain.CandidateField{
			{Name: "Glucose", RawValue: "250", Unit: "mg/dL"},
		},
	}
	p := UserPrompt(o)
	assert.Contains(t, p, "- Glucose: 250 mg/dL")
	assert.Less(t, len(p), 14000)
}

func TestUserPromptTruncatesOnRuneBoundary(t *testing.T) {
	// µ is two bytes; the leading x misaligns every rune with the byte
	// budget so a naive slice would land mid-rune
	o := domain.ExtractionOutcome{RawText: "x" + strings.Repeat("µ", maxPromptText)}
	p := UserPrompt(o)
	assert.True(t, utf8.ValidString(p), "truncation must not split a rune")
	assert.True(t, strings.HasSuffix(p, "µ"))
}

func TestSystemPromptPinsJSONShape(t *testing.T) {
	s := SystemPrompt()
	assert.Contains(t, s, `"parameters"`)
	assert.Contains(t, s, "JSON")
}
