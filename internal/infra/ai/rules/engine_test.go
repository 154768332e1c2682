package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
	"github.com/mediqlabs/mediq-analyzer/internal/domain/biomarker"
)

func TestRulesEngineClassifiesKnownFields(t *testing.T) {
	e := New(biomarker.Default())

	draft, err := e.Analyze(context.Background(), domain.ExtractionOutcome{
		Fields: []domain.CandidateField{
			{Name: "Glucose", RawValue: "250", Unit: "mg/dL"},
			{Name: "hgb", RawValue: "13.2", Unit: "g/dL"},
			{Name: "Potassium", RawValue: "7.0", Unit: "mmol/L"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "rules", draft.EngineUsed)
	require.Len(t, draft.Parameters, 3)

	assert.Equal(t, "Glucose", draft.Parameters[0].Name)
	assert.Equal(t, domain.StatusHigh, draft.Parameters[0].Status)

	assert.Equal(t, "Hemoglobin", draft.Parameters[1].Name)
	assert.Equal(t, domain.StatusNormal, draft.Parameters[1].Status)

	assert.Equal(t, domain.StatusCritical, draft.Parameters[2].Status)

	for _, p := range draft.Parameters {
		assert.Equal(t, ruleConfidence, p.Confidence)
		assert.NotEmpty(t, p.Explanation)
	}
}

func TestRulesEngineConvertsUnits(t *testing.T) {
	e := New(biomarker.Default())
	draft, err := e.Analyze(context.Background(), domain.ExtractionOutcome{
		Fields: []domain.CandidateField{
			// 10 mmol/L glucose converts to ~180 mg/dL, above range
			{Name: "glucose", RawValue: "10", Unit: "mmol/L"},
		},
	})
	require.NoError(t, err)
	require.Len(t, draft.Parameters, 1)
	assert.Equal(t, domain.StatusHigh, draft.Parameters[0].Status)
}

func TestRulesEngineSkipsUnknownAndNonNumeric(t *testing.T) {
	e := New(biomarker.Default())
	draft, err := e.Analyze(context.Background(), domain.ExtractionOutcome{
		Fields: []domain.CandidateField{
			{Name: "Some Novel Marker", RawValue: "42", Unit: "au"},
			{Name: "Glucose", RawValue: "pending", Unit: "mg/dL"},
			{Name: "Glucose", RawValue: "95", Unit: "mg/dL"},
		},
	})
	require.NoError(t, err)
	require.Len(t, draft.Parameters, 1)
	assert.Equal(t, domain.StatusNormal, draft.Parameters[0].Status)
}

// the engine must produce an (possibly empty) draft for any input
func TestRulesEngineNeverFails(t *testing.T) {
	e := New(biomarker.Default())
	draft, err := e.Analyze(context.Background(), domain.ExtractionOutcome{})
	require.NoError(t, err)
	assert.Empty(t, draft.Parameters)
	assert.Equal(t, "rules", draft.EngineUsed)
}
