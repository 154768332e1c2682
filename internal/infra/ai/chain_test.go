package ai

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mediqlabs/mediq-analyzer/internal/domain/analysis"
)

type stubEngine struct {
	name    string
	draft   domain.AnalysisDraft
	err     error
	calls   int
	healthy bool
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Analyze(context.Context, domain.ExtractionOutcome) (domain.AnalysisDraft, error) {
	s.calls++
	if s.err != nil {
		return domain.AnalysisDraft{}, s.err
	}
	return s.draft, nil
}

func (s *stubEngine) Probe(context.Context) bool { return s.healthy }

func goodDraft(engine string, conf float64) domain.AnalysisDraft {
	return domain.AnalysisDraft{
		Parameters: []domain.DraftParameter{
			{Name: "Glucose", Value: "95", Unit: "mg/dL", Status: domain.StatusNormal, Confidence: conf},
		},
		EngineUsed:       engine,
		EngineConfidence: conf,
	}
}

func outcomeWithFields() domain.ExtractionOutcome {
	return domain.ExtractionOutcome{
		RawText:    "Glucose: 95 mg/dL",
		Fields:     []domain.CandidateField{{Name: "Glucose", RawValue: "95", Unit: "mg/dL"}},
		Confidence: 1,
		Kind:       domain.ExtractorPDF,
	}
}

func TestChainUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &stubEngine{name: "primary", draft: goodDraft("primary", 0.9)}
	fallback := &stubEngine{name: "fallback", draft: goodDraft("fallback", 0.9)}
	c := NewChain(zerolog.Nop(), 0.5, primary, fallback)

	draft, err := c.Analyze(context.Background(), outcomeWithFields())
	require.NoError(t, err)
	assert.Equal(t, "primary", draft.EngineUsed)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestChainFallsOverOnError(t *testing.T) {
	primary := &stubEngine{name: "primary", err: domain.NewError(domain.ErrEngineUnavailable, "down")}
	fallback := &stubEngine{name: "fallback", draft: goodDraft("fallback", 0.9)}
	c := NewChain(zerolog.Nop(), 0.5, primary, fallback)

	draft, err := c.Analyze(context.Background(), outcomeWithFields())
	require.NoError(t, err)
	assert.Equal(t, "fallback", draft.EngineUsed)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestChainFallsOverOnLowConfidence(t *testing.T) {
	primary := &stubEngine{name: "primary", draft: goodDraft("primary", 0.2)}
	fallback := &stubEngine{name: "fallback", draft: goodDraft("fallback", 0.9)}
	c := NewChain(zerolog.Nop(), 0.5, primary, fallback)

	draft, err := c.Analyze(context.Background(), outcomeWithFields())
	require.NoError(t, err)
	assert.Equal(t, "fallback", draft.EngineUsed)
}

func TestChainFallsOverOnEmptyDraft(t *testing.T) {
	primary := &stubEngine{name: "primary", draft: domain.AnalysisDraft{EngineUsed: "primary"}}
	fallback := &stubEngine{name: "fallback", draft: goodDraft("fallback", 0.9)}
	c := NewChain(zerolog.Nop(), 0.5, primary, fallback)

	draft, err := c.Analyze(context.Background(), outcomeWithFields())
	require.NoError(t, err)
	assert.Equal(t, "fallback", draft.EngineUsed)
}

func TestChainLastEngineAcceptedAsIs(t *testing.T) {
	// even a low-confidence draft from the tail engine is returned
	primary := &stubEngine{name: "primary", err: domain.NewError(domain.ErrEngineUnavailable, "down")}
	tail := &stubEngine{name: "rules", draft: goodDraft("rules", 0.2)}
	c := NewChain(zerolog.Nop(), 0.5, primary, tail)

	draft, err := c.Analyze(context.Background(), outcomeWithFields())
	require.NoError(t, err)
	assert.Equal(t, "rules", draft.EngineUsed)
}

func TestChainAllEnginesExhausted(t *testing.T) {
	e1 := &stubEngine{name: "a", err: domain.NewError(domain.ErrEngineUnavailable, "down")}
	e2 := &stubEngine{name: "b", err: domain.NewError(domain.ErrEngineUnavailable, "also down")}
	c := NewChain(zerolog.Nop(), 0.5, e1, e2)

	_, err := c.Analyze(context.Background(), outcomeWithFields())
	require.Error(t, err)
	assert.Equal(t, domain.ErrAllEnginesExhausted, domain.KindOf(err))
}

func TestChainNoEngines(t *testing.T) {
	c := NewChain(zerolog.Nop(), 0.5)
	_, err := c.Analyze(context.Background(), outcomeWithFields())
	require.Error(t, err)
	assert.Equal(t, domain.ErrAllEnginesExhausted, domain.KindOf(err))
}

func TestProbePrimary(t *testing.T) {
	up := &stubEngine{name: "primary", healthy: true}
	c := NewChain(zerolog.Nop(), 0.5, up)
	assert.True(t, c.ProbePrimary(context.Background()))

	down := &stubEngine{name: "primary", healthy: false}
	c = NewChain(zerolog.Nop(), 0.5, down)
	assert.False(t, c.ProbePrimary(context.Background()))

	assert.False(t, NewChain(zerolog.Nop(), 0.5).ProbePrimary(context.Background()))
}
