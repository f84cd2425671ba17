package scoring

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kareone/market-navigator/internal/core/domain"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
)

// scriptedSimilarity returns fixed scores keyed by text and records whether
// it was called at all.
type scriptedSimilarity struct {
	byText map[string]float64
	calls  int
}

func (s *scriptedSimilarity) Similarities(_ context.Context, texts []string, _ string) ([]float64, error) {
	s.calls++

	out := make([]float64, len(texts))
	for i, text := range texts {
		out[i] = s.byText[text]
	}

	return out, nil
}

func authorityEntity(ref, desc string, score float64) *domain.Entity {
	return &domain.Entity{
		Reference:   ref,
		Description: desc,
		Secondary:   domain.SecondarySignal{Kind: domain.SignalAuthorityScore, Value: score},
	}
}

func ordinalEntity(ref, desc string, rank float64) *domain.Entity {
	return &domain.Entity{
		Reference:   ref,
		Description: desc,
		Secondary:   domain.SecondarySignal{Kind: domain.SignalOrdinalRank, Value: rank},
	}
}

func TestScorer_InvalidWeightsBeforeIO(t *testing.T) {
	sim := &scriptedSimilarity{}
	logger := zerolog.Nop()
	scorer := New(sim, &logger)

	entities := map[string]*domain.Entity{
		"acme.io": authorityEntity("acme.io", "Payments", 0.5),
	}

	_, err := scorer.Score(context.Background(), entities, "payments",
		domain.Weights{Similarity: 0.9, Secondary: 0.3})

	require.ErrorIs(t, err, apperrors.ErrInvalidWeights)
	assert.Zero(t, sim.calls, "no similarity call on invalid weights")
}

func TestScorer_CombinedScoreWorkedExample(t *testing.T) {
	// 0.8 similarity and 0.4 secondary at 0.75/0.25 weights combine to 0.70.
	sim := &scriptedSimilarity{byText: map[string]float64{"Payments infra": 0.8}}
	logger := zerolog.Nop()
	scorer := New(sim, &logger)

	entities := map[string]*domain.Entity{
		"acme.io": authorityEntity("acme.io", "Payments infra", 0.4),
	}

	scored, err := scorer.Score(context.Background(), entities, "payments",
		domain.Weights{Similarity: 0.75, Secondary: 0.25})
	require.NoError(t, err)
	require.Len(t, scored, 1)

	assert.InDelta(t, 0.70, scored[0].CombinedScore, 1e-9)
	assert.Equal(t, 1, scored[0].Rank)
}

func TestScorer_OrdinalRankMinMaxInverted(t *testing.T) {
	sim := &scriptedSimilarity{byText: map[string]float64{
		"best": 0.5, "mid": 0.5, "worst": 0.5,
	}}
	logger := zerolog.Nop()
	scorer := New(sim, &logger)

	entities := map[string]*domain.Entity{
		"a": ordinalEntity("a", "best", 100),
		"b": ordinalEntity("b", "mid", 550),
		"c": ordinalEntity("c", "worst", 1000),
	}

	scored, err := scorer.Score(context.Background(), entities, "target",
		domain.Weights{Similarity: 0, Secondary: 1})
	require.NoError(t, err)
	require.Len(t, scored, 3)

	assert.Equal(t, "a", scored[0].Reference)
	assert.InDelta(t, 1.0, scored[0].SecondaryScore, 1e-9)
	assert.InDelta(t, 0.5, scored[1].SecondaryScore, 1e-9)
	assert.InDelta(t, 0.0, scored[2].SecondaryScore, 1e-9)
}

func TestScorer_DegenerateOrdinalRange(t *testing.T) {
	sim := &scriptedSimilarity{byText: map[string]float64{"only": 0.2}}
	logger := zerolog.Nop()
	scorer := New(sim, &logger)

	entities := map[string]*domain.Entity{
		"a": ordinalEntity("a", "only", 777),
	}

	scored, err := scorer.Score(context.Background(), entities, "target",
		domain.Weights{Similarity: 0.5, Secondary: 0.5})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scored[0].SecondaryScore, 1e-9)
}

func TestScorer_DeterministicTieBreakAndPositionalRanks(t *testing.T) {
	sim := &scriptedSimilarity{byText: map[string]float64{
		"same-a": 0.6, "same-b": 0.6, "lower": 0.1,
	}}
	logger := zerolog.Nop()
	scorer := New(sim, &logger)

	entities := map[string]*domain.Entity{
		"beta.io":  authorityEntity("beta.io", "same-b", 0.6),
		"acme.io":  authorityEntity("acme.io", "same-a", 0.6),
		"gamma.io": authorityEntity("gamma.io", "lower", 0.1),
	}

	scored, err := scorer.Score(context.Background(), entities, "target",
		domain.Weights{Similarity: 0.75, Secondary: 0.25})
	require.NoError(t, err)
	require.Len(t, scored, 3)

	// Equal combined scores: ordered by reference, each holding its own
	// position in a gapless rank sequence.
	assert.Equal(t, "acme.io", scored[0].Reference)
	assert.Equal(t, "beta.io", scored[1].Reference)
	assert.Equal(t, 1, scored[0].Rank)
	assert.Equal(t, 2, scored[1].Rank)
	assert.Equal(t, 3, scored[2].Rank)
}

func TestScorer_EmptySetSkipsSimilarityCall(t *testing.T) {
	sim := &scriptedSimilarity{}
	logger := zerolog.Nop()
	scorer := New(sim, &logger)

	scored, err := scorer.Score(context.Background(), nil, "target",
		domain.Weights{Similarity: 0.75, Secondary: 0.25})
	require.NoError(t, err)

	assert.Empty(t, scored)
	assert.Zero(t, sim.calls)
}
