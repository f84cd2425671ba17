// Package scoring ranks collected entities by a weighted blend of semantic
// similarity to the target description and a normalized secondary signal.
package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kareone/market-navigator/internal/core/domain"
	"github.com/kareone/market-navigator/internal/core/embeddings"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
)

// Scorer computes the ranked entity list. Apart from the batched similarity
// call it is a pure function of its inputs.
type Scorer struct {
	similarity embeddings.Client
	logger     *zerolog.Logger
}

// New creates a scorer backed by the given similarity service.
func New(similarity embeddings.Client, logger *zerolog.Logger) *Scorer {
	return &Scorer{similarity: similarity, logger: logger}
}

// Score ranks the entity set against the target description. Weights are
// validated before any I/O happens. The returned slice is sorted by combined
// score descending, ties broken by reference ascending, with the rank being
// each entity's 1-based position.
func (s *Scorer) Score(ctx context.Context, entities map[string]*domain.Entity, target string, weights domain.Weights) ([]domain.ScoredEntity, error) {
	if !weights.Validate() {
		return nil, fmt.Errorf("%w: similarity=%v secondary=%v",
			apperrors.ErrInvalidWeights, weights.Similarity, weights.Secondary)
	}

	if len(entities) == 0 {
		return nil, nil
	}

	// Deterministic input order so similarity scores line up per entity and
	// repeated runs rank identically.
	refs := make([]string, 0, len(entities))
	for ref := range entities {
		refs = append(refs, ref)
	}

	sort.Strings(refs)

	texts := make([]string, len(refs))
	for i, ref := range refs {
		texts[i] = entities[ref].Description
	}

	similarities, err := s.similarity.Similarities(ctx, texts, target)
	if err != nil {
		return nil, fmt.Errorf("similarity scoring: %w", err)
	}

	if len(similarities) != len(refs) {
		return nil, fmt.Errorf("%w: %d similarities for %d entities",
			apperrors.ErrEmptyResponse, len(similarities), len(refs))
	}

	secondary := normalizeSecondary(refs, entities)

	scored := make([]domain.ScoredEntity, len(refs))
	for i, ref := range refs {
		e := entities[ref]

		scored[i] = domain.ScoredEntity{
			Entity:          *e,
			SimilarityScore: similarities[i],
			SecondaryScore:  secondary[ref],
			CombinedScore:   weights.Combine(similarities[i], secondary[ref]),
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].CombinedScore != scored[j].CombinedScore {
			return scored[i].CombinedScore > scored[j].CombinedScore
		}

		return scored[i].Reference < scored[j].Reference
	})

	assignRanks(scored)

	s.logger.Debug().
		Int("entities", len(scored)).
		Float64("w_similarity", weights.Similarity).
		Float64("w_secondary", weights.Secondary).
		Msg("entities scored")

	return scored, nil
}

// normalizeSecondary maps every raw secondary signal into [0,1]. Authority
// scores arrive pre-normalized; ordinal ranks are min-max inverted over the
// ordinal subset so the best-ranked entity scores 1.0.
func normalizeSecondary(refs []string, entities map[string]*domain.Entity) map[string]float64 {
	minRank, maxRank, hasOrdinal := ordinalRange(entities)

	out := make(map[string]float64, len(refs))

	for _, ref := range refs {
		sig := entities[ref].Secondary

		switch sig.Kind {
		case domain.SignalAuthorityScore:
			out[ref] = sig.Value
		case domain.SignalOrdinalRank:
			if !hasOrdinal || maxRank == minRank {
				// Degenerate range: a lone ordinal entity is its own best.
				out[ref] = 1.0
				continue
			}

			out[ref] = 1.0 - (sig.Value-minRank)/(maxRank-minRank)
		default:
			out[ref] = 0
		}
	}

	return out
}

func ordinalRange(entities map[string]*domain.Entity) (min, max float64, ok bool) {
	for _, e := range entities {
		if e.Secondary.Kind != domain.SignalOrdinalRank {
			continue
		}

		v := e.Secondary.Value

		if !ok {
			min, max, ok = v, v, true
			continue
		}

		if v < min {
			min = v
		}

		if v > max {
			max = v
		}
	}

	return min, max, ok
}

// assignRanks writes positional 1-based ranks onto the sorted slice. The sort
// already breaks score ties by reference, so ranks form a gapless total
// order.
func assignRanks(scored []domain.ScoredEntity) {
	for i := range scored {
		scored[i].Rank = i + 1
	}
}
