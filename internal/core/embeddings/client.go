package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"

	apperrors "github.com/kareone/market-navigator/internal/core/errors"
)

// Client is the similarity service consumed by the scorer: given a set of
// texts and a target text, it returns per-text similarity in [0,1].
type Client interface {
	Similarities(ctx context.Context, texts []string, target string) ([]float64, error)
}

// Cache persists embeddings keyed by text hash so repeated jobs against the
// same entities do not re-bill the provider. Get returns ErrNotFound for
// unknown hashes.
type Cache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, error)
	PutEmbedding(ctx context.Context, textHash string, vector []float32) error
}

// Service implements Client on top of a Provider with an optional
// write-through cache.
type Service struct {
	provider Provider
	cache    Cache
	logger   *zerolog.Logger
}

// NewService creates a similarity service. The cache may be nil.
func NewService(provider Provider, cache Cache, logger *zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

var _ Client = (*Service)(nil)

// Similarities embeds the target and all texts (one batched provider call
// for the uncached texts) and returns cosine similarity per text, rescaled
// from [-1,1] to [0,1].
func (s *Service) Similarities(ctx context.Context, texts []string, target string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := s.embedAll(ctx, append([]string{target}, texts...))
	if err != nil {
		return nil, err
	}

	targetVec := vectors[0]
	scores := make([]float64, len(texts))

	for i := range texts {
		scores[i] = rescale(CosineSimilarity(vectors[i+1], targetVec))
	}

	return scores, nil
}

// embedAll resolves embeddings for all texts, consulting the cache first and
// batching the remainder into a single provider call.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))

	for i, text := range texts {
		if vec := s.cacheGet(ctx, text); vec != nil {
			vectors[i] = vec
			continue
		}

		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}

	embedded, err := s.provider.Embed(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	if len(embedded) != len(missing) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			apperrors.ErrEmptyResponse, len(embedded), len(missing))
	}

	for j, i := range missing {
		vectors[i] = embedded[j]
		s.cachePut(ctx, texts[i], embedded[j])
	}

	return vectors, nil
}

func (s *Service) cacheGet(ctx context.Context, text string) []float32 {
	if s.cache == nil {
		return nil
	}

	vec, err := s.cache.GetEmbedding(ctx, TextHash(text))
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("embedding cache lookup failed")
		}

		return nil
	}

	return vec
}

func (s *Service) cachePut(ctx context.Context, text string, vec []float32) {
	if s.cache == nil {
		return
	}

	if err := s.cache.PutEmbedding(ctx, TextHash(text), vec); err != nil {
		s.logger.Warn().Err(err).Msg("embedding cache write failed")
	}
}

// TextHash returns the cache key for a text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func rescale(cos float64) float64 {
	score := (cos + 1) / 2

	if score < 0 {
		return 0
	}

	if score > 1 {
		return 1
	}

	return score
}
