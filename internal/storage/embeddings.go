package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	apperrors "github.com/kareone/market-navigator/internal/core/errors"
)

// GetEmbedding loads a cached embedding vector by text hash.
// Returns ErrNotFound for unknown hashes.
func (s *Store) GetEmbedding(ctx context.Context, textHash string) ([]float32, error) {
	var vec pgvector.Vector

	err := s.Pool.QueryRow(ctx, `
		SELECT embedding
		FROM embedding_cache
		WHERE text_hash = $1
	`, textHash).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}

		return nil, fmt.Errorf("get embedding: %w", err)
	}

	return vec.Slice(), nil
}

// PutEmbedding upserts an embedding vector keyed by text hash.
func (s *Store) PutEmbedding(ctx context.Context, textHash string, vector []float32) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO embedding_cache (text_hash, embedding, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (text_hash) DO UPDATE
		SET embedding = EXCLUDED.embedding
	`, textHash, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("put embedding: %w", err)
	}

	return nil
}
