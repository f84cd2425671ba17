package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kareone/market-navigator/internal/core/domain"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
)

// GetCacheRecord loads the cached detail record for a reference.
// Returns ErrNotFound when the reference has never been fetched.
func (s *Store) GetCacheRecord(ctx context.Context, reference string) (*domain.CacheRecord, error) {
	var rec domain.CacheRecord

	err := s.Pool.QueryRow(ctx, `
		SELECT reference, payload, fetched_at
		FROM detail_cache
		WHERE reference = $1
	`, reference).Scan(&rec.Reference, &rec.Payload, &rec.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}

		return nil, fmt.Errorf("get cache record: %w", err)
	}

	return &rec, nil
}

// PutCacheRecord upserts a detail payload with a fresh fetched_at timestamp.
func (s *Store) PutCacheRecord(ctx context.Context, reference string, payload []byte, fetchedAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO detail_cache (reference, payload, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (reference) DO UPDATE
		SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at
	`, reference, payload, fetchedAt)
	if err != nil {
		return fmt.Errorf("put cache record: %w", err)
	}

	return nil
}

// DeleteCacheRecordsOlderThan removes records whose fetched_at precedes the
// cutoff. Returns the number of deleted rows.
func (s *Store) DeleteCacheRecordsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `
		DELETE FROM detail_cache
		WHERE fetched_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale cache records: %w", err)
	}

	return tag.RowsAffected(), nil
}
