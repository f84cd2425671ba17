// Package cachegate partitions entity references by detail-cache freshness so
// the fetcher pool only works on what is missing or aged out.
package cachegate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kareone/market-navigator/internal/core/domain"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
	"github.com/kareone/market-navigator/internal/platform/observability"
)

// RecordGetter is the slice of the store the gate needs.
type RecordGetter interface {
	GetCacheRecord(ctx context.Context, reference string) (*domain.CacheRecord, error)
}

// Gate decides per reference whether the cached detail is still usable.
type Gate struct {
	store  RecordGetter
	logger *zerolog.Logger
	now    func() time.Time
}

// New creates a gate over the given store.
func New(store RecordGetter, logger *zerolog.Logger) *Gate {
	return &Gate{store: store, logger: logger, now: time.Now}
}

// Partition splits refs into fresh payloads and stale references. Missing
// records, lookup errors and aged records all count as stale; a lookup error
// degrades to a refetch instead of failing the job. A non-positive window
// makes every reference stale.
func (g *Gate) Partition(ctx context.Context, refs []string, window time.Duration) (map[string][]byte, []string, error) {
	fresh := make(map[string][]byte)
	stale := make([]string, 0, len(refs))

	if window <= 0 {
		observability.CacheMisses.Add(float64(len(refs)))

		return fresh, append(stale, refs...), nil
	}

	now := g.now()

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return fresh, stale, err
		}

		rec, err := g.store.GetCacheRecord(ctx, ref)
		if err != nil {
			if !apperrors.Is(err, apperrors.ErrNotFound) {
				g.logger.Warn().Err(err).
					Str("reference", ref).
					Msg("cache lookup failed, treating as stale")
			}

			observability.CacheMisses.Inc()
			stale = append(stale, ref)

			continue
		}

		if !rec.FreshAt(now, window) {
			observability.CacheMisses.Inc()
			stale = append(stale, ref)

			continue
		}

		observability.CacheHits.Inc()
		fresh[ref] = rec.Payload
	}

	g.logger.Debug().
		Int("fresh", len(fresh)).
		Int("stale", len(stale)).
		Dur("window", window).
		Msg("cache partition done")

	return fresh, stale, nil
}
