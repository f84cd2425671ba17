// Package tracker implements keyword collection: it walks every configured
// search platform page by page through the session gateway and folds the
// results into one deduplicated entity set keyed by canonical reference.
package tracker

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kareone/market-navigator/internal/core/domain"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
	"github.com/kareone/market-navigator/internal/platform/observability"
	"github.com/kareone/market-navigator/internal/session"
	"github.com/kareone/market-navigator/internal/sources"
)

const (
	outcomeNew     = "new"
	outcomeRepeat  = "repeat"
	outcomeDropped = "dropped"

	queryStatusSuccess = "success"
	queryStatusError   = "error"
)

// Gateway is the slice of the session gateway the tracker needs.
type Gateway interface {
	Do(ctx context.Context, op session.Operation) error
}

// CancelFunc reports whether the job this collection belongs to has been
// cancelled. Polled between keywords.
type CancelFunc func() bool

// Config bounds the pagination walk.
type Config struct {
	// NumPerKeyword is the page size and the per-keyword target: once a
	// keyword has contributed this many new references its pagination stops.
	NumPerKeyword int

	// EmptyPageStop halts a keyword's pagination on one platform after this
	// many consecutive pages that produced zero new references.
	EmptyPageStop int

	// MaxPages is the hard pagination cap per keyword and platform.
	MaxPages int
}

// Result is the collected entity set. Cancelled marks a partial set produced
// by a cooperative cancellation between keywords. SkippedKeywords lists
// keywords whose collection failed; their absence does not fail the run.
type Result struct {
	Entities        map[string]*domain.Entity
	Cancelled       bool
	SkippedKeywords []string
}

// Tracker collects entities for a keyword list. Collection is single
// threaded; the map is safe to hand to the scorer as soon as Collect returns.
type Tracker struct {
	gateway Gateway
	clients []sources.SearchClient
	cfg     Config
	logger  *zerolog.Logger
}

// New creates a tracker over the given search platforms.
func New(gateway Gateway, clients []sources.SearchClient, cfg Config, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		gateway: gateway,
		clients: clients,
		cfg:     cfg,
		logger:  logger,
	}
}

// Collect runs the keyword queries in the supplied order and returns the
// deduplicated entity set. A cancellation observed between keywords stops the
// walk and returns what was gathered so far with Cancelled set. A keyword
// whose search fails, an unavailable session included, is skipped and the
// remaining keywords still run; only a dead context aborts the walk.
func (t *Tracker) Collect(ctx context.Context, keywords []string, cancelled CancelFunc) (Result, error) {
	if len(keywords) == 0 {
		return Result{}, apperrors.ErrNoKeywords
	}

	res := Result{Entities: make(map[string]*domain.Entity)}

	for _, keyword := range keywords {
		if cancelled != nil && cancelled() {
			res.Cancelled = true

			return res, nil
		}

		if err := t.collectKeyword(ctx, keyword, res.Entities); err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("collect keyword %q: %w", keyword, err)
			}

			res.SkippedKeywords = append(res.SkippedKeywords, keyword)
			t.logger.Warn().Err(err).
				Str("keyword", keyword).
				Msg("keyword collection failed, continuing with remaining keywords")
		}
	}

	return res, nil
}

func (t *Tracker) collectKeyword(ctx context.Context, keyword string, entities map[string]*domain.Entity) error {
	for _, client := range t.clients {
		if err := t.paginate(ctx, client, keyword, entities); err != nil {
			return err
		}
	}

	return nil
}

// paginate walks one platform for one keyword until the per-keyword target is
// met, the empty-page heuristic trips, or the page cap is hit.
func (t *Tracker) paginate(ctx context.Context, client sources.SearchClient, keyword string, entities map[string]*domain.Entity) error {
	var (
		emptyStreak int
		newTotal    int
	)

	for page := 1; page <= t.cfg.MaxPages; page++ {
		var raw []domain.RawEntity

		timer := prometheus.NewTimer(observability.SearchQueryDuration.WithLabelValues(string(client.Name())))

		err := t.gateway.Do(ctx, func(ctx context.Context, s session.Session) error {
			var opErr error
			raw, opErr = client.SearchPage(ctx, s, keyword, page, t.cfg.NumPerKeyword)

			return opErr
		})

		timer.ObserveDuration()

		if err != nil {
			observability.SearchQueriesTotal.WithLabelValues(string(client.Name()), queryStatusError).Inc()

			return fmt.Errorf("search %s page %d: %w", client.Name(), page, err)
		}

		observability.SearchQueriesTotal.WithLabelValues(string(client.Name()), queryStatusSuccess).Inc()

		added := t.ingest(raw, keyword, entities)
		newTotal += added

		if added == 0 {
			emptyStreak++
		} else {
			emptyStreak = 0
		}

		t.logger.Debug().
			Str("source", string(client.Name())).
			Str("keyword", keyword).
			Int("page", page).
			Int("new", added).
			Msg("search page ingested")

		if newTotal >= t.cfg.NumPerKeyword {
			return nil
		}

		if emptyStreak >= t.cfg.EmptyPageStop {
			t.logger.Info().
				Str("source", string(client.Name())).
				Str("keyword", keyword).
				Int("pages", page).
				Msg("pagination stopped, no new entities")

			return nil
		}
	}

	return nil
}

// ingest folds one page of raw results into the shared map and returns the
// number of references seen for the first time.
func (t *Tracker) ingest(raw []domain.RawEntity, keyword string, entities map[string]*domain.Entity) int {
	var added int

	for _, r := range raw {
		entity, ok := r.Normalize()
		if !ok {
			observability.EntitiesDiscovered.WithLabelValues(outcomeDropped).Inc()
			t.logger.Warn().
				Str("source", string(r.Source)).
				Str("keyword", keyword).
				Msg("dropping result without reference or description")

			continue
		}

		existing, seen := entities[entity.Reference]
		if !seen {
			entity.AppearanceCount = 1
			entity.OriginKeywords = []string{keyword}
			entities[entity.Reference] = &entity

			observability.EntitiesDiscovered.WithLabelValues(outcomeNew).Inc()

			added++

			continue
		}

		existing.AppearanceCount++

		if !existing.HasKeyword(keyword) {
			existing.OriginKeywords = append(existing.OriginKeywords, keyword)
		}

		observability.EntitiesDiscovered.WithLabelValues(outcomeRepeat).Inc()
	}

	return added
}
