// Package sources defines the platform ports consumed by the pipeline: a
// search client for keyword collection and a detail fetcher for per-entity
// payloads, together with the Crunchbase-style and Tracxn-style
// implementations.
package sources

import (
	"context"

	"github.com/kareone/market-navigator/internal/core/domain"
	"github.com/kareone/market-navigator/internal/session"
)

// SearchClient issues keyword queries against one platform. Calls receive
// the session to use so the same client can run on the shared gateway
// session during collection.
type SearchClient interface {
	// Name identifies the platform.
	Name() domain.Source

	// SearchPage runs one keyword query for one result page (1-based) and
	// returns the raw entities found there. An empty slice with nil error
	// means the page exists but yielded nothing new.
	SearchPage(ctx context.Context, s session.Session, keyword string, page, perPage int) ([]domain.RawEntity, error)
}

// DetailFetcher resolves one entity reference into a raw detail payload
// using the given (independently-authenticated) session.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, s session.Session, reference string) ([]byte, error)
}
