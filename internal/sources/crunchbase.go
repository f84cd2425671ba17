package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kareone/market-navigator/internal/core/domain"
	"github.com/kareone/market-navigator/internal/session"
)

const (
	crunchbaseSearchPath = "/api/v1/searches/organizations"
	crunchbaseEntityPath = "/api/v1/entities/organizations/"
)

// CrunchbaseClient speaks the Crunchbase-style JSON search API.
type CrunchbaseClient struct {
	baseURL string
}

// NewCrunchbaseClient creates a client for the given platform base URL.
func NewCrunchbaseClient(baseURL string) *CrunchbaseClient {
	return &CrunchbaseClient{baseURL: baseURL}
}

var (
	_ SearchClient  = (*CrunchbaseClient)(nil)
	_ DetailFetcher = (*CrunchbaseClient)(nil)
)

// Name identifies the platform.
func (c *CrunchbaseClient) Name() domain.Source {
	return domain.SourceCrunchbase
}

type crunchbaseSearchResponse struct {
	Entities []domain.CrunchbaseShape `json:"entities"`
}

// SearchPage runs one keyword query for one result page.
func (c *CrunchbaseClient) SearchPage(ctx context.Context, s session.Session, keyword string, page, perPage int) ([]domain.RawEntity, error) {
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(perPage))

	body, err := s.Get(ctx, c.baseURL+crunchbaseSearchPath+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("crunchbase search %q page %d: %w", keyword, page, err)
	}

	var resp crunchbaseSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode crunchbase search response: %w", err)
	}

	raw := make([]domain.RawEntity, 0, len(resp.Entities))

	for i := range resp.Entities {
		raw = append(raw, domain.RawEntity{
			Source:     domain.SourceCrunchbase,
			Crunchbase: &resp.Entities[i],
		})
	}

	return raw, nil
}

// FetchDetail loads the full organization record for a reference. The
// payload is stored as returned by the platform.
func (c *CrunchbaseClient) FetchDetail(ctx context.Context, s session.Session, reference string) ([]byte, error) {
	body, err := s.Get(ctx, c.baseURL+crunchbaseEntityPath+url.PathEscape(reference))
	if err != nil {
		return nil, fmt.Errorf("crunchbase detail %q: %w", reference, err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("crunchbase detail %q: invalid payload", reference)
	}

	return body, nil
}
