package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/kareone/market-navigator/internal/core/domain"
	"github.com/kareone/market-navigator/internal/session"
)

const tracxnSearchPath = "/api/2.2/companies/search"

// TracxnClient speaks the Tracxn-style JSON search API. Detail payloads are
// extracted from the company's own website rather than a platform endpoint,
// so fetching goes through the readability extractor.
type TracxnClient struct {
	baseURL   string
	extractor *ContentExtractor
}

// NewTracxnClient creates a client for the given platform base URL.
func NewTracxnClient(baseURL string) *TracxnClient {
	return &TracxnClient{
		baseURL:   baseURL,
		extractor: NewContentExtractor(),
	}
}

var (
	_ SearchClient  = (*TracxnClient)(nil)
	_ DetailFetcher = (*TracxnClient)(nil)
)

// Name identifies the platform.
func (c *TracxnClient) Name() domain.Source {
	return domain.SourceTracxn
}

type tracxnSearchResponse struct {
	Result []domain.TracxnShape `json:"result"`
}

// SearchPage runs one keyword query for one result page.
func (c *TracxnClient) SearchPage(ctx context.Context, s session.Session, keyword string, page, perPage int) ([]domain.RawEntity, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("from", fmt.Sprint((page-1)*perPage))
	q.Set("size", fmt.Sprint(perPage))

	body, err := s.Get(ctx, c.baseURL+tracxnSearchPath+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("tracxn search %q page %d: %w", keyword, page, err)
	}

	var resp tracxnSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode tracxn search response: %w", err)
	}

	raw := make([]domain.RawEntity, 0, len(resp.Result))

	for i := range resp.Result {
		raw = append(raw, domain.RawEntity{
			Source: domain.SourceTracxn,
			Tracxn: &resp.Result[i],
		})
	}

	return raw, nil
}

// FetchDetail loads the company website behind the reference (a canonical
// domain) and reduces it to a readable-content payload.
func (c *TracxnClient) FetchDetail(ctx context.Context, s session.Session, reference string) ([]byte, error) {
	pageURL := reference
	if !strings.Contains(pageURL, "://") {
		pageURL = "https://" + pageURL
	}

	body, err := s.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("tracxn detail %q: %w", reference, err)
	}

	payload, err := c.extractor.Extract(body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("tracxn detail %q: %w", reference, err)
	}

	return payload, nil
}
