package tracker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kareone/market-navigator/internal/core/domain"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
	"github.com/kareone/market-navigator/internal/session"
	"github.com/kareone/market-navigator/internal/sources"
)

type passThroughGateway struct{}

func (passThroughGateway) Do(ctx context.Context, op session.Operation) error {
	return op(ctx, nil)
}

// fakeClient serves pages from a keyword -> pages map. Pages beyond the
// scripted ones are empty; keywords in errs fail every search.
type fakeClient struct {
	name  domain.Source
	pages map[string][][]domain.RawEntity
	errs  map[string]error
	calls int
}

func (c *fakeClient) Name() domain.Source { return c.name }

func (c *fakeClient) SearchPage(_ context.Context, _ session.Session, keyword string, page, _ int) ([]domain.RawEntity, error) {
	c.calls++

	if err := c.errs[keyword]; err != nil {
		return nil, err
	}

	scripted := c.pages[keyword]
	if page > len(scripted) {
		return nil, nil
	}

	return scripted[page-1], nil
}

func cbRaw(permalink, desc string, rank int64) domain.RawEntity {
	return domain.RawEntity{
		Source: domain.SourceCrunchbase,
		Crunchbase: &domain.CrunchbaseShape{
			Permalink:   permalink,
			Name:        permalink,
			Description: desc,
			Rank:        rank,
		},
	}
}

func newTestTracker(clients ...*fakeClient) *Tracker {
	logger := zerolog.Nop()
	cfg := Config{NumPerKeyword: 20, EmptyPageStop: 3, MaxPages: 20}

	srcClients := make([]sources.SearchClient, 0, len(clients))
	for _, c := range clients {
		srcClients = append(srcClients, c)
	}

	return New(passThroughGateway{}, srcClients, cfg, &logger)
}

func TestTracker_DedupAcrossKeywords(t *testing.T) {
	client := &fakeClient{
		name: domain.SourceCrunchbase,
		pages: map[string][][]domain.RawEntity{
			"payments": {{cbRaw("organization/acme", "Payments infra", 100)}},
			"fintech":  {{cbRaw("organization/acme", "Payments infra", 100)}},
		},
	}
	tr := newTestTracker(client)

	res, err := tr.Collect(context.Background(), []string{"payments", "fintech"}, nil)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)

	e := res.Entities["organization/acme"]
	require.NotNil(t, e)
	assert.Equal(t, 2, e.AppearanceCount)
	assert.Equal(t, []string{"payments", "fintech"}, e.OriginKeywords)
}

func TestTracker_RepeatKeywordIsIdempotent(t *testing.T) {
	client := &fakeClient{
		name: domain.SourceCrunchbase,
		pages: map[string][][]domain.RawEntity{
			"payments": {{
				cbRaw("organization/acme", "Payments infra", 100),
				cbRaw("organization/acme", "Payments infra", 100),
			}},
		},
	}
	tr := newTestTracker(client)

	res, err := tr.Collect(context.Background(), []string{"payments"}, nil)
	require.NoError(t, err)

	e := res.Entities["organization/acme"]
	require.NotNil(t, e)
	assert.Equal(t, 2, e.AppearanceCount)
	assert.Equal(t, []string{"payments"}, e.OriginKeywords, "keyword appended once")
}

func TestTracker_DropsUnusableResults(t *testing.T) {
	client := &fakeClient{
		name: domain.SourceCrunchbase,
		pages: map[string][][]domain.RawEntity{
			"payments": {{
				cbRaw("", "No reference", 10),
				cbRaw("organization/blank", "", 10),
				cbRaw("organization/good", "Usable", 10),
			}},
		},
	}
	tr := newTestTracker(client)

	res, err := tr.Collect(context.Background(), []string{"payments"}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Entities, 1)
	assert.Contains(t, res.Entities, "organization/good")
}

func TestTracker_EmptyPageStopHeuristic(t *testing.T) {
	// One productive page, then nothing. The walk should stop after three
	// consecutive empty pages instead of running to MaxPages.
	client := &fakeClient{
		name: domain.SourceCrunchbase,
		pages: map[string][][]domain.RawEntity{
			"payments": {{cbRaw("organization/acme", "Payments infra", 100)}},
		},
	}
	tr := newTestTracker(client)

	_, err := tr.Collect(context.Background(), []string{"payments"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, client.calls, "1 productive page + 3 empty pages")
}

func TestTracker_StopsAtPerKeywordTarget(t *testing.T) {
	page := make([]domain.RawEntity, 0, 20)
	for i := 0; i < 20; i++ {
		page = append(page, cbRaw("organization/e"+string(rune('a'+i)), "Desc", int64(i+1)))
	}

	client := &fakeClient{
		name:  domain.SourceCrunchbase,
		pages: map[string][][]domain.RawEntity{"payments": {page, page}},
	}
	tr := newTestTracker(client)

	res, err := tr.Collect(context.Background(), []string{"payments"}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Entities, 20)
	assert.Equal(t, 1, client.calls, "target met on the first page")
}

func TestTracker_CancellationBetweenKeywords(t *testing.T) {
	client := &fakeClient{
		name: domain.SourceCrunchbase,
		pages: map[string][][]domain.RawEntity{
			"payments": {{cbRaw("organization/acme", "Payments infra", 100)}},
			"fintech":  {{cbRaw("organization/beta", "Lending infra", 200)}},
		},
	}
	tr := newTestTracker(client)

	var polls int
	cancelled := func() bool {
		polls++
		// Allow the first keyword, cancel before the second.
		return polls > 1
	}

	res, err := tr.Collect(context.Background(), []string{"payments", "fintech"}, cancelled)
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Len(t, res.Entities, 1)
	assert.Contains(t, res.Entities, "organization/acme")
}

func TestTracker_FailedKeywordIsSkippedNotFatal(t *testing.T) {
	client := &fakeClient{
		name: domain.SourceCrunchbase,
		errs: map[string]error{"fintech": apperrors.ErrSessionUnavailable},
		pages: map[string][][]domain.RawEntity{
			"payments": {{cbRaw("organization/acme", "Payments infra", 100)}},
		},
	}
	tr := newTestTracker(client)

	res, err := tr.Collect(context.Background(), []string{"fintech", "payments"}, nil)
	require.NoError(t, err, "one unavailable keyword must not fail the walk")

	assert.Equal(t, []string{"fintech"}, res.SkippedKeywords)
	assert.Len(t, res.Entities, 1, "remaining keywords still collect")
	assert.Contains(t, res.Entities, "organization/acme")
}

func TestTracker_DeadContextAbortsCollection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{
		name: domain.SourceCrunchbase,
		errs: map[string]error{"fintech": ctx.Err()},
	}
	tr := newTestTracker(client)

	_, err := tr.Collect(ctx, []string{"fintech", "payments"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, client.calls, "no further keywords after the context dies")
}

func TestTracker_NoKeywords(t *testing.T) {
	tr := newTestTracker()

	_, err := tr.Collect(context.Background(), nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrNoKeywords)
}
