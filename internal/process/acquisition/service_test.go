package acquisition

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kareone/market-navigator/internal/core/domain"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
	"github.com/kareone/market-navigator/internal/process/fetchpool"
	"github.com/kareone/market-navigator/internal/process/tracker"
	"github.com/kareone/market-navigator/internal/status"
)

type fakeCollector struct {
	result tracker.Result
	err    error
	calls  int
}

func (c *fakeCollector) Collect(_ context.Context, _ []string, _ tracker.CancelFunc) (tracker.Result, error) {
	c.calls++

	return c.result, c.err
}

type fakeScorer struct {
	scored []domain.ScoredEntity
	err    error
	calls  int
}

func (s *fakeScorer) Score(_ context.Context, _ map[string]*domain.Entity, _ string, _ domain.Weights) ([]domain.ScoredEntity, error) {
	s.calls++

	return s.scored, s.err
}

type fakeGate struct {
	fresh map[string][]byte
	stale []string
	calls int
}

func (g *fakeGate) Partition(_ context.Context, _ []string, _ time.Duration) (map[string][]byte, []string, error) {
	g.calls++

	return g.fresh, g.stale, nil
}

type fakeFetcher struct {
	outcomes map[string]fetchpool.Outcome
	gotRefs  []fetchpool.Ref
	calls    int
}

func (f *fakeFetcher) FetchAll(_ context.Context, refs []fetchpool.Ref, _ fetchpool.CancelFunc) map[string]fetchpool.Outcome {
	f.calls++
	f.gotRefs = refs

	return f.outcomes
}

type fakeBus struct {
	events []status.Event
}

func (b *fakeBus) Emit(ev status.Event) { b.events = append(b.events, ev) }

func (b *fakeBus) steps() []string {
	steps := make([]string, len(b.events))
	for i, ev := range b.events {
		steps[i] = ev.Step
	}

	return steps
}

func testDefaults() Defaults {
	return Defaults{
		NumPerKeyword:   20,
		TopCount:        10,
		FreshnessWindow: 7 * day,
		Weights:         domain.Weights{Similarity: 0.75, Secondary: 0.25},
	}
}

func scoredSet() (map[string]*domain.Entity, []domain.ScoredEntity) {
	entities := map[string]*domain.Entity{
		"acme.io": {Reference: "acme.io", Source: domain.SourceTracxn, Description: "Payments"},
		"beta.io": {Reference: "beta.io", Source: domain.SourceTracxn, Description: "Lending"},
	}
	scored := []domain.ScoredEntity{
		{Entity: *entities["acme.io"], CombinedScore: 0.9, Rank: 1},
		{Entity: *entities["beta.io"], CombinedScore: 0.5, Rank: 2},
	}

	return entities, scored
}

func TestService_RunMergesFreshAndFetched(t *testing.T) {
	entities, scored := scoredSet()

	collector := &fakeCollector{result: tracker.Result{Entities: entities}}
	scorer := &fakeScorer{scored: scored}
	gate := &fakeGate{
		fresh: map[string][]byte{"acme.io": []byte(`{"cached":true}`)},
		stale: []string{"beta.io"},
	}
	fetcher := &fakeFetcher{outcomes: map[string]fetchpool.Outcome{
		"beta.io": {Payload: []byte(`{"fetched":true}`)},
	}}
	bus := &fakeBus{}
	logger := zerolog.Nop()

	svc := NewService(NewRegistry(), collector, scorer, gate, fetcher, bus, testDefaults(), &logger)

	res, err := svc.Run(context.Background(), Request{
		RequestID:         "job-1",
		Keywords:          []string{"payments"},
		TargetDescription: "payment infrastructure",
	})
	require.NoError(t, err)

	assert.False(t, res.Cancelled)
	assert.Len(t, res.AllEntities, 2)
	require.Len(t, res.TopEntities, 2)

	assert.Equal(t, []byte(`{"cached":true}`), res.TopEntities[0].Payload)
	assert.Equal(t, []byte(`{"fetched":true}`), res.TopEntities[1].Payload)

	assert.Equal(t, 1, res.Metadata.CacheHits)
	assert.Equal(t, 1, res.Metadata.CacheMisses)
	assert.Equal(t, 0, res.Metadata.FetchFailures)
	assert.Equal(t, 2, res.Metadata.EntitiesFound)
	assert.Equal(t, "job-1", res.Metadata.RequestID)

	require.Len(t, fetcher.gotRefs, 1)
	assert.Equal(t, domain.SourceTracxn, fetcher.gotRefs[0].Source)

	assert.Equal(t,
		[]string{status.StepCollect, status.StepScore, status.StepCacheGate, status.StepFetch, status.StepDone},
		bus.steps())
}

func TestService_FetchFailureBecomesErrorMarker(t *testing.T) {
	entities, scored := scoredSet()

	collector := &fakeCollector{result: tracker.Result{Entities: entities}}
	scorer := &fakeScorer{scored: scored}
	gate := &fakeGate{stale: []string{"acme.io", "beta.io"}}
	fetcher := &fakeFetcher{outcomes: map[string]fetchpool.Outcome{
		"acme.io": {Payload: []byte(`{}`)},
		"beta.io": {Err: apperrors.ErrDetailFetchFailed},
	}}
	logger := zerolog.Nop()

	svc := NewService(NewRegistry(), collector, scorer, gate, fetcher, &fakeBus{}, testDefaults(), &logger)

	res, err := svc.Run(context.Background(), Request{
		Keywords:          []string{"payments"},
		TargetDescription: "target",
	})
	require.NoError(t, err)

	assert.Empty(t, res.TopEntities[0].Error)
	assert.NotEmpty(t, res.TopEntities[1].Error)
	assert.Equal(t, 1, res.Metadata.FetchFailures)
}

func TestService_InvalidWeightsBeforeAnyStage(t *testing.T) {
	collector := &fakeCollector{}
	logger := zerolog.Nop()

	svc := NewService(NewRegistry(), collector, &fakeScorer{}, &fakeGate{}, &fakeFetcher{}, &fakeBus{}, testDefaults(), &logger)

	_, err := svc.Run(context.Background(), Request{
		Keywords:         []string{"payments"},
		SimilarityWeight: 0.9,
		SecondaryWeight:  0.9,
	})

	require.ErrorIs(t, err, apperrors.ErrInvalidWeights)
	assert.Zero(t, collector.calls)
}

func TestService_NoKeywords(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewService(NewRegistry(), &fakeCollector{}, &fakeScorer{}, &fakeGate{}, &fakeFetcher{}, &fakeBus{}, testDefaults(), &logger)

	_, err := svc.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, apperrors.ErrNoKeywords)
}

func TestService_CancelledCollectionReturnsRankedPartial(t *testing.T) {
	entities, scored := scoredSet()

	collector := &fakeCollector{result: tracker.Result{Entities: entities, Cancelled: true}}
	scorer := &fakeScorer{scored: scored}
	gate := &fakeGate{}
	fetcher := &fakeFetcher{}
	bus := &fakeBus{}
	logger := zerolog.Nop()

	svc := NewService(NewRegistry(), collector, scorer, gate, fetcher, bus, testDefaults(), &logger)

	res, err := svc.Run(context.Background(), Request{
		RequestID: "job-2",
		Keywords:  []string{"payments", "lending"},
	})
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Len(t, res.AllEntities, 2, "partial set is still ranked")
	assert.Empty(t, res.TopEntities, "no detail fetching after cancellation")
	assert.Zero(t, gate.calls)
	assert.Zero(t, fetcher.calls)

	assert.Equal(t, status.StepCancelled, bus.events[len(bus.events)-1].Step)
}

func TestService_SkippedKeywordsSurfaceInMetadata(t *testing.T) {
	entities, scored := scoredSet()

	collector := &fakeCollector{result: tracker.Result{
		Entities:        entities,
		SkippedKeywords: []string{"fintech"},
	}}
	scorer := &fakeScorer{scored: scored}
	gate := &fakeGate{fresh: map[string][]byte{"acme.io": []byte(`{}`), "beta.io": []byte(`{}`)}}
	bus := &fakeBus{}
	logger := zerolog.Nop()

	svc := NewService(NewRegistry(), collector, scorer, gate, &fakeFetcher{}, bus, testDefaults(), &logger)

	res, err := svc.Run(context.Background(), Request{
		Keywords:          []string{"fintech", "payments"},
		TargetDescription: "payment infrastructure",
	})
	require.NoError(t, err, "a skipped keyword must not fail the job")

	assert.Equal(t, []string{"fintech"}, res.Metadata.SkippedKeywords)
	assert.Len(t, res.AllEntities, 2, "remaining keywords are still ranked")

	var warned bool
	for _, ev := range bus.events {
		if ev.Step == status.StepCollect && ev.DetailType == status.DetailWarning {
			warned = true
		}
	}
	assert.True(t, warned, "skipped keywords produce a warning event")
}

func TestService_MetadataDurationMarshalsAsMilliseconds(t *testing.T) {
	meta := Metadata{RequestID: "job-4", DurationMS: 1500}

	raw, err := json.Marshal(meta)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, float64(1500), decoded["duration_ms"])
	assert.NotContains(t, decoded, "duration")
}

func TestService_GeneratesRequestID(t *testing.T) {
	entities, scored := scoredSet()

	collector := &fakeCollector{result: tracker.Result{Entities: entities}}
	scorer := &fakeScorer{scored: scored}
	gate := &fakeGate{fresh: map[string][]byte{"acme.io": []byte(`{}`), "beta.io": []byte(`{}`)}}
	logger := zerolog.Nop()

	svc := NewService(NewRegistry(), collector, scorer, gate, &fakeFetcher{}, &fakeBus{}, testDefaults(), &logger)

	res, err := svc.Run(context.Background(), Request{Keywords: []string{"payments"}})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Metadata.RequestID)
}

func TestService_CancelReportsActive(t *testing.T) {
	logger := zerolog.Nop()
	registry := NewRegistry()
	svc := NewService(registry, &fakeCollector{}, &fakeScorer{}, &fakeGate{}, &fakeFetcher{}, &fakeBus{}, testDefaults(), &logger)

	assert.False(t, svc.Cancel("ghost"), "unknown job")

	registry.Register("job-3")
	assert.True(t, svc.Cancel("job-3"))
	assert.True(t, registry.IsCancelled("job-3"))
}
