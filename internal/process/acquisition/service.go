// Package acquisition orchestrates one job end to end: collect, score, gate
// by cache freshness, fetch missing details, merge.
package acquisition

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kareone/market-navigator/internal/core/domain"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
	"github.com/kareone/market-navigator/internal/platform/observability"
	"github.com/kareone/market-navigator/internal/process/fetchpool"
	"github.com/kareone/market-navigator/internal/process/tracker"
	"github.com/kareone/market-navigator/internal/status"
)

const (
	jobOutcomeSuccess   = "success"
	jobOutcomeCancelled = "cancelled"
	jobOutcomeFailure   = "failure"

	day = 24 * time.Hour
)

// Collector gathers the deduplicated entity set for the keywords.
type Collector interface {
	Collect(ctx context.Context, keywords []string, cancelled tracker.CancelFunc) (tracker.Result, error)
}

// Scorer ranks the collected set against the target description.
type Scorer interface {
	Score(ctx context.Context, entities map[string]*domain.Entity, target string, weights domain.Weights) ([]domain.ScoredEntity, error)
}

// Gate partitions references by cache freshness.
type Gate interface {
	Partition(ctx context.Context, refs []string, window time.Duration) (map[string][]byte, []string, error)
}

// Fetcher resolves stale references through the bounded pool.
type Fetcher interface {
	FetchAll(ctx context.Context, refs []fetchpool.Ref, cancelled fetchpool.CancelFunc) map[string]fetchpool.Outcome
}

// Emitter is the progress bus surface the service uses.
type Emitter interface {
	Emit(ev status.Event)
}

// Defaults fill request fields the caller left at zero.
type Defaults struct {
	NumPerKeyword   int
	TopCount        int
	FreshnessWindow time.Duration
	Weights         domain.Weights
}

// Service runs acquisition jobs.
type Service struct {
	registry  *Registry
	collector Collector
	scorer    Scorer
	gate      Gate
	fetcher   Fetcher
	bus       Emitter
	defaults  Defaults
	logger    *zerolog.Logger
}

// NewService wires the pipeline stages together.
func NewService(registry *Registry, collector Collector, scorer Scorer, gate Gate, fetcher Fetcher, bus Emitter, defaults Defaults, logger *zerolog.Logger) *Service {
	return &Service{
		registry:  registry,
		collector: collector,
		scorer:    scorer,
		gate:      gate,
		fetcher:   fetcher,
		bus:       bus,
		defaults:  defaults,
		logger:    logger,
	}
}

// Cancel flags an active job for cooperative cancellation and reports whether
// the id was active.
func (s *Service) Cancel(requestID string) bool {
	ok := s.registry.Cancel(requestID)

	s.logger.Info().
		Str("request_id", requestID).
		Bool("active", ok).
		Msg("cancellation requested")

	return ok
}

// Run executes one job. Validation failures surface before any I/O; a
// cancellation observed at a stage boundary returns the partial result with
// Cancelled set instead of an error.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	req, weights, window, err := s.prepare(req)
	if err != nil {
		observability.JobsTotal.WithLabelValues(jobOutcomeFailure).Inc()

		return nil, err
	}

	startedAt := time.Now()
	timer := prometheus.NewTimer(observability.JobDuration)
	defer timer.ObserveDuration()

	s.registry.Register(req.RequestID)
	defer s.registry.Remove(req.RequestID)

	res, err := s.run(ctx, req, weights, window)
	if err != nil {
		observability.JobsTotal.WithLabelValues(jobOutcomeFailure).Inc()
		s.emit(req.RequestID, status.StepFailed, status.DetailWarning, err.Error(), nil)

		return nil, err
	}

	res.Metadata.RequestID = req.RequestID
	res.Metadata.SimilarityWeight = weights.Similarity
	res.Metadata.SecondaryWeight = weights.Secondary
	res.Metadata.StartedAt = startedAt
	res.Metadata.DurationMS = time.Since(startedAt).Milliseconds()

	if res.Cancelled {
		observability.JobsTotal.WithLabelValues(jobOutcomeCancelled).Inc()
		s.emit(req.RequestID, status.StepCancelled, status.DetailResult,
			"job cancelled, returning partial results", map[string]interface{}{
				"entities": res.Metadata.EntitiesFound,
			})

		return res, nil
	}

	observability.JobsTotal.WithLabelValues(jobOutcomeSuccess).Inc()
	s.emit(req.RequestID, status.StepDone, status.DetailResult, "job finished",
		map[string]interface{}{
			"entities":  res.Metadata.EntitiesFound,
			"top_count": len(res.TopEntities),
		})

	return res, nil
}

// prepare fills defaults and validates everything that can fail without I/O.
func (s *Service) prepare(req Request) (Request, domain.Weights, time.Duration, error) {
	if len(req.Keywords) == 0 {
		return req, domain.Weights{}, 0, apperrors.ErrNoKeywords
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	if req.NumPerKeyword <= 0 {
		req.NumPerKeyword = s.defaults.NumPerKeyword
	}

	if req.TopCount <= 0 {
		req.TopCount = s.defaults.TopCount
	}

	weights := domain.Weights{Similarity: req.SimilarityWeight, Secondary: req.SecondaryWeight}
	if weights.Similarity == 0 && weights.Secondary == 0 {
		weights = s.defaults.Weights
	}

	if !weights.Validate() {
		return req, weights, 0, fmt.Errorf("%w: similarity=%v secondary=%v",
			apperrors.ErrInvalidWeights, weights.Similarity, weights.Secondary)
	}

	window := s.defaults.FreshnessWindow
	if req.FreshnessDays > 0 {
		window = time.Duration(req.FreshnessDays) * day
	} else if req.FreshnessDays < 0 {
		window = 0
	}

	return req, weights, window, nil
}

func (s *Service) run(ctx context.Context, req Request, weights domain.Weights, window time.Duration) (*Result, error) {
	cancelled := func() bool { return s.registry.IsCancelled(req.RequestID) }

	s.emit(req.RequestID, status.StepCollect, status.DetailProgress,
		"collecting entities", map[string]interface{}{"keywords": len(req.Keywords)})

	collected, err := s.collector.Collect(ctx, req.Keywords, cancelled)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	res := &Result{Cancelled: collected.Cancelled}
	res.Metadata.EntitiesFound = len(collected.Entities)
	res.Metadata.SkippedKeywords = collected.SkippedKeywords

	if len(collected.SkippedKeywords) > 0 {
		s.emit(req.RequestID, status.StepCollect, status.DetailWarning,
			"some keywords failed and were skipped", map[string]interface{}{
				"skipped_keywords": collected.SkippedKeywords,
			})
	}

	s.emit(req.RequestID, status.StepScore, status.DetailProgress,
		"scoring entities", map[string]interface{}{"entities": len(collected.Entities)})

	// A cancelled collection still gets ranked so the caller sees an ordered
	// partial set.
	scored, err := s.scorer.Score(ctx, collected.Entities, req.TargetDescription, weights)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	res.AllEntities = scored

	if res.Cancelled || len(scored) == 0 {
		return res, nil
	}

	top := scored
	if len(top) > req.TopCount {
		top = top[:req.TopCount]
	}

	refs := make([]string, len(top))
	for i, e := range top {
		refs[i] = e.Reference
	}

	fresh, stale, err := s.gate.Partition(ctx, refs, window)
	if err != nil {
		return nil, fmt.Errorf("cache gate: %w", err)
	}

	res.Metadata.CacheHits = len(fresh)
	res.Metadata.CacheMisses = len(stale)

	s.emit(req.RequestID, status.StepCacheGate, status.DetailProgress,
		"cache partitioned", map[string]interface{}{
			"fresh": len(fresh),
			"stale": len(stale),
		})

	outcomes := s.fetchStale(ctx, collected.Entities, stale, cancelled)

	s.emit(req.RequestID, status.StepFetch, status.DetailProgress,
		"details fetched", map[string]interface{}{"fetched": len(outcomes)})

	res.TopEntities = make([]TopEntity, len(top))

	for i, e := range top {
		entry := TopEntity{ScoredEntity: e}

		if payload, ok := fresh[e.Reference]; ok {
			entry.Payload = payload
		} else if out, ok := outcomes[e.Reference]; ok {
			entry.Payload = out.Payload

			if out.Err != nil {
				entry.Error = out.Err.Error()
				res.Metadata.FetchFailures++

				if apperrors.Is(out.Err, apperrors.ErrCancelled) {
					res.Cancelled = true
				}
			}
		}

		res.TopEntities[i] = entry
	}

	return res, nil
}

func (s *Service) fetchStale(ctx context.Context, entities map[string]*domain.Entity, stale []string, cancelled func() bool) map[string]fetchpool.Outcome {
	if len(stale) == 0 {
		return nil
	}

	refs := make([]fetchpool.Ref, 0, len(stale))

	for _, ref := range stale {
		e, ok := entities[ref]
		if !ok {
			continue
		}

		refs = append(refs, fetchpool.Ref{Reference: ref, Source: e.Source})
	}

	return s.fetcher.FetchAll(ctx, refs, fetchpool.CancelFunc(cancelled))
}

func (s *Service) emit(requestID, step, detailType, message string, data map[string]interface{}) {
	if s.bus == nil {
		return
	}

	s.bus.Emit(status.Event{
		RequestID:  requestID,
		Step:       step,
		DetailType: detailType,
		Message:    message,
		Data:       data,
	})
}
