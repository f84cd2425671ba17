// Package fetchpool resolves detail payloads for stale references through a
// bounded pool of workers, each holding its own authenticated session.
package fetchpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kareone/market-navigator/internal/core/domain"
	apperrors "github.com/kareone/market-navigator/internal/core/errors"
	"github.com/kareone/market-navigator/internal/platform/observability"
	"github.com/kareone/market-navigator/internal/platform/retry"
	"github.com/kareone/market-navigator/internal/session"
	"github.com/kareone/market-navigator/internal/sources"
)

const (
	fetchResultSuccess = "success"
	fetchResultFailure = "failure"
)

// Ref is one reference to resolve, routed to a platform fetcher by Source.
type Ref struct {
	Reference string
	Source    domain.Source
}

// Outcome is the terminal state of one submitted reference. Exactly one of
// Payload and Err is meaningful.
type Outcome struct {
	Payload []byte
	Err     error
}

// RecordPutter persists fetched payloads before they are returned.
type RecordPutter interface {
	PutCacheRecord(ctx context.Context, reference string, payload []byte, fetchedAt time.Time) error
}

// CancelFunc reports whether the owning job was cancelled. Polled between
// chunks and between references.
type CancelFunc func() bool

// Config bounds the pool.
type Config struct {
	// PoolSize caps concurrently running workers.
	PoolSize int

	// ChunkSize caps references handed to one worker.
	ChunkSize int

	// LoginRetry bounds each worker's own authentication attempts.
	LoginRetry retry.Config
}

// Pool fans stale references out to chunk workers. Each worker authenticates
// an independent session, works its chunk sequentially, and records per-ref
// outcomes; one bad reference never poisons its siblings.
type Pool struct {
	factory  session.Factory
	fetchers map[domain.Source]sources.DetailFetcher
	store    RecordPutter
	cfg      Config
	logger   *zerolog.Logger
	now      func() time.Time
}

// New creates a pool. The factory mints a fresh session per worker so detail
// fetching never touches the shared gateway session.
func New(factory session.Factory, fetchers map[domain.Source]sources.DetailFetcher, store RecordPutter, cfg Config, logger *zerolog.Logger) *Pool {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1
	}

	if cfg.LoginRetry.MaxAttempts <= 0 {
		cfg.LoginRetry = retry.DefaultConfig()
	}

	return &Pool{
		factory:  factory,
		fetchers: fetchers,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// FetchAll resolves every reference and returns an outcome per reference.
// Every submitted reference appears in the result exactly once: as a payload,
// a fetch error, a worker login failure, or a cancellation marker.
func (p *Pool) FetchAll(ctx context.Context, refs []Ref, cancelled CancelFunc) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(refs))
	if len(refs) == 0 {
		return outcomes
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, p.cfg.PoolSize)
	)

	record := func(chunk map[string]Outcome) {
		mu.Lock()
		defer mu.Unlock()

		for ref, out := range chunk {
			outcomes[ref] = out
		}
	}

	for _, chunk := range chunkRefs(refs, p.cfg.ChunkSize) {
		if cancelled != nil && cancelled() {
			record(markAll(chunk, apperrors.ErrCancelled))
			continue
		}

		wg.Add(1)

		go func(chunk []Ref) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			observability.FetcherWorkersActive.Inc()
			defer observability.FetcherWorkersActive.Dec()

			record(p.workChunk(ctx, chunk, cancelled))
		}(chunk)
	}

	wg.Wait()

	return outcomes
}

// workChunk authenticates one session and fetches the chunk sequentially.
func (p *Pool) workChunk(ctx context.Context, chunk []Ref, cancelled CancelFunc) map[string]Outcome {
	s, err := p.newAuthenticatedSession(ctx)
	if err != nil {
		p.logger.Warn().Err(err).
			Int("chunk_size", len(chunk)).
			Msg("worker login failed, failing chunk")

		return markAll(chunk, fmt.Errorf("%w: %v", apperrors.ErrWorkerLoginFailed, err))
	}
	defer s.Close()

	out := make(map[string]Outcome, len(chunk))

	for i, ref := range chunk {
		if cancelled != nil && cancelled() {
			for _, rest := range chunk[i:] {
				out[rest.Reference] = Outcome{Err: apperrors.ErrCancelled}
			}

			return out
		}

		out[ref.Reference] = p.fetchOne(ctx, s, ref)
	}

	return out
}

func (p *Pool) newAuthenticatedSession(ctx context.Context) (session.Session, error) {
	s, err := p.factory.New()
	if err != nil {
		return nil, fmt.Errorf("create worker session: %w", err)
	}

	err = retry.Do(ctx, p.cfg.LoginRetry, func(ctx context.Context) error {
		return s.Login(ctx)
	})
	if err != nil {
		s.Close()

		return nil, fmt.Errorf("worker login: %w", err)
	}

	return s, nil
}

// fetchOne resolves a single reference and persists the payload before it is
// returned, so a later job can hit the cache even if this one dies mid-merge.
func (p *Pool) fetchOne(ctx context.Context, s session.Session, ref Ref) Outcome {
	fetcher, ok := p.fetchers[ref.Source]
	if !ok {
		return Outcome{Err: fmt.Errorf("%w: no fetcher for source %q",
			apperrors.ErrDetailFetchFailed, ref.Source)}
	}

	timer := prometheus.NewTimer(observability.DetailFetchDuration)
	payload, err := fetcher.FetchDetail(ctx, s, ref.Reference)
	timer.ObserveDuration()

	if err != nil {
		observability.DetailFetchesTotal.WithLabelValues(fetchResultFailure).Inc()
		p.logger.Warn().Err(err).
			Str("reference", ref.Reference).
			Str("source", string(ref.Source)).
			Msg("detail fetch failed")

		return Outcome{Err: fmt.Errorf("%w: %v", apperrors.ErrDetailFetchFailed, err)}
	}

	if err := p.store.PutCacheRecord(ctx, ref.Reference, payload, p.now()); err != nil {
		p.logger.Warn().Err(err).
			Str("reference", ref.Reference).
			Msg("cache write failed, returning payload anyway")
	}

	observability.DetailFetchesTotal.WithLabelValues(fetchResultSuccess).Inc()

	return Outcome{Payload: payload}
}

func chunkRefs(refs []Ref, size int) [][]Ref {
	chunks := make([][]Ref, 0, (len(refs)+size-1)/size)

	for start := 0; start < len(refs); start += size {
		end := start + size
		if end > len(refs) {
			end = len(refs)
		}

		chunks = append(chunks, refs[start:end])
	}

	return chunks
}

func markAll(chunk []Ref, err error) map[string]Outcome {
	out := make(map[string]Outcome, len(chunk))
	for _, ref := range chunk {
		out[ref.Reference] = Outcome{Err: err}
	}

	return out
}
