package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	apperrors "github.com/kareone/market-navigator/internal/core/errors"
	"github.com/kareone/market-navigator/internal/platform/observability"
	"github.com/kareone/market-navigator/internal/platform/retry"
)

const (
	reauthResultSuccess = "success"
	reauthResultFailure = "failure"
)

// Operation is a unit of work needing the authenticated shared session.
type Operation func(ctx context.Context, s Session) error

// GatewayConfig configures the gateway's re-authentication behavior.
type GatewayConfig struct {
	LoginRetry retry.Config
}

// Gateway owns the one shared authenticated session and executes all
// submitted operations strictly one at a time. Concurrent callers are
// flattened into FIFO order; the underlying session's navigation state
// (cookies, current page) is never interleaved.
type Gateway struct {
	session    Session
	loginRetry retry.Config
	logger     *zerolog.Logger

	requests chan *request
	stopped  chan struct{}
	depth    atomic.Int64
}

type request struct {
	ctx  context.Context
	op   Operation
	done chan error
}

// NewGateway creates a gateway around the shared session. Run must be
// called before operations are submitted.
func NewGateway(s Session, cfg GatewayConfig, logger *zerolog.Logger) *Gateway {
	if cfg.LoginRetry.MaxAttempts <= 0 {
		cfg.LoginRetry = retry.DefaultConfig()
	}

	return &Gateway{
		session:    s,
		loginRetry: cfg.LoginRetry,
		logger:     logger,
		requests:   make(chan *request),
		stopped:    make(chan struct{}),
	}
}

// Run executes submitted operations until the context is canceled.
// It is the only goroutine that touches the shared session.
func (g *Gateway) Run(ctx context.Context) error {
	defer close(g.stopped)
	defer g.session.Close()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("session gateway: %w", ctx.Err())
		case req := <-g.requests:
			g.depth.Add(-1)
			observability.SessionQueueDepth.Set(float64(g.depth.Load()))

			req.done <- g.execute(req.ctx, req.op)
		}
	}
}

// Do submits an operation and blocks until it has been executed by the
// dispatcher or the caller's context is canceled.
func (g *Gateway) Do(ctx context.Context, op Operation) error {
	req := &request{ctx: ctx, op: op, done: make(chan error, 1)}

	g.depth.Add(1)
	observability.SessionQueueDepth.Set(float64(g.depth.Load()))

	select {
	case g.requests <- req:
	case <-g.stopped:
		g.depth.Add(-1)
		return apperrors.ErrGatewayClosed
	case <-ctx.Done():
		g.depth.Add(-1)
		return fmt.Errorf("submit operation: %w", ctx.Err())
	}

	select {
	case err := <-req.done:
		return err
	case <-g.stopped:
		return apperrors.ErrGatewayClosed
	}
}

// QueueDepth returns the number of operations waiting for the dispatcher,
// for backpressure signaling.
func (g *Gateway) QueueDepth() int64 {
	return g.depth.Load()
}

// execute runs one operation: verify login first, re-authenticating with
// bounded attempts when the session is invalid; if the operation itself
// trips on an expired session, re-authenticate and retry it exactly once.
func (g *Gateway) execute(ctx context.Context, op Operation) error {
	observability.SessionActiveOps.Set(1)
	defer observability.SessionActiveOps.Set(0)

	if err := g.ensureAuthenticated(ctx); err != nil {
		return err
	}

	err := op(ctx, g.session)
	if err == nil || !apperrors.Is(err, apperrors.ErrSessionExpired) {
		return err
	}

	g.logger.Warn().Msg("session expired mid-operation, re-authenticating")

	if err := g.reauthenticate(ctx); err != nil {
		return err
	}

	// One retry after re-authentication; further retry policy belongs to
	// the caller.
	return op(ctx, g.session)
}

func (g *Gateway) ensureAuthenticated(ctx context.Context) error {
	if g.session.Alive(ctx) {
		return nil
	}

	return g.reauthenticate(ctx)
}

func (g *Gateway) reauthenticate(ctx context.Context) error {
	err := retry.Do(ctx, g.loginRetry, func(ctx context.Context) error {
		return g.session.Login(ctx)
	})
	if err != nil {
		observability.SessionReauthsTotal.WithLabelValues(reauthResultFailure).Inc()

		return fmt.Errorf("%w: %v", apperrors.ErrSessionUnavailable, err)
	}

	observability.SessionReauthsTotal.WithLabelValues(reauthResultSuccess).Inc()

	return nil
}
