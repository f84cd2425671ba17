// Package status provides best-effort progress emission for acquisition
// jobs. Delivery is fire-and-forget: a full buffer or a failing sink is
// logged to the dead-letter log and swallowed, never propagated to the
// pipeline.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kareone/market-navigator/internal/platform/observability"
)

// Step keys emitted by the pipeline.
const (
	StepCollect   = "collect"
	StepScore     = "score"
	StepCacheGate = "cache_gate"
	StepFetch     = "fetch"
	StepDone      = "done"
	StepCancelled = "cancelled"
	StepFailed    = "failed"
)

// Detail types.
const (
	DetailProgress = "progress"
	DetailWarning  = "warning"
	DetailResult   = "result"
)

const (
	defaultBufferSize  = 64
	sinkDeliverTimeout = 5 * time.Second
)

// Event is one progress update for a job.
type Event struct {
	RequestID  string
	Step       string
	DetailType string
	Message    string
	Data       map[string]interface{}
	At         time.Time
}

// Sink receives events. Implementations must tolerate being called from a
// single dispatcher goroutine.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// Bus fans events out to its sinks through a bounded queue.
type Bus struct {
	events chan Event
	sinks  []Sink
	logger *zerolog.Logger
}

// NewBus creates a bus with the given buffer size and sinks.
func NewBus(bufferSize int, logger *zerolog.Logger, sinks ...Sink) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Bus{
		events: make(chan Event, bufferSize),
		sinks:  sinks,
		logger: logger,
	}
}

// Run dispatches events until the context is canceled. Events still queued
// at shutdown are dropped; the bus never outlives the jobs that fed it.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("status bus: %w", ctx.Err())
		case ev := <-b.events:
			b.dispatch(ctx, ev)
		}
	}
}

// Emit queues an event without blocking. When the buffer is full the event
// goes to the dead-letter log instead.
func (b *Bus) Emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	select {
	case b.events <- ev:
	default:
		observability.StatusEventsDropped.Inc()
		b.logger.Warn().
			Str("request_id", ev.RequestID).
			Str("step", ev.Step).
			Str("message", ev.Message).
			Msg("status bus full, event dropped")
	}
}

func (b *Bus) dispatch(ctx context.Context, ev Event) {
	for _, sink := range b.sinks {
		deliverCtx, cancel := context.WithTimeout(ctx, sinkDeliverTimeout)

		if err := sink.Deliver(deliverCtx, ev); err != nil {
			b.logger.Warn().Err(err).
				Str("request_id", ev.RequestID).
				Str("step", ev.Step).
				Msg("status delivery failed")
		}

		cancel()
	}
}

// LoggerSink writes events to the service log.
type LoggerSink struct {
	logger *zerolog.Logger
}

// NewLoggerSink creates a sink backed by the given logger.
func NewLoggerSink(logger *zerolog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Deliver logs the event.
func (s *LoggerSink) Deliver(_ context.Context, ev Event) error {
	s.logger.Info().
		Str("request_id", ev.RequestID).
		Str("step", ev.Step).
		Str("detail_type", ev.DetailType).
		Interface("data", ev.Data).
		Msg(ev.Message)

	return nil
}
