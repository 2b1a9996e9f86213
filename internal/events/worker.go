package events

import (
	"context"
	"log/slog"

	"admission/internal/platform/metrics"
)

// Sink is where events end up.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// Worker consumes events from a channel and hands them to a sink. Sink
// failures are logged and the event is skipped.
type Worker struct {
	sink    Sink
	inbox   <-chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger, metrics: m}
}

// Run blocks until ctx is cancelled or the inbox is closed. On cancellation
// it drains already-buffered events with a detached context.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case e, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.deliver(ctx, e)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case e, ok := <-w.inbox:
			if !ok {
				return
			}
			w.deliver(ctx, e)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, e Event) {
	if err := w.sink.Write(ctx, e); err != nil {
		w.count("failed")
		w.logger.ErrorContext(ctx, "failed to deliver event",
			"event_id", e.ID,
			"event_type", e.Type,
			"request_id", e.RequestID,
			"error", err,
		)
		return
	}
	w.count("delivered")
}

func (w *Worker) count(outcome string) {
	if w.metrics != nil {
		w.metrics.EventsPublished.WithLabelValues(outcome).Inc()
	}
}
