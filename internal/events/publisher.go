package events

import (
	"context"
	"log/slog"

	"admission/internal/platform/metrics"
	"admission/pkg/requestcontext"
)

// Publisher queues events for the Worker. Emit never blocks on the sink; it
// only waits for buffer space while ctx is live.
type Publisher struct {
	inbox   chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type PublisherOption func(*Publisher)

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

func NewPublisher(buffer int, opts ...PublisherOption) *Publisher {
	p := &Publisher{inbox: make(chan Event, buffer), logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inbox is the receive side for the Worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Emit enriches e with request metadata from ctx and enqueues it.
func (p *Publisher) Emit(ctx context.Context, e Event) error {
	e.fill(requestcontext.Now(ctx))
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	if e.ClientIP == "" {
		e.ClientIP = requestcontext.ClientIP(ctx)
	}
	if e.UserAgent == "" {
		e.UserAgent = requestcontext.UserAgent(ctx)
	}
	select {
	case p.inbox <- e:
		return nil
	case <-ctx.Done():
		p.count("dropped")
		p.logger.WarnContext(ctx, "event dropped",
			"event_type", e.Type,
			"request_id", e.RequestID,
			"error", ctx.Err(),
		)
		return ctx.Err()
	}
}

// Close stops accepting events. The Worker drains what is buffered.
func (p *Publisher) Close() {
	close(p.inbox)
}

func (p *Publisher) count(outcome string) {
	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(outcome).Inc()
	}
}
