package audit

import (
	"context"
	"log/slog"
)

// AsyncSink queues events for a Worker so slow sinks (Kafka) stay off the
// request path. Events are dropped with a warning when the queue is full.
type AsyncSink struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewAsyncSink(size int, logger *slog.Logger) *AsyncSink {
	return &AsyncSink{inbox: make(chan Event, size), logger: logger}
}

func (a *AsyncSink) Append(ctx context.Context, event Event) error {
	select {
	case a.inbox <- event:
	default:
		a.logger.WarnContext(ctx, "audit queue full, dropping event",
			"action", string(event.Action),
			"entity_id", event.EntityID,
		)
	}
	return nil
}

// Inbox exposes the queue for a Worker.
func (a *AsyncSink) Inbox() <-chan Event {
	return a.inbox
}

// Worker consumes audit events from a channel and forwards them to a sink.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run forwards events until ctx is cancelled, then drains what is already
// queued. Sink failures are logged, not fatal.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.forward(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.forward(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) forward(ctx context.Context, event Event) {
	if err := w.sink.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to forward audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}
