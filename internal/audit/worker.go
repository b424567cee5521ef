package audit

import (
	"context"
	"log/slog"
)

// EventSink is the streaming half of the audit path; satisfied by *Sink.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the publisher's event stream into a sink. Publishing errors
// are logged and the event is dropped from the stream; the outbox store still
// holds it, so a replay job can recover.
type Worker struct {
	sink   EventSink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink EventSink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.WarnContext(ctx, "audit stream publish failed",
						"event_type", event.Type,
						"lead_id", event.LeadID,
						"error", err,
					)
				}
			}
		}
	}
}
