package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lead-enrichment/pkg/platform/middleware/metadata"
)

// Publisher emits audit events. Compliance-category events are fail-closed:
// if the store append fails, the error propagates and the calling operation
// must fail. Operations-category events are logged and dropped on failure so
// routine telemetry never blocks an enrichment run.
type Publisher struct {
	store  Store
	stream chan<- Event
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithStream tees every persisted event onto a channel, typically consumed by
// the Kafka worker. Sends never block; a full channel drops the tee (the
// store remains the durable record).
func WithStream(stream chan<- Event) Option {
	return func(p *Publisher) { p.stream = stream }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records an audit event, stamping ID, category, timestamp, and actor
// metadata from the context.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = event.Type.Category()
	if event.Actor == (metadata.Actor{}) {
		event.Actor = metadata.GetActor(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		if event.Category == CategoryCompliance {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "compliance audit failed",
					"event_type", event.Type,
					"lead_id", event.LeadID,
					"error", err,
				)
			}
			return fmt.Errorf("compliance audit persistence failed: %w", err)
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit append failed, dropping event",
				"event_type", event.Type,
				"lead_id", event.LeadID,
				"error", err,
			)
		}
		return nil
	}

	if p.stream != nil {
		select {
		case p.stream <- event:
		default:
		}
	}
	return nil
}

// List returns the audit trail for a lead, oldest first.
func (p *Publisher) List(ctx context.Context, leadID string) ([]Event, error) {
	return p.store.ListByLead(ctx, leadID)
}
