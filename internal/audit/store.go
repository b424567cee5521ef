package audit

import "context"

// Store persists audit events. Append-only: there is no update or delete.
// ListByLead exists for data-portability exports and tests.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByLead(ctx context.Context, leadID string) ([]Event, error)
}
