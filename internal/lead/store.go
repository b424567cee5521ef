package lead

import "context"

// Store is the contract the enrichment core requires from the CRM's lead
// persistence layer. Implementations must return sentinel.ErrNotFound for
// unknown leads.
type Store interface {
	GetByID(ctx context.Context, id string) (*Lead, error)
	Update(ctx context.Context, id string, patch Patch) (*Lead, error)
}
