package audit

import "context"

// Store is an append-only audit sink with a per-principal read path for the
// admin trail view.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByPrincipal(ctx context.Context, principalID string) ([]Event, error)
}
