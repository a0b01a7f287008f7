package principal

import "context"

// Store persists principal records.
//
// Error contract: Find returns sentinel.ErrNotFound (wrapped) for unknown
// principals; Save upserts by principal ID.
type Store interface {
	Find(ctx context.Context, principalID string) (*Record, error)
	Save(ctx context.Context, record *Record) error
}
