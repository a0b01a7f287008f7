package asset

import "context"

// Store persists asset reference metadata. Document bytes live in the blob
// backend, never here.
//
// Error contract: FindByID returns sentinel.ErrNotFound (wrapped) for unknown
// references; Save is idempotent for an existing reference ID because
// identical uploads dedupe to the same content hash.
type Store interface {
	Save(ctx context.Context, ref *Reference) error
	FindByID(ctx context.Context, referenceID string) (*Reference, error)
}
