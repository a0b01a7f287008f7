package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Store persists parcels and their transfer history.
//
// Transfer must be atomic: the owner swap and the history append either both
// happen or neither does, and the swap only succeeds while the parcel's owner
// still matches expectedOwner (sentinel.ErrStaleOwner otherwise).
type Store interface {
	// Create inserts a new parcel. Returns sentinel.ErrConflict when the
	// parcel ID already exists.
	Create(ctx context.Context, parcel *Parcel) error

	// Find returns a parcel by ID, or sentinel.ErrNotFound.
	Find(ctx context.Context, parcelID uuid.UUID) (*Parcel, error)

	// Transfer compare-and-sets the parcel owner and appends the history
	// entry in the same atomic step. Returns sentinel.ErrNotFound when the
	// parcel does not exist and sentinel.ErrStaleOwner when the current
	// owner no longer matches expectedOwner.
	Transfer(ctx context.Context, parcelID uuid.UUID, expectedOwner string, newOwner string, newOwnerName string, price int64, entry HistoryEntry) error

	// History returns all history entries for a parcel ordered by approval
	// time ascending, transfer request ID as tie-break. Empty slice for a
	// parcel with no transfers.
	History(ctx context.Context, parcelID uuid.UUID) ([]HistoryEntry, error)

	// ParcelIDsByOwner returns the IDs of all parcels currently owned by
	// the principal, ordered by registration time ascending.
	ParcelIDsByOwner(ctx context.Context, principalID string) ([]uuid.UUID, error)
}
