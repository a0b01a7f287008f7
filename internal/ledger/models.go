package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Parcel is the authoritative record of one unit of land.
//
// Invariants:
//   - exactly one owner at any time
//   - ParcelID is ledger-generated and immutable
//   - AreaSqFt > 0, Price >= 0
//   - parcels are never deleted; ownership changes only through an approved
//     transfer (or explicit admin correction, not modeled here)
type Parcel struct {
	ParcelID         uuid.UUID `json:"parcel_id"`
	OwnerPrincipalID string    `json:"owner_principal_id"`
	OwnerName        string    `json:"owner_name"`
	Location         string    `json:"location"`
	AreaSqFt         int64     `json:"area_sqft"`
	Price            int64     `json:"price"`
	RegisteredAt     time.Time `json:"registered_at"`
	AssetReferenceID string    `json:"asset_reference_id"`
}

// HistoryEntry records one completed ownership change. Append-only; entries
// are totally ordered by approval time with the transfer request ID as a
// stable tie-break.
type HistoryEntry struct {
	ParcelID          uuid.UUID `json:"parcel_id"`
	TransferRequestID uuid.UUID `json:"transfer_request_id"`
	FromPrincipalID   string    `json:"from_principal_id"`
	ToPrincipalID     string    `json:"to_principal_id"`
	ApprovedAt        time.Time `json:"approved_at"`
}

// Less orders history entries by approval time, then request ID.
func (e HistoryEntry) Less(other HistoryEntry) bool {
	if !e.ApprovedAt.Equal(other.ApprovedAt) {
		return e.ApprovedAt.Before(other.ApprovedAt)
	}
	return e.TransferRequestID.String() < other.TransferRequestID.String()
}
