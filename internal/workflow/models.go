package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a request. Requests start Pending and move
// exactly once to Approved or Rejected; decided requests never change again.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Kind distinguishes the two request types sharing the decision workflow.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindTransfer     Kind = "transfer"
)

// Valid reports whether the kind is one the engine knows.
func (k Kind) Valid() bool {
	return k == KindRegistration || k == KindTransfer
}

// RegistrationRequest asks the registry to admit a new parcel under the
// submitter's ownership.
type RegistrationRequest struct {
	RequestID            uuid.UUID  `json:"request_id"`
	SubmitterPrincipalID string     `json:"submitter_principal_id"`
	OwnerName            string     `json:"owner_name"`
	Location             string     `json:"location"`
	AreaSqFt             int64      `json:"area_sqft"`
	Price                int64      `json:"price"`
	AssetReferenceID     string     `json:"asset_reference_id"`
	Status               Status     `json:"status"`
	Reason               string     `json:"reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	DecidedAt            *time.Time `json:"decided_at,omitempty"`
	DecidedBy            string     `json:"decided_by,omitempty"`
}

// TransferRequest asks the registry to move an existing parcel from the
// submitting owner to another principal.
type TransferRequest struct {
	RequestID         uuid.UUID  `json:"request_id"`
	ParcelID          uuid.UUID  `json:"parcel_id"`
	FromPrincipalID   string     `json:"from_principal_id"`
	ToPrincipalID     string     `json:"to_principal_id"`
	Price             int64      `json:"price"`
	AssetReferenceID  string     `json:"asset_reference_id"`
	Status            Status     `json:"status"`
	Reason            string     `json:"reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	DecidedAt         *time.Time `json:"decided_at,omitempty"`
	DecidedBy         string     `json:"decided_by,omitempty"`
}

// Decision is an admin verdict on a pending request.
type Decision struct {
	Approve bool
	Reason  string
}

// DecisionResult reports what a decision did. ParcelID is set when an
// approved registration minted a new parcel.
type DecisionResult struct {
	RequestID uuid.UUID  `json:"request_id"`
	Kind      Kind       `json:"kind"`
	Status    Status     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	ParcelID  *uuid.UUID `json:"parcel_id,omitempty"`
}
