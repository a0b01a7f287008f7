package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted from domain logic to capture key registry actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	EventID     uuid.UUID `json:"event_id"`
	PrincipalID string    `json:"principal_id"`
	Action      string    `json:"action"`
	Subject     string    `json:"subject"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Actions recorded by the registry.
const (
	ActionOwnerRegistered       = "owner.registered"
	ActionRegistrationSubmitted = "registration.submitted"
	ActionTransferSubmitted     = "transfer.submitted"
	ActionRequestApproved       = "request.approved"
	ActionRequestRejected       = "request.rejected"
	ActionAssetStored           = "asset.stored"
)
