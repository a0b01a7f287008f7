package query

import (
	"time"

	"github.com/google/uuid"

	"landregistry/internal/ledger"
	"landregistry/internal/workflow"
)

// RequestStatus is the public view of one request's lifecycle state.
type RequestStatus struct {
	RequestID uuid.UUID       `json:"request_id"`
	Kind      workflow.Kind   `json:"kind"`
	Status    workflow.Status `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
}

// ParcelDetail composes a parcel with its full transfer history.
type ParcelDetail struct {
	Parcel  ledger.Parcel         `json:"parcel"`
	History []ledger.HistoryEntry `json:"history"`
}
