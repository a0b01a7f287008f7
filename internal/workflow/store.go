package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists registration and transfer requests.
//
// The Mark* methods are the decision point of the whole engine: they move a
// request out of Pending with compare-and-set semantics, so exactly one of
// any number of concurrent deciders wins. Losers get
// sentinel.ErrAlreadyDecided.
type Store interface {
	CreateRegistration(ctx context.Context, req *RegistrationRequest) error
	FindRegistration(ctx context.Context, requestID uuid.UUID) (*RegistrationRequest, error)

	CreateTransfer(ctx context.Context, req *TransferRequest) error
	FindTransfer(ctx context.Context, requestID uuid.UUID) (*TransferRequest, error)

	// MarkRegistrationDecided moves a Pending registration request to the
	// given terminal status. sentinel.ErrNotFound for an unknown request,
	// sentinel.ErrAlreadyDecided when the request already left Pending.
	MarkRegistrationDecided(ctx context.Context, requestID uuid.UUID, status Status, reason, decidedBy string, decidedAt time.Time) error

	// MarkTransferDecided is MarkRegistrationDecided for transfer requests.
	MarkTransferDecided(ctx context.Context, requestID uuid.UUID, status Status, reason, decidedBy string, decidedAt time.Time) error

	// OverrideRegistrationDecision rewrites the terminal status of a request
	// the caller has already won via Mark*. Used to flip an approval to a
	// rejection when applying its side effects hits a conflict.
	OverrideRegistrationDecision(ctx context.Context, requestID uuid.UUID, status Status, reason string) error

	// OverrideTransferDecision is OverrideRegistrationDecision for transfers.
	OverrideTransferDecision(ctx context.Context, requestID uuid.UUID, status Status, reason string) error

	// PendingRegistrations returns pending registration requests ordered by
	// creation time ascending.
	PendingRegistrations(ctx context.Context) ([]RegistrationRequest, error)

	// PendingTransfers returns pending transfer requests ordered by creation
	// time ascending.
	PendingTransfers(ctx context.Context) ([]TransferRequest, error)
}

// TxRunner executes fn atomically. The SQL implementation opens a database
// transaction and threads it through the context; the in-memory stores rely
// on their own locking and use NopTxRunner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxRunner runs fn directly with no transaction.
type NopTxRunner struct{}

func (NopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
