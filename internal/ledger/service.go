package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/sentinel"
)

// Service is the land ledger. Parcels enter the ledger only through approved
// registration requests, and ownership changes only through approved
// transfers, so the write methods here are called by the workflow engine
// rather than by transport handlers.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a land ledger Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewParcelInput carries the attributes of a parcel entering the ledger.
type NewParcelInput struct {
	OwnerPrincipalID string
	OwnerName        string
	Location         string
	AreaSqFt         int64
	Price            int64
	AssetReferenceID string
}

// CreateParcel mints a new parcel under the given owner. The parcel ID is
// generated here; a collision with an existing parcel means ID generation is
// broken and surfaces as an invariant violation.
func (s *Service) CreateParcel(ctx context.Context, input NewParcelInput) (*Parcel, error) {
	if input.OwnerPrincipalID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner principal id is required")
	}
	if input.AreaSqFt <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "area must be positive")
	}
	if input.Price < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "price must not be negative")
	}

	parcel := &Parcel{
		ParcelID:         uuid.New(),
		OwnerPrincipalID: input.OwnerPrincipalID,
		OwnerName:        input.OwnerName,
		Location:         input.Location,
		AreaSqFt:         input.AreaSqFt,
		Price:            input.Price,
		RegisteredAt:     s.now(),
		AssetReferenceID: input.AssetReferenceID,
	}
	if err := s.store.Create(ctx, parcel); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "parcel id collision")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create parcel")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "parcel registered",
			"parcel_id", parcel.ParcelID.String(),
			"owner_principal_id", parcel.OwnerPrincipalID,
		)
	}
	return parcel, nil
}

// GetParcel returns a parcel by ID.
func (s *Service) GetParcel(ctx context.Context, parcelID uuid.UUID) (*Parcel, error) {
	parcel, err := s.store.Find(ctx, parcelID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "parcel not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parcel")
	}
	return parcel, nil
}

// TransferInput carries an approved transfer to apply to the ledger.
type TransferInput struct {
	ParcelID          uuid.UUID
	ExpectedOwner     string
	NewOwner          string
	NewOwnerName      string
	Price             int64
	TransferRequestID uuid.UUID
}

// TransferOwnership applies an approved transfer. The swap succeeds only if
// the parcel is still owned by ExpectedOwner; a mismatch returns a Conflict
// error wrapping sentinel.ErrStaleOwner so the workflow engine can reject
// the losing request. The history entry is appended atomically with the swap.
func (s *Service) TransferOwnership(ctx context.Context, input TransferInput) (*HistoryEntry, error) {
	if input.NewOwner == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "new owner principal id is required")
	}
	if input.Price < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "price must not be negative")
	}

	entry := HistoryEntry{
		ParcelID:          input.ParcelID,
		TransferRequestID: input.TransferRequestID,
		FromPrincipalID:   input.ExpectedOwner,
		ToPrincipalID:     input.NewOwner,
		ApprovedAt:        s.now(),
	}
	err := s.store.Transfer(ctx, input.ParcelID, input.ExpectedOwner, input.NewOwner, input.NewOwnerName, input.Price, entry)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "parcel not found")
		case errors.Is(err, sentinel.ErrStaleOwner):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "parcel no longer owned by seller")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer parcel")
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "ownership transferred",
			"parcel_id", input.ParcelID.String(),
			"from_principal_id", input.ExpectedOwner,
			"to_principal_id", input.NewOwner,
		)
	}
	return &entry, nil
}

// HistoryOf returns the ordered transfer history of a parcel. A parcel that
// exists but has never been transferred yields an empty slice; an unknown
// parcel yields NotFound.
func (s *Service) HistoryOf(ctx context.Context, parcelID uuid.UUID) ([]HistoryEntry, error) {
	if _, err := s.GetParcel(ctx, parcelID); err != nil {
		return nil, err
	}
	entries, err := s.store.History(ctx, parcelID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return entries, nil
}

// ParcelIDsOwnedBy returns the IDs of all parcels currently owned by the
// principal.
func (s *Service) ParcelIDsOwnedBy(ctx context.Context, principalID string) ([]uuid.UUID, error) {
	if principalID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	ids, err := s.store.ParcelIDsByOwner(ctx, principalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list parcels")
	}
	return ids, nil
}
