package principal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"landregistry/internal/asset"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/sentinel"
)

// AssetResolver verifies that an asset reference exists before it is attached
// to an owner profile.
type AssetResolver interface {
	Resolve(ctx context.Context, referenceID string) (*asset.Reference, error)
}

// Service is the principal directory. It owns classifications and owner
// profiles; every caller passes explicit principal IDs, there is no ambient
// identity.
type Service struct {
	store  Store
	assets AssetResolver
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a principal directory Service.
func NewService(store Store, assets AssetResolver, opts ...Option) *Service {
	s := &Service{store: store, assets: assets}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify returns the classification for a principal, defaulting to
// Unregistered for principals the directory has never seen.
func (s *Service) Classify(ctx context.Context, principalID string) (Classification, error) {
	if principalID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	record, err := s.store.Find(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Unregistered, nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	return record.Classification, nil
}

// SetClassification applies an explicit admin correction.
func (s *Service) SetClassification(ctx context.Context, principalID string, newClass Classification, actingAdmin string) error {
	if !newClass.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown classification")
	}
	if err := s.RequireAdmin(ctx, actingAdmin); err != nil {
		return err
	}

	record, err := s.findOrInit(ctx, principalID)
	if err != nil {
		return err
	}
	record.Classification = newClass
	record.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save principal")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "classification set",
			"principal_id", principalID,
			"classification", string(newClass),
			"acting_admin", actingAdmin,
		)
	}
	return nil
}

// RegisterOwner records an owner identity profile and advances the principal
// to PendingOwner. Repeated calls update the profile but never downgrade an
// already verified owner.
func (s *Service) RegisterOwner(ctx context.Context, principalID string, profile OwnerProfile) (*Record, error) {
	if principalID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.assets.Resolve(ctx, profile.AssetReferenceID); err != nil {
		return nil, err
	}

	record, err := s.findOrInit(ctx, principalID)
	if err != nil {
		return nil, err
	}
	record.Profile = profile
	if record.Classification == Unregistered {
		record.Classification = PendingOwner
	}
	record.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save principal")
	}
	return record, nil
}

// GetProfile returns the owner profile for the admin person-detail view.
func (s *Service) GetProfile(ctx context.Context, principalID string, actingAdmin string) (*Record, error) {
	if err := s.RequireAdmin(ctx, actingAdmin); err != nil {
		return nil, err
	}
	record, err := s.store.Find(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	return record, nil
}

// EnsurePendingOwner advances an Unregistered principal to PendingOwner as a
// submission side effect. Idempotent: existing PendingOwner, VerifiedOwner and
// Admin classifications are left untouched.
func (s *Service) EnsurePendingOwner(ctx context.Context, principalID string) error {
	record, err := s.findOrInit(ctx, principalID)
	if err != nil {
		return err
	}
	if record.Classification != Unregistered {
		return nil
	}
	record.Classification = PendingOwner
	record.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save principal")
	}
	return nil
}

// PromoteVerifiedOwner marks a principal as a verified owner. Called by the
// workflow engine when a registration request is approved. Admins keep their
// classification.
func (s *Service) PromoteVerifiedOwner(ctx context.Context, principalID string) error {
	record, err := s.findOrInit(ctx, principalID)
	if err != nil {
		return err
	}
	if record.Classification == Admin || record.Classification == VerifiedOwner {
		return nil
	}
	record.Classification = VerifiedOwner
	record.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save principal")
	}
	return nil
}

// DisplayName returns the registered full name of a principal, or an empty
// string for principals with no profile on file.
func (s *Service) DisplayName(ctx context.Context, principalID string) (string, error) {
	record, err := s.store.Find(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	return record.Profile.FullName, nil
}

// RequireAdmin fails with Unauthorized unless the acting principal carries
// the Admin classification.
func (s *Service) RequireAdmin(ctx context.Context, actingAdmin string) error {
	class, err := s.Classify(ctx, actingAdmin)
	if err != nil {
		return err
	}
	if class != Admin {
		return dErrors.New(dErrors.CodeUnauthorized, "admin classification required")
	}
	return nil
}

// SeedAdmins grants the Admin classification to the configured principals.
// Used at startup; idempotent.
func (s *Service) SeedAdmins(ctx context.Context, principalIDs []string) error {
	for _, id := range principalIDs {
		record, err := s.findOrInit(ctx, id)
		if err != nil {
			return err
		}
		if record.Classification == Admin {
			continue
		}
		record.Classification = Admin
		record.UpdatedAt = time.Now()
		if err := s.store.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed admin")
		}
	}
	return nil
}

func (s *Service) findOrInit(ctx context.Context, principalID string) (*Record, error) {
	record, err := s.store.Find(ctx, principalID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	now := time.Now()
	return &Record{
		PrincipalID:    principalID,
		Classification: Unregistered,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
