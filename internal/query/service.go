package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"landregistry/internal/ledger"
	"landregistry/internal/principal"
	"landregistry/internal/workflow"
	dErrors "landregistry/pkg/domain-errors"
)

// Requests is the slice of the workflow engine the facade reads from.
type Requests interface {
	GetRegistration(ctx context.Context, requestID uuid.UUID) (*workflow.RegistrationRequest, error)
	GetTransfer(ctx context.Context, requestID uuid.UUID) (*workflow.TransferRequest, error)
}

// Parcels is the slice of the ledger the facade reads from.
type Parcels interface {
	GetParcel(ctx context.Context, parcelID uuid.UUID) (*ledger.Parcel, error)
	HistoryOf(ctx context.Context, parcelID uuid.UUID) ([]ledger.HistoryEntry, error)
	ParcelIDsOwnedBy(ctx context.Context, principalID string) ([]uuid.UUID, error)
}

// Classifier is the slice of the principal directory the facade reads from.
type Classifier interface {
	Classify(ctx context.Context, principalID string) (principal.Classification, error)
}

// Cache is a read-through cache for parcel detail lookups. Satisfied by the
// go-redis client; a nil cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Service is the read-only query facade over the registry. Everything here
// composes reads from the other modules; nothing mutates state, so stale
// cache entries only ever delay visibility, never correctness of writes.
type Service struct {
	requests Requests
	parcels  Parcels
	class    Classifier
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithCache(cache Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a query facade Service.
func NewService(requests Requests, parcels Parcels, class Classifier, opts ...Option) *Service {
	s := &Service{requests: requests, parcels: parcels, class: class, cacheTTL: 30 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatusOf reports the lifecycle state of one request. An unknown request ID
// yields NotFound rather than an empty Pending, so callers can tell "never
// submitted" apart from "still waiting".
func (s *Service) StatusOf(ctx context.Context, requestID uuid.UUID, kind workflow.Kind) (*RequestStatus, error) {
	switch kind {
	case workflow.KindRegistration:
		req, err := s.requests.GetRegistration(ctx, requestID)
		if err != nil {
			return nil, err
		}
		return &RequestStatus{
			RequestID: req.RequestID,
			Kind:      workflow.KindRegistration,
			Status:    req.Status,
			Reason:    req.Reason,
			CreatedAt: req.CreatedAt,
			DecidedAt: req.DecidedAt,
		}, nil
	case workflow.KindTransfer:
		req, err := s.requests.GetTransfer(ctx, requestID)
		if err != nil {
			return nil, err
		}
		return &RequestStatus{
			RequestID: req.RequestID,
			Kind:      workflow.KindTransfer,
			Status:    req.Status,
			Reason:    req.Reason,
			CreatedAt: req.CreatedAt,
			DecidedAt: req.DecidedAt,
		}, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown request kind")
	}
}

// Detail returns a parcel with its ordered transfer history, read through
// the cache when one is configured.
func (s *Service) Detail(ctx context.Context, parcelID uuid.UUID) (*ParcelDetail, error) {
	cacheKey := "registry:parcel:" + parcelID.String()
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		var detail ParcelDetail
		if err := json.Unmarshal(cached, &detail); err == nil {
			return &detail, nil
		}
	}

	parcel, err := s.parcels.GetParcel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	history, err := s.parcels.HistoryOf(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	detail := &ParcelDetail{Parcel: *parcel, History: history}

	if payload, err := json.Marshal(detail); err == nil {
		s.cacheSet(ctx, cacheKey, payload)
	}
	return detail, nil
}

// History returns the ordered transfer history of a parcel.
func (s *Service) History(ctx context.Context, parcelID uuid.UUID) ([]ledger.HistoryEntry, error) {
	return s.parcels.HistoryOf(ctx, parcelID)
}

// OwnedBy lists the parcels currently owned by a principal, in registration
// order.
func (s *Service) OwnedBy(ctx context.Context, principalID string) ([]ledger.Parcel, error) {
	ids, err := s.parcels.ParcelIDsOwnedBy(ctx, principalID)
	if err != nil {
		return nil, err
	}
	owned := make([]ledger.Parcel, 0, len(ids))
	for _, id := range ids {
		parcel, err := s.parcels.GetParcel(ctx, id)
		if err != nil {
			// The parcel may have changed hands between the two reads.
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		if parcel.OwnerPrincipalID != principalID {
			continue
		}
		owned = append(owned, *parcel)
	}
	return owned, nil
}

// ClassificationOf reports the directory classification of a principal.
func (s *Service) ClassificationOf(ctx context.Context, principalID string) (principal.Classification, error) {
	return s.class.Classify(ctx, principalID)
}

func (s *Service) cacheGet(ctx context.Context, key string) []byte {
	if s.cache == nil {
		return nil
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	return value
}

func (s *Service) cacheSet(ctx context.Context, key string, value []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}
