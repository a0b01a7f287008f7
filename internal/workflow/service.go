package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"landregistry/internal/asset"
	"landregistry/internal/audit"
	"landregistry/internal/ledger"
	"landregistry/internal/principal"
	wfmetrics "landregistry/internal/workflow/metrics"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/sentinel"
)

// PrincipalDirectory is the slice of the principal directory the engine needs.
type PrincipalDirectory interface {
	Classify(ctx context.Context, principalID string) (principal.Classification, error)
	EnsurePendingOwner(ctx context.Context, principalID string) error
	PromoteVerifiedOwner(ctx context.Context, principalID string) error
	RequireAdmin(ctx context.Context, principalID string) error
	DisplayName(ctx context.Context, principalID string) (string, error)
}

// Ledger is the slice of the land ledger the engine drives on approval.
type Ledger interface {
	CreateParcel(ctx context.Context, input ledger.NewParcelInput) (*ledger.Parcel, error)
	GetParcel(ctx context.Context, parcelID uuid.UUID) (*ledger.Parcel, error)
	TransferOwnership(ctx context.Context, input ledger.TransferInput) (*ledger.HistoryEntry, error)
}

// AssetResolver verifies document references attached to requests.
type AssetResolver interface {
	Resolve(ctx context.Context, referenceID string) (*asset.Reference, error)
}

// Auditor records workflow actions on the audit trail.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the request workflow engine. Every state change to the ledger
// flows through here: submissions create pending requests, and admin
// decisions move them to a terminal status exactly once, applying ledger
// side effects atomically with the status transition.
type Service struct {
	store      Store
	txRunner   TxRunner
	principals PrincipalDirectory
	ledger     Ledger
	assets     AssetResolver
	auditor    Auditor
	metrics    *wfmetrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

func WithTxRunner(runner TxRunner) Option {
	return func(s *Service) { s.txRunner = runner }
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *wfmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a workflow engine Service.
func NewService(store Store, principals PrincipalDirectory, ledgerSvc Ledger, assets AssetResolver, opts ...Option) *Service {
	s := &Service{
		store:      store,
		txRunner:   NopTxRunner{},
		principals: principals,
		ledger:     ledgerSvc,
		assets:     assets,
		tracer:     otel.Tracer("landregistry/workflow"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRegistrationInput carries a new land registration request.
type SubmitRegistrationInput struct {
	OwnerName        string
	Location         string
	AreaSqFt         int64
	Price            int64
	AssetReferenceID string
}

// SubmitRegistration records a pending registration request. Submitting
// advances an Unregistered submitter to PendingOwner.
func (s *Service) SubmitRegistration(ctx context.Context, submitterID string, input SubmitRegistrationInput) (*RegistrationRequest, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.submit_registration")
	defer span.End()

	if submitterID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "submitter principal id is required")
	}
	if input.AreaSqFt <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "area must be positive")
	}
	if input.Price < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "price must not be negative")
	}
	if input.Location == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "location is required")
	}
	if _, err := s.assets.Resolve(ctx, input.AssetReferenceID); err != nil {
		return nil, err
	}
	if err := s.principals.EnsurePendingOwner(ctx, submitterID); err != nil {
		return nil, err
	}

	req := &RegistrationRequest{
		RequestID:            uuid.New(),
		SubmitterPrincipalID: submitterID,
		OwnerName:            input.OwnerName,
		Location:             input.Location,
		AreaSqFt:             input.AreaSqFt,
		Price:                input.Price,
		AssetReferenceID:     input.AssetReferenceID,
		Status:               StatusPending,
		CreatedAt:            s.now(),
	}
	if err := s.store.CreateRegistration(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration request")
	}

	span.SetAttributes(attribute.String("request.id", req.RequestID.String()))
	s.metrics.IncrementSubmission(string(KindRegistration))
	s.emitAudit(ctx, submitterID, audit.ActionRegistrationSubmitted, req.RequestID.String())
	if s.logger != nil {
		s.logger.InfoContext(ctx, "registration request submitted",
			"request_id", req.RequestID.String(),
			"submitter_principal_id", submitterID,
		)
	}
	return req, nil
}

// SubmitTransferInput carries a new ownership transfer request.
type SubmitTransferInput struct {
	ParcelID         uuid.UUID
	ToPrincipalID    string
	Price            int64
	AssetReferenceID string
}

// SubmitTransfer records a pending transfer request. Only a verified owner
// may offer a parcel, and only a parcel they currently own. Ownership is
// checked again at decision time; this check just rejects obvious mistakes
// early.
func (s *Service) SubmitTransfer(ctx context.Context, submitterID string, input SubmitTransferInput) (*TransferRequest, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.submit_transfer")
	defer span.End()

	if submitterID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "submitter principal id is required")
	}
	if input.ToPrincipalID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient principal id is required")
	}
	if input.ToPrincipalID == submitterID {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "cannot transfer a parcel to yourself")
	}
	if input.Price < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "price must not be negative")
	}
	if _, err := s.assets.Resolve(ctx, input.AssetReferenceID); err != nil {
		return nil, err
	}

	class, err := s.principals.Classify(ctx, submitterID)
	if err != nil {
		return nil, err
	}
	if class != principal.VerifiedOwner && class != principal.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "only verified owners can transfer parcels")
	}

	parcel, err := s.ledger.GetParcel(ctx, input.ParcelID)
	if err != nil {
		return nil, err
	}
	if parcel.OwnerPrincipalID != submitterID {
		return nil, dErrors.New(dErrors.CodeForbidden, "parcel is not owned by submitter")
	}

	req := &TransferRequest{
		RequestID:        uuid.New(),
		ParcelID:         input.ParcelID,
		FromPrincipalID:  submitterID,
		ToPrincipalID:    input.ToPrincipalID,
		Price:            input.Price,
		AssetReferenceID: input.AssetReferenceID,
		Status:           StatusPending,
		CreatedAt:        s.now(),
	}
	if err := s.store.CreateTransfer(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save transfer request")
	}

	span.SetAttributes(attribute.String("request.id", req.RequestID.String()))
	s.metrics.IncrementSubmission(string(KindTransfer))
	s.emitAudit(ctx, submitterID, audit.ActionTransferSubmitted, req.RequestID.String())
	if s.logger != nil {
		s.logger.InfoContext(ctx, "transfer request submitted",
			"request_id", req.RequestID.String(),
			"parcel_id", input.ParcelID.String(),
			"from_principal_id", submitterID,
			"to_principal_id", input.ToPrincipalID,
		)
	}
	return req, nil
}

// Decide applies an admin verdict to a pending request. The status move out
// of Pending is compare-and-set, so when several admins decide the same
// request concurrently exactly one verdict lands and the rest get
// AlreadyDecided. Approving a transfer whose seller no longer owns the
// parcel flips the request to Rejected and reports Conflict.
func (s *Service) Decide(ctx context.Context, adminID string, requestID uuid.UUID, kind Kind, decision Decision) (*DecisionResult, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.decide", trace.WithAttributes(
		attribute.String("request.id", requestID.String()),
		attribute.String("request.kind", string(kind)),
		attribute.Bool("decision.approve", decision.Approve),
	))
	defer span.End()
	start := s.now()
	defer func() { s.metrics.ObserveDecideLatency(s.now().Sub(start)) }()

	if !kind.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown request kind")
	}
	if err := s.principals.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	var result *DecisionResult
	var err error
	switch kind {
	case KindRegistration:
		result, err = s.decideRegistration(ctx, adminID, requestID, decision)
	case KindTransfer:
		result, err = s.decideTransfer(ctx, adminID, requestID, decision)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.IncrementDecision(string(kind), string(result.Status))
	action := audit.ActionRequestApproved
	if result.Status == StatusRejected {
		action = audit.ActionRequestRejected
	}
	s.emitAudit(ctx, adminID, action, requestID.String())
	if s.logger != nil {
		s.logger.InfoContext(ctx, "request decided",
			"request_id", requestID.String(),
			"kind", string(kind),
			"status", string(result.Status),
			"decided_by", adminID,
		)
	}
	return result, nil
}

func (s *Service) decideRegistration(ctx context.Context, adminID string, requestID uuid.UUID, decision Decision) (*DecisionResult, error) {
	req, err := s.store.FindRegistration(ctx, requestID)
	if err != nil {
		return nil, mapRequestLookupErr(err)
	}

	if !decision.Approve {
		if err := s.store.MarkRegistrationDecided(ctx, requestID, StatusRejected, decision.Reason, adminID, s.now()); err != nil {
			return nil, mapMarkErr(err)
		}
		return &DecisionResult{RequestID: requestID, Kind: KindRegistration, Status: StatusRejected, Reason: decision.Reason}, nil
	}

	var parcelID uuid.UUID
	err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.MarkRegistrationDecided(ctx, requestID, StatusApproved, "", adminID, s.now()); err != nil {
			return mapMarkErr(err)
		}
		parcel, err := s.ledger.CreateParcel(ctx, ledger.NewParcelInput{
			OwnerPrincipalID: req.SubmitterPrincipalID,
			OwnerName:        req.OwnerName,
			Location:         req.Location,
			AreaSqFt:         req.AreaSqFt,
			Price:            req.Price,
			AssetReferenceID: req.AssetReferenceID,
		})
		if err != nil {
			s.restoreRegistrationPending(ctx, requestID)
			return err
		}
		parcelID = parcel.ParcelID
		if err := s.principals.PromoteVerifiedOwner(ctx, req.SubmitterPrincipalID); err != nil {
			s.restoreRegistrationPending(ctx, requestID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &DecisionResult{RequestID: requestID, Kind: KindRegistration, Status: StatusApproved, ParcelID: &parcelID}, nil
}

func (s *Service) decideTransfer(ctx context.Context, adminID string, requestID uuid.UUID, decision Decision) (*DecisionResult, error) {
	req, err := s.store.FindTransfer(ctx, requestID)
	if err != nil {
		return nil, mapRequestLookupErr(err)
	}

	if !decision.Approve {
		if err := s.store.MarkTransferDecided(ctx, requestID, StatusRejected, decision.Reason, adminID, s.now()); err != nil {
			return nil, mapMarkErr(err)
		}
		return &DecisionResult{RequestID: requestID, Kind: KindTransfer, Status: StatusRejected, Reason: decision.Reason}, nil
	}

	newOwnerName, err := s.principals.DisplayName(ctx, req.ToPrincipalID)
	if err != nil {
		return nil, err
	}

	var conflictErr error
	err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.MarkTransferDecided(ctx, requestID, StatusApproved, "", adminID, s.now()); err != nil {
			return mapMarkErr(err)
		}
		_, err := s.ledger.TransferOwnership(ctx, ledger.TransferInput{
			ParcelID:          req.ParcelID,
			ExpectedOwner:     req.FromPrincipalID,
			NewOwner:          req.ToPrincipalID,
			NewOwnerName:      newOwnerName,
			Price:             req.Price,
			TransferRequestID: requestID,
		})
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				// The seller lost ownership after submitting. Record a
				// rejection so the request reaches a terminal state, and
				// report the conflict to the deciding admin.
				reason := "seller no longer owns the parcel"
				if overrideErr := s.store.OverrideTransferDecision(ctx, requestID, StatusRejected, reason); overrideErr != nil {
					return dErrors.Wrap(overrideErr, dErrors.CodeInternal, "failed to reject conflicted transfer")
				}
				conflictErr = dErrors.Wrap(err, dErrors.CodeConflict, "transfer rejected: "+reason)
				return nil
			}
			s.restoreTransferPending(ctx, requestID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if conflictErr != nil {
		s.metrics.IncrementConflictAutoReject()
		s.metrics.IncrementDecision(string(KindTransfer), string(StatusRejected))
		s.emitAudit(ctx, adminID, audit.ActionRequestRejected, requestID.String())
		return nil, conflictErr
	}
	return &DecisionResult{RequestID: requestID, Kind: KindTransfer, Status: StatusApproved}, nil
}

// restoreRegistrationPending undoes a won compare-and-set after a failed side
// effect. Inside a SQL transaction the rollback makes this a no-op; for the
// in-memory store it is what keeps the request retryable.
func (s *Service) restoreRegistrationPending(ctx context.Context, requestID uuid.UUID) {
	if err := s.store.OverrideRegistrationDecision(ctx, requestID, StatusPending, ""); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to restore pending registration", "request_id", requestID.String(), "error", err)
	}
}

func (s *Service) restoreTransferPending(ctx context.Context, requestID uuid.UUID) {
	if err := s.store.OverrideTransferDecision(ctx, requestID, StatusPending, ""); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to restore pending transfer", "request_id", requestID.String(), "error", err)
	}
}

// GetRegistration returns one registration request.
func (s *Service) GetRegistration(ctx context.Context, requestID uuid.UUID) (*RegistrationRequest, error) {
	req, err := s.store.FindRegistration(ctx, requestID)
	if err != nil {
		return nil, mapRequestLookupErr(err)
	}
	return req, nil
}

// GetTransfer returns one transfer request.
func (s *Service) GetTransfer(ctx context.Context, requestID uuid.UUID) (*TransferRequest, error) {
	req, err := s.store.FindTransfer(ctx, requestID)
	if err != nil {
		return nil, mapRequestLookupErr(err)
	}
	return req, nil
}

// PendingRegistrations returns the admin review queue for registrations.
func (s *Service) PendingRegistrations(ctx context.Context, adminID string) ([]RegistrationRequest, error) {
	if err := s.principals.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	pending, err := s.store.PendingRegistrations(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending registrations")
	}
	return pending, nil
}

// PendingTransfers returns the admin review queue for transfers.
func (s *Service) PendingTransfers(ctx context.Context, adminID string) ([]TransferRequest, error) {
	if err := s.principals.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	pending, err := s.store.PendingTransfers(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending transfers")
	}
	return pending, nil
}

func (s *Service) emitAudit(ctx context.Context, principalID, action, subject string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		PrincipalID: principalID,
		Action:      action,
		Subject:     subject,
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func mapRequestLookupErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request")
}

func mapMarkErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	case errors.Is(err, sentinel.ErrAlreadyDecided):
		return dErrors.Wrap(err, dErrors.CodeAlreadyDecided, "request already decided")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark request decided")
	}
}
