// Package handler exposes the public registry surface: owner registration,
// document upload, request submission and the read-only query endpoints.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"landregistry/internal/asset"
	"landregistry/internal/ledger"
	"landregistry/internal/platform/metrics"
	"landregistry/internal/platform/middleware"
	"landregistry/internal/principal"
	"landregistry/internal/query"
	"landregistry/internal/transport/http/shared"
	"landregistry/internal/workflow"
	dErrors "landregistry/pkg/domain-errors"
)

// Principals defines the principal directory operations the handler needs.
type Principals interface {
	RegisterOwner(ctx context.Context, principalID string, profile principal.OwnerProfile) (*principal.Record, error)
	GetProfile(ctx context.Context, principalID string, actingAdmin string) (*principal.Record, error)
}

// Assets defines the document store operations the handler needs.
type Assets interface {
	Store(ctx context.Context, r io.Reader, contentType string) (*asset.Reference, error)
}

// Workflow defines the submission operations the handler needs.
type Workflow interface {
	SubmitRegistration(ctx context.Context, submitterID string, input workflow.SubmitRegistrationInput) (*workflow.RegistrationRequest, error)
	SubmitTransfer(ctx context.Context, submitterID string, input workflow.SubmitTransferInput) (*workflow.TransferRequest, error)
}

// Query defines the read operations the handler needs.
type Query interface {
	StatusOf(ctx context.Context, requestID uuid.UUID, kind workflow.Kind) (*query.RequestStatus, error)
	Detail(ctx context.Context, parcelID uuid.UUID) (*query.ParcelDetail, error)
	History(ctx context.Context, parcelID uuid.UUID) ([]ledger.HistoryEntry, error)
	OwnedBy(ctx context.Context, principalID string) ([]ledger.Parcel, error)
	ClassificationOf(ctx context.Context, principalID string) (principal.Classification, error)
}

// Handler handles the public registry endpoints.
type Handler struct {
	logger     *slog.Logger
	principals Principals
	assets     Assets
	workflow   Workflow
	query      Query
	metrics    *metrics.Metrics
	validator  middleware.TokenValidator
}

// New creates a new registry Handler.
func New(
	principals Principals,
	assets Assets,
	workflowSvc Workflow,
	querySvc Query,
	logger *slog.Logger,
	m *metrics.Metrics,
	validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:     logger,
		principals: principals,
		assets:     assets,
		workflow:   workflowSvc,
		query:      querySvc,
		metrics:    m,
		validator:  validator,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Recovery(h.logger))
		gr.Use(middleware.RequestID)
		gr.Use(middleware.Logger(h.logger))
		gr.Use(middleware.Timeout(30 * time.Second))
		gr.Use(middleware.ContentTypeJSON)
		gr.Use(middleware.Latency(h.metrics))
		gr.Use(middleware.RequireAuth(h.validator, h.logger))

		gr.Post("/registry/owners", h.handleRegisterOwner)
		gr.Get("/registry/owners/{principalID}", h.handlePersonDetail)
		gr.Get("/registry/classification", h.handleClassification)
		gr.Post("/registry/assets", h.handleUploadAsset)
		gr.Post("/registry/registrations", h.handleSubmitRegistration)
		gr.Post("/registry/transfers", h.handleSubmitTransfer)
		gr.Get("/registry/requests/{requestID}/status", h.handleRequestStatus)
		gr.Get("/registry/parcels", h.handleMyParcels)
		gr.Get("/registry/parcels/{parcelID}", h.handleParcelDetail)
		gr.Get("/registry/parcels/{parcelID}/history", h.handleParcelHistory)
	})
}

type registerOwnerRequest struct {
	FullName           string `json:"full_name"`
	Nationality        string `json:"nationality"`
	IDType             string `json:"id_type"`
	IDNumber           string `json:"id_number"`
	ResidentialAddress string `json:"residential_address"`
	AssetReferenceID   string `json:"asset_reference_id"`
}

func (h *Handler) handleRegisterOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID := middleware.GetPrincipalID(ctx)

	var req registerOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.principals.RegisterOwner(ctx, principalID, principal.OwnerProfile{
		FullName:           req.FullName,
		Nationality:        req.Nationality,
		IDType:             req.IDType,
		IDNumber:           req.IDNumber,
		ResidentialAddress: req.ResidentialAddress,
		AssetReferenceID:   req.AssetReferenceID,
	})
	if err != nil {
		h.logFailure(ctx, "register owner", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handlePersonDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actingID := middleware.GetPrincipalID(ctx)
	subjectID := chi.URLParam(r, "principalID")

	record, err := h.principals.GetProfile(ctx, subjectID, actingID)
	if err != nil {
		h.logFailure(ctx, "person detail", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleClassification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID := middleware.GetPrincipalID(ctx)

	class, err := h.query.ClassificationOf(ctx, principalID)
	if err != nil {
		h.logFailure(ctx, "classification", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"principal_id":   principalID,
		"classification": string(class),
	})
}

func (h *Handler) handleUploadAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ref, err := h.assets.Store(ctx, r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		h.logFailure(ctx, "upload asset", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, ref)
}

type submitRegistrationRequest struct {
	OwnerName        string `json:"owner_name"`
	Location         string `json:"location"`
	AreaSqFt         int64  `json:"area_sqft"`
	Price            int64  `json:"price"`
	AssetReferenceID string `json:"asset_reference_id"`
}

func (h *Handler) handleSubmitRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID := middleware.GetPrincipalID(ctx)

	var req submitRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.workflow.SubmitRegistration(ctx, principalID, workflow.SubmitRegistrationInput{
		OwnerName:        req.OwnerName,
		Location:         req.Location,
		AreaSqFt:         req.AreaSqFt,
		Price:            req.Price,
		AssetReferenceID: req.AssetReferenceID,
	})
	if err != nil {
		h.logFailure(ctx, "submit registration", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusAccepted, created)
}

type submitTransferRequest struct {
	ParcelID         uuid.UUID `json:"parcel_id"`
	ToPrincipalID    string    `json:"to_principal_id"`
	Price            int64     `json:"price"`
	AssetReferenceID string    `json:"asset_reference_id"`
}

func (h *Handler) handleSubmitTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID := middleware.GetPrincipalID(ctx)

	var req submitTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.workflow.SubmitTransfer(ctx, principalID, workflow.SubmitTransferInput{
		ParcelID:         req.ParcelID,
		ToPrincipalID:    req.ToPrincipalID,
		Price:            req.Price,
		AssetReferenceID: req.AssetReferenceID,
	})
	if err != nil {
		h.logFailure(ctx, "submit transfer", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusAccepted, created)
}

func (h *Handler) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return
	}
	kind := workflow.Kind(r.URL.Query().Get("type"))

	status, err := h.query.StatusOf(ctx, requestID, kind)
	if err != nil {
		h.logFailure(ctx, "request status", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleMyParcels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID := middleware.GetPrincipalID(ctx)

	// Only the caller's own holdings are listable on the public surface.
	if owner := r.URL.Query().Get("owner"); owner != "" && owner != "me" {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only owner=me is supported"))
		return
	}

	parcels, err := h.query.OwnedBy(ctx, principalID)
	if err != nil {
		h.logFailure(ctx, "list parcels", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"parcels": parcels})
}

func (h *Handler) handleParcelDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parcelID, err := uuid.Parse(chi.URLParam(r, "parcelID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid parcel id"))
		return
	}

	detail, err := h.query.Detail(ctx, parcelID)
	if err != nil {
		h.logFailure(ctx, "parcel detail", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleParcelHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parcelID, err := uuid.Parse(chi.URLParam(r, "parcelID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid parcel id"))
		return
	}

	history, err := h.query.History(ctx, parcelID)
	if err != nil {
		h.logFailure(ctx, "parcel history", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *Handler) logFailure(ctx context.Context, operation string, err error) {
	h.logger.WarnContext(ctx, operation+" failed",
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
