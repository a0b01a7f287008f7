// Package handler exposes the admin review surface: pending queues and
// decisions. Authorization is enforced by the services against the caller's
// classification; routes here only establish who the caller is.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"landregistry/internal/platform/metrics"
	"landregistry/internal/platform/middleware"
	"landregistry/internal/transport/http/shared"
	"landregistry/internal/workflow"
	dErrors "landregistry/pkg/domain-errors"
)

// Workflow defines the decision operations the handler needs.
type Workflow interface {
	Decide(ctx context.Context, adminID string, requestID uuid.UUID, kind workflow.Kind, decision workflow.Decision) (*workflow.DecisionResult, error)
	PendingRegistrations(ctx context.Context, adminID string) ([]workflow.RegistrationRequest, error)
	PendingTransfers(ctx context.Context, adminID string) ([]workflow.TransferRequest, error)
}

// Handler handles the admin endpoints.
type Handler struct {
	logger    *slog.Logger
	workflow  Workflow
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

// New creates a new admin Handler.
func New(workflowSvc Workflow, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		workflow:  workflowSvc,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Recovery(h.logger))
		gr.Use(middleware.RequestID)
		gr.Use(middleware.Logger(h.logger))
		gr.Use(middleware.Timeout(30 * time.Second))
		gr.Use(middleware.ContentTypeJSON)
		gr.Use(middleware.Latency(h.metrics))
		gr.Use(middleware.RequireAuth(h.validator, h.logger))

		gr.Post("/admin/requests/{requestID}/decision", h.handleDecision)
		gr.Get("/admin/requests", h.handlePendingQueue)
	})
}

type decisionRequest struct {
	Type    string `json:"type"`
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID := middleware.GetPrincipalID(ctx)

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !req.Approve && req.Reason == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "a rejection requires a reason"))
		return
	}

	result, err := h.workflow.Decide(ctx, adminID, requestID, workflow.Kind(req.Type), workflow.Decision{
		Approve: req.Approve,
		Reason:  req.Reason,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "decision failed",
			"request_id", middleware.GetRequestID(ctx),
			"target_request_id", requestID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePendingQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID := middleware.GetPrincipalID(ctx)

	switch kind := workflow.Kind(r.URL.Query().Get("type")); kind {
	case workflow.KindRegistration:
		pending, err := h.workflow.PendingRegistrations(ctx, adminID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{"requests": pending})
	case workflow.KindTransfer:
		pending, err := h.workflow.PendingTransfers(ctx, adminID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{"requests": pending})
	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown request kind"))
	}
}
