package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vibe-be/internal/domain"
	"vibe-be/internal/middleware"
	"vibe-be/internal/service"
	"vibe-be/pkg/errors"
	"vibe-be/pkg/logger"
	"vibe-be/pkg/ratelimit"
)

// SessionHandler handles anonymous session HTTP requests
type SessionHandler struct {
	actionService    service.AnonymousActionService
	reconcileService service.ReconcileService
	sweeperService   service.SweeperService
	logger           *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	actionService service.AnonymousActionService,
	reconcileService service.ReconcileService,
	sweeperService service.SweeperService,
	logger *logger.Logger,
) *SessionHandler {
	return &SessionHandler{
		actionService:    actionService,
		reconcileService: reconcileService,
		sweeperService:   sweeperService,
		logger:           logger,
	}
}

// StoreActionsRequest is the body for POST /anonymous/actions
type StoreActionsRequest struct {
	SessionID string                `json:"session_id"`
	Actions   []domain.ActionRecord `json:"actions"`
}

// StoreActionsResponse acknowledges a stored batch
type StoreActionsResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Stored    int    `json:"stored"`
}

// SummaryResponse wraps the carryover preview
type SummaryResponse struct {
	Success bool                     `json:"success"`
	Data    *domain.CarryoverSummary `json:"data"`
}

// ReconcileRequest is the body for POST /anonymous/reconcile
type ReconcileRequest struct {
	SessionID string `json:"session_id"`
}

// ReconcileResponse wraps the reconciliation outcome
type ReconcileResponse struct {
	Success bool                    `json:"success"`
	Data    *domain.ReconcileResult `json:"data"`
}

// SweepResponse wraps a manually triggered sweep run
type SweepResponse struct {
	Success bool                 `json:"success"`
	Data    *domain.SweepSummary `json:"data"`
}

// StoreActions handles POST /api/v1/anonymous/actions
func (h *SessionHandler) StoreActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req StoreActionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}
	if req.SessionID == "" {
		h.writeAppError(w, errors.NewValidationError("session_id is required", nil))
		return
	}

	sessionID, err := h.actionService.StoreActions(ctx, req.SessionID, req.Actions)
	if err != nil {
		h.writeAppError(w, h.mapStoreError(w, err))
		return
	}

	h.writeJSON(w, http.StatusOK, StoreActionsResponse{
		Success:   true,
		SessionID: sessionID,
		Stored:    len(req.Actions),
	})
}

// GetSummary handles GET /api/v1/anonymous/sessions/{sessionID}/summary
func (h *SessionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.writeAppError(w, errors.NewValidationError("sessionID is required", nil))
		return
	}

	summary, err := h.actionService.GetCarryoverSummary(ctx, sessionID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load session summary")
		h.writeAppError(w, errors.NewInternalError("Failed to load session summary", err))
		return
	}
	if summary == nil {
		h.writeAppError(w, errors.NewNotFoundError("Session not found or expired"))
		return
	}

	h.writeJSON(w, http.StatusOK, SummaryResponse{Success: true, Data: summary})
}

// Reconcile handles POST /api/v1/anonymous/reconcile. The authenticated
// subject comes from the verified token, never from the request body.
func (h *SessionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil {
		h.writeAppError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}
	if req.SessionID == "" {
		h.writeAppError(w, errors.NewValidationError("session_id is required", nil))
		return
	}

	result, err := h.reconcileService.ReconcileOnSignIn(ctx, req.SessionID, claims.Sub)
	if err != nil {
		h.logger.WithError(err).Error("Reconciliation failed")
		h.writeAppError(w, errors.NewInternalError("Failed to reconcile session", err))
		return
	}

	h.writeJSON(w, http.StatusOK, ReconcileResponse{Success: true, Data: result})
}

// TriggerSweep handles POST /api/v1/admin/sweep
func (h *SessionHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil {
		h.writeAppError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	summary := h.sweeperService.Sweep(ctx)

	h.logger.WithFields(map[string]interface{}{
		"triggered_by":     claims.Sub,
		"deleted_sessions": summary.DeletedSessions,
	}).Info("Manual expiry sweep triggered")

	h.writeJSON(w, http.StatusOK, SweepResponse{Success: true, Data: summary})
}

// mapStoreError translates ingestion failures to HTTP errors, setting the
// Retry-After header for throttled requests
func (h *SessionHandler) mapStoreError(w http.ResponseWriter, err error) *errors.AppError {
	var limitErr *ratelimit.LimitExceededError
	if stderrors.As(err, &limitErr) {
		w.Header().Set("Retry-After", strconv.Itoa(limitErr.ResetSeconds))
		return errors.NewRateLimitError("Too many actions of this kind, slow down", limitErr.ResetSeconds)
	}

	switch {
	case stderrors.Is(err, domain.ErrInvalidTokenFormat):
		return errors.NewValidationError("Invalid session token", nil)
	case stderrors.Is(err, domain.ErrInvalidAction):
		return errors.NewValidationError(err.Error(), nil)
	case stderrors.Is(err, domain.ErrInvalidTimestamp):
		return errors.NewValidationError(err.Error(), nil)
	case stderrors.Is(err, domain.ErrSessionLimitExceeded):
		return errors.NewValidationError("Session action limit exceeded", map[string]interface{}{
			"max_actions": domain.MaxActionsPerSession,
		})
	case stderrors.Is(err, domain.ErrSessionExpired):
		return errors.NewConflictError("Session has expired", nil)
	case stderrors.Is(err, domain.ErrSessionProcessed):
		return errors.NewConflictError("Session was already reconciled", nil)
	default:
		h.logger.WithError(err).Error("Failed to store actions")
		return errors.NewInternalError("Failed to store actions", err)
	}
}

// writeAppError sends a standardized error response
func (h *SessionHandler) writeAppError(w http.ResponseWriter, appErr *errors.AppError) {
	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	h.writeJSON(w, appErr.StatusCode, response)
}

// writeJSON writes a JSON response with the given status code
func (h *SessionHandler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// RegisterRoutes registers session handler routes with the router; auth wraps
// the endpoints that require a signed-in subject
func (h *SessionHandler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Route("/anonymous", func(r chi.Router) {
		r.Post("/actions", h.StoreActions)
		r.Get("/sessions/{sessionID}/summary", h.GetSummary)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/reconcile", h.Reconcile)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth)
		r.Post("/sweep", h.TriggerSweep)
	})
}
