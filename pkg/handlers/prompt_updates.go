package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GSN-OMG/Prism/pkg/apperrors"
	"github.com/GSN-OMG/Prism/pkg/auth"
	"github.com/GSN-OMG/Prism/pkg/models"
	"github.com/GSN-OMG/Prism/pkg/redaction"
	"github.com/GSN-OMG/Prism/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// ProposePromptUpdateRequest for POST /api/prompt-updates
type ProposePromptUpdateRequest struct {
	CaseID      uuid.UUID `json:"case_id"`
	AgentID     *string   `json:"agent_id,omitempty"`
	Role        string    `json:"role"`
	FromVersion *int      `json:"from_version,omitempty"`
	Proposal    any       `json:"proposal"`
	Reason      *string   `json:"reason,omitempty"`
}

// ReviewPromptUpdateRequest for POST /api/prompt-updates/{id}/review.
// ApprovedBy is an accepted alias for Reviewer; RedirectURL turns the JSON
// response into a 303 redirect so plain HTML review forms can post here.
type ReviewPromptUpdateRequest struct {
	Action      string  `json:"action"`
	Comment     *string `json:"comment,omitempty"`
	Reviewer    *string `json:"reviewer,omitempty"`
	ApprovedBy  *string `json:"approved_by,omitempty"`
	RedirectURL string  `json:"redirect_url,omitempty"`
}

// ApplyPromptUpdateRequest for POST /api/prompt-updates/{id}/apply. The
// body is optional.
type ApplyPromptUpdateRequest struct {
	RedirectURL string `json:"redirect_url,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// PromptUpdateHandler handles prompt governance HTTP requests.
type PromptUpdateHandler struct {
	governance services.PromptGovernanceService
	logger     *zap.Logger
}

// NewPromptUpdateHandler creates a new prompt update handler.
func NewPromptUpdateHandler(governance services.PromptGovernanceService, logger *zap.Logger) *PromptUpdateHandler {
	return &PromptUpdateHandler{
		governance: governance,
		logger:     logger,
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *PromptUpdateHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/prompt-updates", h.List)
	mux.HandleFunc("POST /api/prompt-updates", authMiddleware.WithReviewer(h.Propose))
	mux.HandleFunc("POST /api/prompt-updates/{id}/review", authMiddleware.WithReviewer(h.Review))
	mux.HandleFunc("POST /api/prompt-updates/{id}/apply", authMiddleware.WithReviewer(h.Apply))
	mux.HandleFunc("GET /api/role-prompts/{role}/active", h.ActivePrompt)
}

// List handles GET /api/prompt-updates
func (h *PromptUpdateHandler) List(w http.ResponseWriter, r *http.Request) {
	var caseID *uuid.UUID
	if raw := r.URL.Query().Get("case_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_case_id", "case_id must be a UUID")
			return
		}
		caseID = &id
	}

	updates, err := h.governance.List(r.Context(), caseID, r.URL.Query().Get("status"))
	if err != nil {
		h.logger.Error("Failed to list prompt updates", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_prompt_updates_failed", err.Error())
		return
	}

	if updates == nil {
		updates = []*models.PromptUpdate{}
	}
	if err := WriteJSON(w, http.StatusOK, updates); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Propose handles POST /api/prompt-updates
func (h *PromptUpdateHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req ProposePromptUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.CaseID == uuid.Nil || req.Role == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "case_id and role are required")
		return
	}

	update, err := h.governance.Propose(r.Context(), services.ProposeInput{
		CaseID:      req.CaseID,
		AgentID:     req.AgentID,
		Role:        req.Role,
		FromVersion: req.FromVersion,
		Proposal:    req.Proposal,
		Reason:      req.Reason,
	})
	if err != nil {
		h.writeWorkflowError(w, err, "propose_prompt_update_failed")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, update); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Review handles POST /api/prompt-updates/{id}/review
func (h *PromptUpdateHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUpdateID(w, r)
	if !ok {
		return
	}

	var req ReviewPromptUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Action != models.ReviewActionApprove && req.Action != models.ReviewActionReject {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_action", "action must be approve or reject")
		return
	}

	// An authenticated reviewer wins over the request body; approved_by is
	// a body-level alias for reviewer.
	reviewer := req.Reviewer
	if reviewer == nil {
		reviewer = req.ApprovedBy
	}
	if subject := auth.GetReviewerFromContext(r.Context()); subject != "" {
		reviewer = &subject
	}

	updated, err := h.governance.Review(r.Context(), id, req.Action, req.Comment, reviewer)
	if err != nil {
		h.writeWorkflowError(w, err, "review_prompt_update_failed")
		return
	}

	if req.RedirectURL != "" {
		http.Redirect(w, r, req.RedirectURL, http.StatusSeeOther)
		return
	}
	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Apply handles POST /api/prompt-updates/{id}/apply
func (h *PromptUpdateHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUpdateID(w, r)
	if !ok {
		return
	}

	// The body is optional; an absent or empty body means plain JSON out.
	var req ApplyPromptUpdateRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	result, err := h.governance.Apply(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, err, "apply_prompt_update_failed")
		return
	}

	if req.RedirectURL != "" {
		http.Redirect(w, r, req.RedirectURL, http.StatusSeeOther)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ActivePrompt handles GET /api/role-prompts/{role}/active
func (h *PromptUpdateHandler) ActivePrompt(w http.ResponseWriter, r *http.Request) {
	role := r.PathValue("role")
	if role == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_role", "role is required")
		return
	}

	prompt, err := h.governance.ActivePrompt(r.Context(), role)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "role_prompt_not_found", "no active prompt for role")
			return
		}
		h.logger.Error("Failed to get active prompt", zap.String("role", role), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "get_active_prompt_failed", err.Error())
		return
	}

	if err := WriteJSON(w, http.StatusOK, prompt); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *PromptUpdateHandler) parseUpdateID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_prompt_update_id", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// writeWorkflowError maps workflow and guard errors onto the HTTP surface.
// Guard failures expose the rule name and JSON path but never the text that
// triggered them.
func (h *PromptUpdateHandler) writeWorkflowError(w http.ResponseWriter, err error, fallbackCode string) {
	var unredacted *redaction.UnredactedDataError
	if errors.As(err, &unredacted) {
		_ = SensitiveDataResponse(w, unredacted)
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "prompt_update_not_found", "prompt update not found")
	case errors.Is(err, apperrors.ErrInvalidStatus):
		_ = ErrorResponse(w, http.StatusConflict, "prompt_update_invalid_status", err.Error())
	case errors.Is(err, apperrors.ErrFromVersionMismatch):
		_ = ErrorResponse(w, http.StatusConflict, "prompt_update_from_version_mismatch", err.Error())
	case errors.Is(err, apperrors.ErrInvalidProposal):
		_ = ErrorResponse(w, http.StatusBadRequest, "prompt_update_invalid_proposal", err.Error())
	default:
		h.logger.Error("Prompt governance operation failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}
