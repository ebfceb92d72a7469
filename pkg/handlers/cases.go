package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GSN-OMG/Prism/pkg/apperrors"
	"github.com/GSN-OMG/Prism/pkg/models"
	"github.com/GSN-OMG/Prism/pkg/services"
)

// CaseHandler serves the read-only case browsing endpoints consumed by the
// review UI.
type CaseHandler struct {
	cases  services.CaseService
	logger *zap.Logger
}

// NewCaseHandler creates a new case handler.
func NewCaseHandler(cases services.CaseService, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{
		cases:  cases,
		logger: logger,
	}
}

// RegisterRoutes registers the case handler's routes on the given mux.
func (h *CaseHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cases", h.List)
	mux.HandleFunc("GET /api/cases/{id}", h.Get)
	mux.HandleFunc("GET /api/cases/{id}/events", h.ListEvents)
	mux.HandleFunc("GET /api/cases/{id}/court-runs", h.ListCourtRuns)
}

// List handles GET /api/cases
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	cases, err := h.cases.ListCases(r.Context())
	if err != nil {
		h.logger.Error("Failed to list cases", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_cases_failed", err.Error())
		return
	}

	if cases == nil {
		cases = []*models.CaseWithLatestRun{}
	}
	if err := WriteJSON(w, http.StatusOK, cases); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/cases/{id}
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	caseRow, err := h.cases.GetCase(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "case_not_found", "case not found")
			return
		}
		h.logger.Error("Failed to get case", zap.String("case_id", id.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "get_case_failed", err.Error())
		return
	}

	if err := WriteJSON(w, http.StatusOK, caseRow); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListEvents handles GET /api/cases/{id}/events
func (h *CaseHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filters := models.CaseEventFilters{
		ActorType: query.Get("actor_type"),
		ActorID:   query.Get("actor_id"),
		Role:      query.Get("role"),
		EventType: query.Get("event_type"),
		Stage:     query.Get("stage"),
	}

	events, err := h.cases.ListEvents(r.Context(), id, filters)
	if err != nil {
		h.logger.Error("Failed to list case events", zap.String("case_id", id.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_case_events_failed", err.Error())
		return
	}

	if events == nil {
		events = []*models.CaseEvent{}
	}
	if err := WriteJSON(w, http.StatusOK, events); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListCourtRuns handles GET /api/cases/{id}/court-runs
func (h *CaseHandler) ListCourtRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseCaseID(w, r)
	if !ok {
		return
	}

	runs, err := h.cases.ListCourtRuns(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list court runs", zap.String("case_id", id.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_court_runs_failed", err.Error())
		return
	}

	if runs == nil {
		runs = []*models.CourtRun{}
	}
	if err := WriteJSON(w, http.StatusOK, runs); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *CaseHandler) parseCaseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_case_id", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
