package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/goaltracker/internal/api/middleware"
	"github.com/dvloznov/goaltracker/internal/domain"
	infraBQ "github.com/dvloznov/goaltracker/internal/infra/bigquery"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/pipeline"
)

// GoalsHandler handles goal endpoints.
type GoalsHandler struct {
	service     GoalService
	history     ContributionHistory
	maxBodySize int64
}

// NewGoalsHandler creates a new goals handler. history may be nil when no
// ledger is configured.
func NewGoalsHandler(service GoalService, history ContributionHistory, maxBodySize int64) *GoalsHandler {
	return &GoalsHandler{
		service:     service,
		history:     history,
		maxBodySize: maxBodySize,
	}
}

// ListGoals handles GET /api/goals
func (h *GoalsHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	goals, err := h.service.ListGoals(r.Context(), user)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list goals")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list goals")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"goals": newGoalViews(goals),
		"count": len(goals),
	})
}

// CreateGoal handles POST /api/goals
func (h *GoalsHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Name              string `json:"name"`
		AmountPerPaycheck string `json:"amount_per_paycheck"`
		Total             string `json:"total"`
	}
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := h.service.CreateGoal(r.Context(), user, req.Name, req.AmountPerPaycheck, req.Total)
	if errors.Is(err, domain.ErrInvalidGoal) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create goal")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, newGoalView(*goal))
}

// GetGoal handles GET /api/goals/{id}
func (h *GoalsHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	goal, err := h.service.GetGoal(r.Context(), user, id)
	if errors.Is(err, pipeline.ErrGoalNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Goal not found")
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("goal_id", id).Msg("Failed to get goal")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get goal")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, newGoalView(*goal))
}

// DeleteGoal handles DELETE /api/goals/{id}
func (h *GoalsHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.service.DeleteGoal(r.Context(), user, id); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("goal_id", id).Msg("Failed to delete goal")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete goal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListContributions handles GET /api/goals/{id}/contributions
func (h *GoalsHandler) ListContributions(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.history == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Contribution history is not configured")
		return
	}

	id := r.PathValue("id")
	records, err := h.history.QueryContributions(r.Context(), user.UID, id)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("goal_id", id).Msg("Failed to query contributions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query contributions")
		return
	}
	if records == nil {
		records = []infraBQ.ContributionRecord{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"goal_id":       id,
		"contributions": records,
		"count":         len(records),
	})
}
