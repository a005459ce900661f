package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/goaltracker/internal/api/middleware"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/pipeline"
	"github.com/shopspring/decimal"
)

// TransactionsHandler handles transaction and paycheck endpoints.
type TransactionsHandler struct {
	service     GoalService
	loc         *time.Location
	maxBodySize int64
	now         func() time.Time
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(service GoalService, loc *time.Location, maxBodySize int64) *TransactionsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TransactionsHandler{
		service:     service,
		loc:         loc,
		maxBodySize: maxBodySize,
		now:         time.Now,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListTransactions(r.Context(), user)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": newLedgerView(entries),
		"count":        len(entries),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount            string `json:"amount"`
		Date              string `json:"date"`
		Description       string `json:"description"`
		ContributeToGoals *bool  `json:"contribute_to_goals"`
	}
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be a number")
		return
	}
	date, err := parseDate(req.Date, h.loc, h.now())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	contribute := domain.ContributeUnset
	if req.ContributeToGoals != nil {
		contribute = domain.ContributionFromBool(*req.ContributeToGoals)
	}

	result, err := h.service.Ingest(r.Context(), user, domain.NewTransaction(amount, date, contribute, req.Description))
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, newIngestView(result))
}

// InputPaycheck handles POST /api/paychecks
func (h *TransactionsHandler) InputPaycheck(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount     string `json:"amount"`
		Date       string `json:"date"`
		Contribute *bool  `json:"contribute"`
	}
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be a number")
		return
	}
	date, err := parseDate(req.Date, h.loc, h.now())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	contribute := true
	if req.Contribute != nil {
		contribute = *req.Contribute
	}

	result, err := h.service.InputPaycheck(r.Context(), user, amount, date, contribute)
	if errors.Is(err, pipeline.ErrNonPositivePaycheck) {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record paycheck")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, newIngestView(result))
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.service.DeleteTransaction(r.Context(), user, id); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
