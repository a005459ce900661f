// Package handlers implements the HTTP endpoints of the goal tracker API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dvloznov/goaltracker/internal/api/middleware"
	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/domain"
	infraBQ "github.com/dvloznov/goaltracker/internal/infra/bigquery"
	"github.com/dvloznov/goaltracker/internal/pipeline"
	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

// GoalService is the part of pipeline.Service the API uses.
type GoalService interface {
	Ingest(ctx context.Context, user auth.User, tx domain.Transaction) (*pipeline.IngestResult, error)
	InputPaycheck(ctx context.Context, user auth.User, amount decimal.Decimal, date time.Time, contribute bool) (*pipeline.IngestResult, error)
	CreateGoal(ctx context.Context, user auth.User, name, amountPerPaycheck, total string) (*domain.Goal, error)
	GetGoal(ctx context.Context, user auth.User, id string) (*domain.Goal, error)
	ListGoals(ctx context.Context, user auth.User) ([]domain.Goal, error)
	DeleteGoal(ctx context.Context, user auth.User, id string) error
	ListTransactions(ctx context.Context, user auth.User) ([]pipeline.LedgerEntry, error)
	DeleteTransaction(ctx context.Context, user auth.User, id string) error
}

// ContributionHistory reads a goal's contributions from the ledger.
type ContributionHistory interface {
	QueryContributions(ctx context.Context, uid, goalID string) ([]infraBQ.ContributionRecord, error)
}

// requireUser returns the signed-in user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	user := auth.FromContext(r.Context())
	if !user.SignedIn() {
		middleware.WriteError(w, http.StatusUnauthorized, "Sign in required")
		return auth.User{}, false
	}
	return user, true
}

// decodeJSON decodes a size-limited request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	body := io.Reader(r.Body)
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("Invalid request body")
	}
	return nil
}

// parseDate reads YYYY-MM-DD in loc. Empty input means now.
func parseDate(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		return now.In(loc), nil
	}
	return time.ParseInLocation(dateFormat, s, loc)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
