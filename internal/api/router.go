// Package api assembles the HTTP routes and middleware chain.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/goaltracker/internal/api/handlers"
	"github.com/dvloznov/goaltracker/internal/api/middleware"
	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/jobs"
	"github.com/rs/zerolog"
)

// Deps are the components the routes are served from. History and Events
// may be nil.
type Deps struct {
	Service     handlers.GoalService
	History     handlers.ContributionHistory
	Events      handlers.Subscriber
	Publisher   jobs.Publisher
	JobStore    jobs.JobStore
	Tokens      *auth.Tokens
	Location    *time.Location
	Log         zerolog.Logger
	CORSOrigin  string
	MaxBodySize int64
	RatePerSec  float64
	RateBurst   int
}

// NewRouter returns the API handler with the full middleware chain applied.
func NewRouter(d Deps) http.Handler {
	transactionsHandler := handlers.NewTransactionsHandler(d.Service, d.Location, d.MaxBodySize)
	goalsHandler := handlers.NewGoalsHandler(d.Service, d.History, d.MaxBodySize)
	jobsHandler := handlers.NewJobsHandler(d.Publisher, d.JobStore, d.MaxBodySize)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/transactions", transactionsHandler.ListTransactions)
	mux.HandleFunc("POST /api/transactions", transactionsHandler.CreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactionsHandler.DeleteTransaction)
	mux.HandleFunc("POST /api/paychecks", transactionsHandler.InputPaycheck)

	mux.HandleFunc("GET /api/goals", goalsHandler.ListGoals)
	mux.HandleFunc("POST /api/goals", goalsHandler.CreateGoal)
	mux.HandleFunc("GET /api/goals/{id}", goalsHandler.GetGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", goalsHandler.DeleteGoal)
	mux.HandleFunc("GET /api/goals/{id}/contributions", goalsHandler.ListContributions)

	mux.HandleFunc("POST /api/imports", jobsHandler.EnqueueImport)
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	if d.Events != nil {
		mux.HandleFunc("GET /api/events", handlers.NewEventsHandler(d.Events).Stream)
	}

	mux.HandleFunc("GET /health", handlers.Health)

	rateLimiter := middleware.NewRateLimiter(d.RatePerSec, d.RateBurst)
	idempotency := middleware.NewIdempotency(24 * time.Hour)

	// Outermost first: recovery, request id, logging, CORS, auth, then the
	// per-user concerns that need the authenticated user.
	return middleware.Recovery(d.Log)(
		middleware.RequestID(
			middleware.Logger(d.Log)(
				middleware.CORS(d.CORSOrigin)(
					middleware.Auth(d.Tokens)(
						rateLimiter.Middleware(
							idempotency.Middleware(mux),
						),
					),
				),
			),
		),
	)
}
