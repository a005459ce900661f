// Package pipeline records transactions and routes qualifying paychecks into
// the user's savings goals.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dvloznov/goaltracker/internal/allocation"
	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/notify"
	"github.com/dvloznov/goaltracker/internal/statement"
	"github.com/dvloznov/goaltracker/internal/store"
	"github.com/shopspring/decimal"
)

var (
	// ErrNonPositivePaycheck is returned by InputPaycheck for amounts <= 0.
	ErrNonPositivePaycheck = errors.New("paycheck amount must be positive")
	// ErrGoalNotFound is returned by GetGoal for an unknown goal id.
	ErrGoalNotFound = errors.New("goal not found")
)

// PaycheckDescription is the description of transactions made by InputPaycheck.
const PaycheckDescription = "Paycheck"

// IngestResult describes one ingested transaction.
type IngestResult struct {
	Transaction domain.Transaction
	Plan        allocation.Plan
	Updated     []domain.Goal
}

// RowError is a statement row that could not be ingested.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// BatchReport summarizes a statement import.
type BatchReport struct {
	Imported  int // rows persisted as transactions
	Allocated int // rows whose allocation applied at least one delta
	Skipped   int // rows with an empty required field
	Errors    []RowError
}

// LedgerEntry is a transaction together with the balance after it.
type LedgerEntry struct {
	Transaction    domain.Transaction
	RunningBalance decimal.Decimal
}

// Service is the entry point for every user-facing operation. Every method
// takes the acting user explicitly; a user that is not signed in gets nil
// results and no error.
type Service struct {
	repo     Repository
	sink     LedgerSink
	notifier notify.Notifier
	pipeline *Pipeline
	loc      *time.Location
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLedgerSink copies transactions and contributions to sink.
func WithLedgerSink(sink LedgerSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithLocation sets the zone used to decide what "today" is and to read
// statement dates. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service. notifier may be nil.
func NewService(repo Repository, notifier notify.Notifier, opts ...Option) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Service{
		repo:     repo,
		notifier: notifier,
		loc:      time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pipeline = NewIngestionPipeline(repo, s.sink, notifier)
	return s
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

// Ingest persists tx and, when it qualifies, adds each eligible goal's amount
// per paycheck to that goal's balance.
func (s *Service) Ingest(ctx context.Context, user auth.User, tx domain.Transaction) (*IngestResult, error) {
	if !user.SignedIn() {
		return nil, nil
	}

	ctx, log := logger.WithUser(ctx, user.UID)

	state := &IngestState{
		User:        user,
		Now:         s.clock(),
		Transaction: domain.NewTransaction(tx.Amount, tx.Date, tx.ContributeToGoals, tx.Description),
	}
	if err := s.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("description", tx.Description).Msg("Ingest failed")
		return nil, fmt.Errorf("Ingest: %w", err)
	}

	return &IngestResult{
		Transaction: state.Transaction,
		Plan:        state.Plan,
		Updated:     state.Updated,
	}, nil
}

// InputPaycheck ingests a transaction described as "Paycheck".
func (s *Service) InputPaycheck(ctx context.Context, user auth.User, amount decimal.Decimal, date time.Time, contribute bool) (*IngestResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("InputPaycheck: %w: got %s", ErrNonPositivePaycheck, amount)
	}
	tx := domain.NewTransaction(amount, date, domain.ContributionFromBool(contribute), PaycheckDescription)
	return s.Ingest(ctx, user, tx)
}

// IngestBatch ingests statement rows one at a time in input order. A row that
// fails is recorded in the report and the remaining rows still run.
func (s *Service) IngestBatch(ctx context.Context, user auth.User, rows []statement.RawRow, contribute bool) *BatchReport {
	if !user.SignedIn() {
		return nil
	}

	log := logger.FromContext(ctx)
	report := &BatchReport{}
	for _, raw := range rows {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, RowError{Line: raw.Line, Err: err})
			continue
		}

		row, err := statement.ParseRow(raw, s.loc)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Line: raw.Line, Err: err})
			continue
		}

		tx := domain.NewTransaction(row.Amount, row.Date, domain.ContributionFromBool(contribute), row.Description)
		result, err := s.Ingest(ctx, user, tx)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Line: raw.Line, Err: err})
			continue
		}
		report.Imported++
		if len(result.Updated) > 0 {
			report.Allocated++
		}
	}

	log.Info().
		Str("user_id", user.UID).
		Int("imported", report.Imported).
		Int("allocated", report.Allocated).
		Int("failed", len(report.Errors)).
		Msg("Statement rows ingested")
	return report
}

// ImportCSV parses a statement export and ingests its rows.
func (s *Service) ImportCSV(ctx context.Context, user auth.User, r io.Reader, contribute bool) (*BatchReport, error) {
	if !user.SignedIn() {
		return nil, nil
	}

	parsed, err := statement.ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("ImportCSV: %w", err)
	}

	report := s.IngestBatch(ctx, user, parsed.Rows, contribute)
	report.Skipped = parsed.Skipped
	return report, nil
}

// CreateGoal validates and persists a new goal with a zero balance.
func (s *Service) CreateGoal(ctx context.Context, user auth.User, name, amountPerPaycheck, total string) (*domain.Goal, error) {
	g, err := domain.ParseGoal(name, amountPerPaycheck, total, s.clock())
	if err != nil {
		return nil, fmt.Errorf("CreateGoal: %w", err)
	}
	if !user.SignedIn() {
		return nil, nil
	}

	saved, err := s.repo.CreateGoal(ctx, user.UID, g)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("user_id", user.UID).Str("goal", name).Msg("Failed to create goal")
		return nil, fmt.Errorf("CreateGoal: %w", err)
	}

	s.notifier.GoalsChanged(ctx, user.UID)
	return &saved, nil
}

// GetGoal returns one of the user's goals.
func (s *Service) GetGoal(ctx context.Context, user auth.User, id string) (*domain.Goal, error) {
	if !user.SignedIn() {
		return nil, nil
	}

	g, err := s.repo.GetGoal(ctx, user.UID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("GetGoal: %w: %s", ErrGoalNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("GetGoal: %w", err)
	}
	return &g, nil
}

// ListGoals returns the user's goals ordered by creation date, then name.
func (s *Service) ListGoals(ctx context.Context, user auth.User) ([]domain.Goal, error) {
	if !user.SignedIn() {
		return nil, nil
	}

	goals, err := s.repo.ListGoals(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("ListGoals: %w", err)
	}
	sort.SliceStable(goals, func(i, j int) bool {
		if !goals[i].DateCreated.Equal(goals[j].DateCreated) {
			return goals[i].DateCreated.Before(goals[j].DateCreated)
		}
		return goals[i].Name < goals[j].Name
	})
	return goals, nil
}

// DeleteGoal removes a goal.
func (s *Service) DeleteGoal(ctx context.Context, user auth.User, id string) error {
	if !user.SignedIn() {
		return nil
	}
	if err := s.repo.DeleteGoal(ctx, user.UID, id); err != nil {
		return fmt.Errorf("DeleteGoal: %w", err)
	}
	s.notifier.GoalsChanged(ctx, user.UID)
	return nil
}

// ListTransactions returns the user's transactions in date order, each with
// the running balance after it.
func (s *Service) ListTransactions(ctx context.Context, user auth.User) ([]LedgerEntry, error) {
	if !user.SignedIn() {
		return nil, nil
	}

	txs, err := s.repo.ListTransactions(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})

	entries := make([]LedgerEntry, len(txs))
	balance := decimal.Zero
	for i, tx := range txs {
		balance = balance.Add(tx.Amount)
		entries[i] = LedgerEntry{Transaction: tx, RunningBalance: balance}
	}
	return entries, nil
}

// DeleteTransaction removes a transaction. Contributions it made to goals
// stay in the goal balances.
func (s *Service) DeleteTransaction(ctx context.Context, user auth.User, id string) error {
	if !user.SignedIn() {
		return nil
	}
	if err := s.repo.DeleteTransaction(ctx, user.UID, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	s.notifier.TransactionsChanged(ctx, user.UID)
	return nil
}

// SampleTransactions returns the demo data set, dated relative to now.
func SampleTransactions(now time.Time) []domain.Transaction {
	loc := now.Location()
	return []domain.Transaction{
		domain.NewTransaction(decimal.NewFromInt(5000), time.Date(2023, time.November, 1, 0, 0, 0, 0, loc), domain.ContributeUnset, "Salary"),
		domain.NewTransaction(decimal.NewFromInt(-250), time.Date(2023, time.November, 2, 0, 0, 0, 0, loc), domain.ContributeUnset, "Groceries"),
		domain.NewTransaction(decimal.NewFromInt(500), now, domain.ContributeYes, PaycheckDescription),
		domain.NewTransaction(decimal.RequireFromString("-44.99"), now, domain.ContributeUnset, "Xbox Controller"),
	}
}

// SeedSampleTransactions ingests the demo data set for user.
func (s *Service) SeedSampleTransactions(ctx context.Context, user auth.User) ([]IngestResult, error) {
	if !user.SignedIn() {
		return nil, nil
	}

	var results []IngestResult
	for _, tx := range SampleTransactions(s.clock()) {
		result, err := s.Ingest(ctx, user, tx)
		if err != nil {
			return results, fmt.Errorf("SeedSampleTransactions: %w", err)
		}
		results = append(results, *result)
	}
	return results, nil
}
