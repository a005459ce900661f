package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/goaltracker/internal/allocation"
	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/notify"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *IngestState) error
}

// IngestState holds the shared state across all pipeline steps.
type IngestState struct {
	User        auth.User
	Now         time.Time
	Transaction domain.Transaction // input, then the persisted transaction
	Goals       []domain.Goal      // snapshot fetched for allocation
	Plan        allocation.Plan
	Updated     []domain.Goal // goals as written by ApplyContributionsStep
}

// Step 1: NormalizeDateStep replaces a date of today with the current time so
// same-day entries keep their order.
type NormalizeDateStep struct{}

func (s *NormalizeDateStep) Execute(ctx context.Context, state *IngestState) error {
	if domain.SameDay(state.Now, state.Transaction.Date) {
		state.Transaction.Date = state.Now
	}
	return nil
}

// Step 2: PersistTransactionStep appends the transaction to the user's records.
type PersistTransactionStep struct {
	Repo Repository
}

func (s *PersistTransactionStep) Execute(ctx context.Context, state *IngestState) error {
	saved, err := s.Repo.CreateTransaction(ctx, state.User.UID, state.Transaction)
	if err != nil {
		return err
	}
	state.Transaction = saved
	return nil
}

// Step 3: RecordTransactionStep copies the transaction to the ledger sink.
type RecordTransactionStep struct {
	Sink LedgerSink
}

func (s *RecordTransactionStep) Execute(ctx context.Context, state *IngestState) error {
	if s.Sink == nil {
		return nil
	}
	if err := s.Sink.RecordTransaction(ctx, state.User.UID, state.Transaction); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).
			Str("user_id", state.User.UID).
			Str("transaction_id", state.Transaction.ID).
			Msg("Failed to record transaction in ledger")
	}
	return nil
}

// Step 4: FetchGoalsStep loads the goal snapshot for eligible transactions.
type FetchGoalsStep struct {
	Repo Repository
}

func (s *FetchGoalsStep) Execute(ctx context.Context, state *IngestState) error {
	if !allocation.Eligible(state.Transaction) {
		return nil
	}
	goals, err := s.Repo.ListGoals(ctx, state.User.UID)
	if err != nil {
		return err
	}
	state.Goals = goals
	return nil
}

// Step 5: AllocateStep runs the allocation engine.
type AllocateStep struct{}

func (s *AllocateStep) Execute(ctx context.Context, state *IngestState) error {
	state.Plan = allocation.Allocate(state.Transaction, state.Goals)

	log := logger.FromContext(ctx)
	for _, a := range state.Plan.Anomalies {
		log.Warn().Err(a.Err).
			Str("user_id", state.User.UID).
			Str("goal_id", a.GoalID).
			Str("field", a.Field).
			Msg("Goal excluded from allocation")
	}
	log.Debug().
		Str("user_id", state.User.UID).
		Str("transaction_id", state.Transaction.ID).
		Str("outcome", string(state.Plan.Outcome)).
		Int("deltas", len(state.Plan.Deltas)).
		Msg("Allocation computed")
	return nil
}

// Step 6: ApplyContributionsStep writes every delta in one store transaction.
type ApplyContributionsStep struct {
	Repo Repository
	Sink LedgerSink
}

func (s *ApplyContributionsStep) Execute(ctx context.Context, state *IngestState) error {
	if len(state.Plan.Deltas) == 0 {
		return nil
	}

	updated, err := s.Repo.ApplyContributions(ctx, state.User.UID, state.Plan.Deltas)
	if err != nil {
		return err
	}
	state.Updated = updated

	if s.Sink == nil || len(updated) == 0 {
		return nil
	}

	amounts := make(map[string]allocation.Delta, len(state.Plan.Deltas))
	for _, d := range state.Plan.Deltas {
		amounts[d.Goal.ID] = d
	}
	contributions := make([]Contribution, 0, len(updated))
	for _, g := range updated {
		contributions = append(contributions, Contribution{
			GoalID:       g.ID,
			GoalName:     g.Name,
			Amount:       amounts[g.ID].Amount,
			BalanceAfter: g.Balance,
		})
	}
	if err := s.Sink.RecordContributions(ctx, state.User.UID, state.Transaction, contributions); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).
			Str("user_id", state.User.UID).
			Str("transaction_id", state.Transaction.ID).
			Msg("Failed to record contributions in ledger")
	}
	return nil
}

// Step 7: NotifyStep tells subscribers that both the transaction and goal
// views changed.
type NotifyStep struct {
	Notifier notify.Notifier
}

func (s *NotifyStep) Execute(ctx context.Context, state *IngestState) error {
	s.Notifier.TransactionsChanged(ctx, state.User.UID)
	s.Notifier.GoalsChanged(ctx, state.User.UID)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially. The first failing
// step aborts the rest; earlier writes are not undone.
func (p *Pipeline) Execute(ctx context.Context, state *IngestState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewIngestionPipeline creates the standard 7-step pipeline for ingesting a
// single transaction.
func NewIngestionPipeline(repo Repository, sink LedgerSink, notifier notify.Notifier) *Pipeline {
	return NewPipeline(
		&NormalizeDateStep{},
		&PersistTransactionStep{Repo: repo},
		&RecordTransactionStep{Sink: sink},
		&FetchGoalsStep{Repo: repo},
		&AllocateStep{},
		&ApplyContributionsStep{Repo: repo, Sink: sink},
		&NotifyStep{Notifier: notifier},
	)
}
