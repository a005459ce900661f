package pipeline

import (
	"context"

	"github.com/dvloznov/goaltracker/internal/allocation"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository is the record store as seen by the pipeline.
// records.Repository is the production implementation.
type Repository interface {
	CreateTransaction(ctx context.Context, uid string, tx domain.Transaction) (domain.Transaction, error)
	ListTransactions(ctx context.Context, uid string) ([]domain.Transaction, error)
	DeleteTransaction(ctx context.Context, uid, id string) error

	CreateGoal(ctx context.Context, uid string, g domain.Goal) (domain.Goal, error)
	GetGoal(ctx context.Context, uid, id string) (domain.Goal, error)
	ListGoals(ctx context.Context, uid string) ([]domain.Goal, error)
	DeleteGoal(ctx context.Context, uid, id string) error

	// ApplyContributions adds every delta to its goal's balance atomically
	// and returns the goals as written.
	ApplyContributions(ctx context.Context, uid string, deltas []allocation.Delta) ([]domain.Goal, error)
}

// Contribution is one applied goal delta, as reported to a LedgerSink.
type Contribution struct {
	GoalID       string
	GoalName     string
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
}

// LedgerSink receives a copy of every persisted transaction and applied
// contribution for analytics. Failures are logged by the pipeline and never
// fail an ingest.
type LedgerSink interface {
	RecordTransaction(ctx context.Context, uid string, tx domain.Transaction) error
	RecordContributions(ctx context.Context, uid string, tx domain.Transaction, contributions []Contribution) error
}
