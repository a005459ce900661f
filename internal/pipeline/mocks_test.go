package pipeline_test

import (
	"context"
	"sync"

	"github.com/dvloznov/goaltracker/internal/allocation"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/pipeline"
)

// MockRepository is a mock implementation of pipeline.Repository. Nil funcs
// fall through to the embedded repository when one is set.
type MockRepository struct {
	pipeline.Repository

	CreateTransactionFunc  func(ctx context.Context, uid string, tx domain.Transaction) (domain.Transaction, error)
	ListGoalsFunc          func(ctx context.Context, uid string) ([]domain.Goal, error)
	ApplyContributionsFunc func(ctx context.Context, uid string, deltas []allocation.Delta) ([]domain.Goal, error)
}

func (m *MockRepository) CreateTransaction(ctx context.Context, uid string, tx domain.Transaction) (domain.Transaction, error) {
	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, uid, tx)
	}
	return m.Repository.CreateTransaction(ctx, uid, tx)
}

func (m *MockRepository) ListGoals(ctx context.Context, uid string) ([]domain.Goal, error) {
	if m.ListGoalsFunc != nil {
		return m.ListGoalsFunc(ctx, uid)
	}
	return m.Repository.ListGoals(ctx, uid)
}

func (m *MockRepository) ApplyContributions(ctx context.Context, uid string, deltas []allocation.Delta) ([]domain.Goal, error) {
	if m.ApplyContributionsFunc != nil {
		return m.ApplyContributionsFunc(ctx, uid, deltas)
	}
	return m.Repository.ApplyContributions(ctx, uid, deltas)
}

// MockNotifier counts notifications.
type MockNotifier struct {
	mu           sync.Mutex
	Transactions int
	Goals        int
}

func (m *MockNotifier) TransactionsChanged(ctx context.Context, uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transactions++
}

func (m *MockNotifier) GoalsChanged(ctx context.Context, uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Goals++
}

// MockLedgerSink is a mock implementation of pipeline.LedgerSink.
type MockLedgerSink struct {
	RecordTransactionFunc   func(ctx context.Context, uid string, tx domain.Transaction) error
	RecordContributionsFunc func(ctx context.Context, uid string, tx domain.Transaction, contributions []pipeline.Contribution) error
}

func (m *MockLedgerSink) RecordTransaction(ctx context.Context, uid string, tx domain.Transaction) error {
	if m.RecordTransactionFunc != nil {
		return m.RecordTransactionFunc(ctx, uid, tx)
	}
	return nil
}

func (m *MockLedgerSink) RecordContributions(ctx context.Context, uid string, tx domain.Transaction, contributions []pipeline.Contribution) error {
	if m.RecordContributionsFunc != nil {
		return m.RecordContributionsFunc(ctx, uid, tx, contributions)
	}
	return nil
}
