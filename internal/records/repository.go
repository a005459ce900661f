package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/goaltracker/internal/allocation"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/store"
)

// Repository reads and writes a user's transactions and goals.
type Repository struct {
	store store.RecordStore
	loc   *time.Location
	now   func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithLocation sets the zone that dates stored as plain text (1/10/2024,
// 2024-01-10) are read in. It should match the pipeline's location so a goal
// and a paycheck from the same day compare as the same day. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(r *Repository) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// NewRepository wraps a record store.
func NewRepository(s store.RecordStore, opts ...Option) *Repository {
	r := &Repository{store: s, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateTransaction appends tx and returns it with its new ID.
func (r *Repository) CreateTransaction(ctx context.Context, uid string, tx domain.Transaction) (domain.Transaction, error) {
	id, err := r.store.Create(ctx, store.TransactionsNamespace(uid), EncodeTransaction(tx, r.now()))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("CreateTransaction: %w", err)
	}
	tx.ID = id
	return tx, nil
}

// ListTransactions returns every readable transaction in store order.
// Unreadable records are logged and skipped.
func (r *Repository) ListTransactions(ctx context.Context, uid string) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)

	recs, err := r.store.List(ctx, store.TransactionsNamespace(uid))
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(recs))
	for _, rec := range recs {
		tx, err := DecodeTransaction(rec.ID, rec.Data, r.loc)
		if err != nil {
			log.Warn().Err(err).Str("user_id", uid).Str("transaction_id", rec.ID).Msg("Skipping unreadable transaction")
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// DeleteTransaction removes a transaction. Goal balances are not touched.
func (r *Repository) DeleteTransaction(ctx context.Context, uid, id string) error {
	if err := r.store.Delete(ctx, store.TransactionsNamespace(uid), id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// CreateGoal persists g and returns it with its new ID.
func (r *Repository) CreateGoal(ctx context.Context, uid string, g domain.Goal) (domain.Goal, error) {
	id, err := r.store.Create(ctx, store.GoalsNamespace(uid), EncodeGoal(g))
	if err != nil {
		return domain.Goal{}, fmt.Errorf("CreateGoal: %w", err)
	}
	g.ID = id
	return g, nil
}

// GetGoal returns one goal, or an error wrapping store.ErrNotFound.
func (r *Repository) GetGoal(ctx context.Context, uid, id string) (domain.Goal, error) {
	doc, err := r.store.Get(ctx, store.GoalsNamespace(uid), id)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("GetGoal: %w", err)
	}
	g, err := DecodeGoal(id, doc, r.loc)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("GetGoal: %w", err)
	}
	return g, nil
}

// ListGoals returns the user's goals. Goals whose total, balance or creation
// date cannot be read are logged and left out. Goals with an unreadable
// amount per paycheck are returned so allocation can report them.
func (r *Repository) ListGoals(ctx context.Context, uid string) ([]domain.Goal, error) {
	log := logger.FromContext(ctx)

	recs, err := r.store.List(ctx, store.GoalsNamespace(uid))
	if err != nil {
		return nil, fmt.Errorf("ListGoals: %w", err)
	}

	goals := make([]domain.Goal, 0, len(recs))
	for _, rec := range recs {
		g, err := DecodeGoal(rec.ID, rec.Data, r.loc)
		if err != nil {
			log.Warn().Err(err).Str("user_id", uid).Str("goal_id", rec.ID).Msg("Skipping unreadable goal")
			continue
		}
		goals = append(goals, g)
	}
	return goals, nil
}

// DeleteGoal removes a goal.
func (r *Repository) DeleteGoal(ctx context.Context, uid, id string) error {
	if err := r.store.Delete(ctx, store.GoalsNamespace(uid), id); err != nil {
		return fmt.Errorf("DeleteGoal: %w", err)
	}
	return nil
}

// ApplyContributions adds every delta to its goal's stored balance in one
// store transaction. Balances are re-read inside the transaction, so the
// balances in the deltas' goal snapshots are ignored. Goals deleted since the
// snapshot are skipped. It returns the goals as written.
func (r *Repository) ApplyContributions(ctx context.Context, uid string, deltas []allocation.Delta) ([]domain.Goal, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	log := logger.FromContext(ctx)
	ns := store.GoalsNamespace(uid)

	var updated []domain.Goal
	err := r.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		updated = updated[:0]

		// All reads happen before the first write.
		current := make([]domain.Goal, 0, len(deltas))
		applied := allocation.Plan{Deltas: make([]allocation.Delta, 0, len(deltas))}
		for _, d := range deltas {
			doc, err := tx.Get(ctx, ns, d.Goal.ID)
			if errors.Is(err, store.ErrNotFound) {
				log.Warn().Str("user_id", uid).Str("goal_id", d.Goal.ID).Msg("Goal deleted before contribution was applied")
				continue
			}
			if err != nil {
				return err
			}
			g, err := DecodeGoal(d.Goal.ID, doc, r.loc)
			if err != nil {
				return err
			}
			current = append(current, g)
			applied.Deltas = append(applied.Deltas, d)
		}

		for _, g := range allocation.Apply(applied, current) {
			if err := tx.Merge(ctx, ns, g.ID, EncodeBalance(g.Balance)); err != nil {
				return err
			}
			updated = append(updated, g)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ApplyContributions: %w", err)
	}
	return updated, nil
}
