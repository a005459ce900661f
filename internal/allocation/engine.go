// Package allocation decides how much of an income transaction flows into
// each savings goal. It holds no state: every call is a pure function of the
// transaction and the goal snapshot it is given.
package allocation

import (
	"errors"

	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedAmount marks a goal whose amount per paycheck is not a number.
	ErrMalformedAmount = errors.New("amount per paycheck is not a number")
	// ErrNegativeAmount marks a stored goal whose amount per paycheck is below
	// zero. Allocating it would lower the balance.
	ErrNegativeAmount = errors.New("amount per paycheck is negative")
)

// Outcome names the rule that decided a Plan.
type Outcome string

const (
	OutcomeAllocated       Outcome = "allocated"
	OutcomeNotIncome       Outcome = "not_income"
	OutcomeNotContributing Outcome = "not_contributing"
	OutcomeInsufficient    Outcome = "insufficient"
	OutcomeNoEligibleGoals Outcome = "no_eligible_goals"
)

// Delta is the amount to add to one goal's balance.
type Delta struct {
	Goal   domain.Goal
	Amount decimal.Decimal
}

// Anomaly describes a goal that was excluded because its record is unreadable
// or holds a value no valid goal can have.
type Anomaly struct {
	GoalID string
	Field  string
	Err    error
}

// Plan is the result of one allocation run.
type Plan struct {
	Outcome   Outcome
	GoalTotal decimal.Decimal // sum of readable, non-negative per-paycheck amounts
	Deltas    []Delta
	Deferred  []string // ids of goals created after the transaction date
	Anomalies []Anomaly
	Notify    bool // true when Deltas is non-empty
}

// Eligible reports whether tx can fund goals at all. Callers use it to skip
// loading goals for transactions that can never contribute.
func Eligible(tx domain.Transaction) bool {
	return eligibility(tx) == ""
}

func eligibility(tx domain.Transaction) Outcome {
	if !tx.Amount.IsPositive() || !tx.Income() {
		return OutcomeNotIncome
	}
	// Only an explicit yes qualifies; no and unset both keep money out of goals.
	if tx.ContributeToGoals != domain.ContributeYes {
		return OutcomeNotContributing
	}
	return ""
}

// Allocate computes the per-goal deltas for tx.
//
// The transaction must cover the sum of every readable goal's amount per
// paycheck, including goals created after the transaction date; otherwise
// nothing is allocated. Each goal created on or before the transaction date
// then receives exactly its amount per paycheck.
func Allocate(tx domain.Transaction, goals []domain.Goal) Plan {
	if outcome := eligibility(tx); outcome != "" {
		return Plan{Outcome: outcome, GoalTotal: decimal.Zero}
	}

	plan := Plan{GoalTotal: decimal.Zero}
	readable := make([]domain.Goal, 0, len(goals))
	for _, g := range goals {
		if !g.AmountPerPaycheck.Valid {
			plan.Anomalies = append(plan.Anomalies, Anomaly{
				GoalID: g.ID,
				Field:  "amountPerPaycheck",
				Err:    ErrMalformedAmount,
			})
			continue
		}
		if g.AmountPerPaycheck.Decimal.IsNegative() {
			plan.Anomalies = append(plan.Anomalies, Anomaly{
				GoalID: g.ID,
				Field:  "amountPerPaycheck",
				Err:    ErrNegativeAmount,
			})
			continue
		}
		plan.GoalTotal = plan.GoalTotal.Add(g.AmountPerPaycheck.Decimal)
		readable = append(readable, g)
	}

	if tx.Amount.LessThan(plan.GoalTotal) {
		plan.Outcome = OutcomeInsufficient
		return plan
	}

	for _, g := range readable {
		if g.DateCreated.After(tx.Date) {
			plan.Deferred = append(plan.Deferred, g.ID)
			continue
		}
		plan.Deltas = append(plan.Deltas, Delta{Goal: g, Amount: g.AmountPerPaycheck.Decimal})
	}

	plan.Notify = len(plan.Deltas) > 0
	if plan.Notify {
		plan.Outcome = OutcomeAllocated
	} else {
		plan.Outcome = OutcomeNoEligibleGoals
	}
	return plan
}

// Apply returns a copy of goals with every delta in plan added to its balance.
// Goals are matched by ID.
func Apply(plan Plan, goals []domain.Goal) []domain.Goal {
	byID := make(map[string]decimal.Decimal, len(plan.Deltas))
	for _, d := range plan.Deltas {
		byID[d.Goal.ID] = byID[d.Goal.ID].Add(d.Amount)
	}

	out := make([]domain.Goal, len(goals))
	for i, g := range goals {
		if delta, ok := byID[g.ID]; ok {
			g.Balance = g.Balance.Add(delta)
		}
		out[i] = g
	}
	return out
}
