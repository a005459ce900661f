package handlers

import (
	"time"

	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/pipeline"
	"github.com/shopspring/decimal"
)

type transactionView struct {
	ID                string           `json:"id"`
	Amount            decimal.Decimal  `json:"amount"`
	Date              time.Time        `json:"date"`
	ContributeToGoals string           `json:"contribute_to_goals"`
	Description       string           `json:"description"`
	RunningBalance    *decimal.Decimal `json:"running_balance,omitempty"`
}

func newTransactionView(tx domain.Transaction) transactionView {
	return transactionView{
		ID:                tx.ID,
		Amount:            tx.Amount,
		Date:              tx.Date,
		ContributeToGoals: tx.ContributeToGoals.String(),
		Description:       tx.Description,
	}
}

func newLedgerView(entries []pipeline.LedgerEntry) []transactionView {
	views := make([]transactionView, len(entries))
	for i, e := range entries {
		views[i] = newTransactionView(e.Transaction)
		balance := e.RunningBalance
		views[i].RunningBalance = &balance
	}
	return views
}

type goalView struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Total             decimal.Decimal  `json:"total"`
	AmountPerPaycheck *decimal.Decimal `json:"amount_per_paycheck"` // null when unreadable
	Balance           decimal.Decimal  `json:"balance"`
	Progress          decimal.Decimal  `json:"progress"`
	DateCreated       string           `json:"date_created"`
}

func newGoalView(g domain.Goal) goalView {
	v := goalView{
		ID:          g.ID,
		Name:        g.Name,
		Total:       g.Total,
		Balance:     g.Balance,
		Progress:    g.Progress().Round(4),
		DateCreated: g.DateCreated.Format(dateFormat),
	}
	if g.AmountPerPaycheck.Valid {
		amount := g.AmountPerPaycheck.Decimal
		v.AmountPerPaycheck = &amount
	}
	return v
}

func newGoalViews(goals []domain.Goal) []goalView {
	views := make([]goalView, len(goals))
	for i, g := range goals {
		views[i] = newGoalView(g)
	}
	return views
}

type contributionView struct {
	GoalID string          `json:"goal_id"`
	Amount decimal.Decimal `json:"amount"`
}

type ingestView struct {
	Transaction   transactionView    `json:"transaction"`
	Outcome       string             `json:"outcome"`
	Contributions []contributionView `json:"contributions"`
	Goals         []goalView         `json:"goals"`
}

func newIngestView(result *pipeline.IngestResult) ingestView {
	v := ingestView{
		Transaction:   newTransactionView(result.Transaction),
		Outcome:       string(result.Plan.Outcome),
		Contributions: make([]contributionView, 0, len(result.Plan.Deltas)),
		Goals:         newGoalViews(result.Updated),
	}
	for _, d := range result.Plan.Deltas {
		v.Contributions = append(v.Contributions, contributionView{GoalID: d.Goal.ID, Amount: d.Amount})
	}
	return v
}
