package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/pipeline"
	"github.com/shopspring/decimal"
)

type ContributionRow struct {
	ContributionID string `bigquery:"contribution_id"` // REQUIRED, transaction_id:goal_id
	UserID         string `bigquery:"user_id"`         // REQUIRED
	GoalID         string `bigquery:"goal_id"`         // REQUIRED
	GoalName       string `bigquery:"goal_name"`       // NULLABLE
	TransactionID  string `bigquery:"transaction_id"`  // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC
	BalanceAfter *big.Rat `bigquery:"balance_after"` // REQUIRED NUMERIC

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// Save implements bigquery.ValueSaver.
func (r *ContributionRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"contribution_id":  r.ContributionID,
		"user_id":          r.UserID,
		"goal_id":          r.GoalID,
		"goal_name":        r.GoalName,
		"transaction_id":   r.TransactionID,
		"transaction_date": r.TransactionDate,
		"amount":           r.Amount,
		"balance_after":    r.BalanceAfter,
		"created_ts":       r.CreatedTS,
	}, r.ContributionID, nil
}

// NewContributionRows converts the contributions one transaction made.
func NewContributionRows(uid string, tx domain.Transaction, contributions []pipeline.Contribution, now time.Time) []*ContributionRow {
	rows := make([]*ContributionRow, 0, len(contributions))
	for _, c := range contributions {
		rows = append(rows, &ContributionRow{
			ContributionID:  tx.ID + ":" + c.GoalID,
			UserID:          uid,
			GoalID:          c.GoalID,
			GoalName:        c.GoalName,
			TransactionID:   tx.ID,
			TransactionDate: civil.DateOf(tx.Date),
			Amount:          decimalToRat(c.Amount),
			BalanceAfter:    decimalToRat(c.BalanceAfter),
			CreatedTS:       now,
		})
	}
	return rows
}

// ContributionRecord is a stored contribution read back for display.
type ContributionRecord struct {
	TransactionID   string          `json:"transaction_id"`
	TransactionDate string          `json:"transaction_date"`
	Amount          decimal.Decimal `json:"amount"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Record converts a row read back from the ledger.
func (r ContributionRow) Record() ContributionRecord {
	return ContributionRecord{
		TransactionID:   r.TransactionID,
		TransactionDate: r.TransactionDate.String(),
		Amount:          ratToDecimal(r.Amount),
		BalanceAfter:    ratToDecimal(r.BalanceAfter),
		CreatedAt:       r.CreatedTS,
	}
}
