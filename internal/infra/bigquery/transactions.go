package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Transaction directions.
const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	BookedTS        time.Time  `bigquery:"booked_ts"`        // REQUIRED, full timestamp after normalization

	Amount    *big.Rat `bigquery:"amount"`    // REQUIRED NUMERIC
	Direction string   `bigquery:"direction"` // REQUIRED

	Description       string `bigquery:"description"`         // REQUIRED STRING
	ContributeToGoals string `bigquery:"contribute_to_goals"` // yes / no / unset

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// Save implements bigquery.ValueSaver so streaming inserts are de-duplicated
// on the transaction id.
func (r *TransactionRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"transaction_id":      r.TransactionID,
		"user_id":             r.UserID,
		"transaction_date":    r.TransactionDate,
		"booked_ts":           r.BookedTS,
		"amount":              r.Amount,
		"direction":           r.Direction,
		"description":         r.Description,
		"contribute_to_goals": r.ContributeToGoals,
		"created_ts":          r.CreatedTS,
	}, r.TransactionID, nil
}

// NewTransactionRow converts a persisted transaction.
func NewTransactionRow(uid string, tx domain.Transaction, now time.Time) *TransactionRow {
	direction := DirectionDebit
	if tx.Income() {
		direction = DirectionCredit
	}
	return &TransactionRow{
		TransactionID:     tx.ID,
		UserID:            uid,
		TransactionDate:   civil.DateOf(tx.Date),
		BookedTS:          tx.Date,
		Amount:            decimalToRat(tx.Amount),
		Direction:         direction,
		Description:       tx.Description,
		ContributeToGoals: tx.ContributeToGoals.String(),
		CreatedTS:         now,
	}
}

func decimalToRat(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, 9) // NUMERIC has 9 fractional digits
}
