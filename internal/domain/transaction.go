package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents one money movement recorded by the user.
// Amount is signed: positive = income, negative = expense.
// A transaction is never mutated after it has been persisted.
type Transaction struct {
	ID                string          // assigned by the record store
	Amount            decimal.Decimal // IN = positive, OUT = negative
	Date              time.Time       // calendar date, or the precise timestamp for "today" entries
	ContributeToGoals Contribution    // always ContributeUnset for expenses
	Description       string
}

// NewTransaction builds a Transaction and enforces the contribution invariant:
// a transaction that is not income never carries ContributeYes or ContributeNo.
func NewTransaction(amount decimal.Decimal, date time.Time, contribute Contribution, description string) Transaction {
	if !amount.IsPositive() {
		contribute = ContributeUnset
	}
	return Transaction{
		Amount:            amount,
		Date:              date,
		ContributeToGoals: contribute,
		Description:       description,
	}
}

// Income reports whether the transaction moves money in.
func (t Transaction) Income() bool {
	return t.Amount.IsPositive()
}
