package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidGoal is returned when goal amounts are non-numeric or negative.
var ErrInvalidGoal = errors.New("invalid goal")

// Goal is a savings target that receives a flat amount per qualifying paycheck.
type Goal struct {
	ID    string // empty until the goal is first persisted
	Name  string
	Total decimal.Decimal

	// AmountPerPaycheck is Valid=false when the stored value could not be
	// read as a number. Such goals take no part in allocation.
	AmountPerPaycheck decimal.NullDecimal

	Balance     decimal.Decimal // cumulative contributions, never capped at Total
	DateCreated time.Time       // calendar day the goal was created
}

// NewGoal builds a goal with a zero balance, created on the day of now.
func NewGoal(name string, amountPerPaycheck, total decimal.Decimal, now time.Time) (Goal, error) {
	if amountPerPaycheck.IsNegative() {
		return Goal{}, fmt.Errorf("%w: amount per paycheck %s is negative", ErrInvalidGoal, amountPerPaycheck)
	}
	if total.IsNegative() {
		return Goal{}, fmt.Errorf("%w: total %s is negative", ErrInvalidGoal, total)
	}
	return Goal{
		Name:              name,
		Total:             total,
		AmountPerPaycheck: decimal.NewNullDecimal(amountPerPaycheck),
		Balance:           decimal.Zero,
		DateCreated:       StartOfDay(now),
	}, nil
}

// ParseGoal parses user-entered amounts and delegates to NewGoal.
func ParseGoal(name, amountPerPaycheck, total string, now time.Time) (Goal, error) {
	perPaycheck, err := decimal.NewFromString(strings.TrimSpace(amountPerPaycheck))
	if err != nil {
		return Goal{}, fmt.Errorf("%w: amount per paycheck %q is not a number", ErrInvalidGoal, amountPerPaycheck)
	}
	target, err := decimal.NewFromString(strings.TrimSpace(total))
	if err != nil {
		return Goal{}, fmt.Errorf("%w: total %q is not a number", ErrInvalidGoal, total)
	}
	return NewGoal(name, perPaycheck, target, now)
}

// Progress returns Balance/Total as a fraction. Zero when Total is zero.
func (g Goal) Progress() decimal.Decimal {
	if g.Total.IsZero() {
		return decimal.Zero
	}
	return g.Balance.Div(g.Total)
}
