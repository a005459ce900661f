// Package records maps domain entities onto store documents and back.
package records

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/store"
	"github.com/shopspring/decimal"
)

// Stored field names.
const (
	FieldAmount            = "amount"
	FieldDate              = "date"
	FieldDescription       = "description"
	FieldContributeToGoals = "contributeToGoals"
	FieldCreatedAt         = "createdAt"

	FieldName              = "name"
	FieldTotal             = "total"
	FieldAmountPerPaycheck = "amountPerPaycheck"
	FieldBalance           = "balance"
	FieldDateCreated       = "dateCreated"
)

// dateLayouts are tried in order when a date was stored as text. Layouts
// without a zone are read in the repository's location.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02",
	"1/2/2006",
}

// EncodeTransaction converts tx into a store document. Money is stored as
// decimal strings so no precision is lost in any backend.
func EncodeTransaction(tx domain.Transaction, now time.Time) store.Document {
	return store.Document{
		FieldAmount:            tx.Amount.String(),
		FieldDate:              tx.Date,
		FieldDescription:       tx.Description,
		FieldContributeToGoals: tx.ContributeToGoals.String(),
		FieldCreatedAt:         now,
	}
}

// DecodeTransaction is the inverse of EncodeTransaction. Dates stored as
// text without a zone are read in loc.
func DecodeTransaction(id string, doc store.Document, loc *time.Location) (domain.Transaction, error) {
	amount, err := decodeDecimal(doc[FieldAmount])
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("DecodeTransaction: %s %s: %w", id, FieldAmount, err)
	}
	date, err := decodeTime(doc[FieldDate], loc)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("DecodeTransaction: %s %s: %w", id, FieldDate, err)
	}
	contribute, err := decodeContribution(doc[FieldContributeToGoals])
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("DecodeTransaction: %s %s: %w", id, FieldContributeToGoals, err)
	}
	description, _ := doc[FieldDescription].(string)

	tx := domain.NewTransaction(amount, date, contribute, description)
	tx.ID = id
	return tx, nil
}

// EncodeGoal converts g into a store document.
func EncodeGoal(g domain.Goal) store.Document {
	doc := store.Document{
		FieldName:        g.Name,
		FieldTotal:       g.Total.String(),
		FieldBalance:     g.Balance.String(),
		FieldDateCreated: g.DateCreated,
	}
	if g.AmountPerPaycheck.Valid {
		doc[FieldAmountPerPaycheck] = g.AmountPerPaycheck.Decimal.String()
	} else {
		doc[FieldAmountPerPaycheck] = nil
	}
	return doc
}

// EncodeBalance is the merge payload for a balance update.
func EncodeBalance(balance decimal.Decimal) store.Document {
	return store.Document{FieldBalance: balance.String()}
}

// DecodeGoal is the inverse of EncodeGoal. An unreadable amount per paycheck
// does not fail decoding: it yields an invalid AmountPerPaycheck so the
// allocation engine can report it. Any other unreadable field is an error.
// A creation date stored as text without a zone is read in loc.
func DecodeGoal(id string, doc store.Document, loc *time.Location) (domain.Goal, error) {
	total, err := decodeDecimal(doc[FieldTotal])
	if err != nil {
		return domain.Goal{}, fmt.Errorf("DecodeGoal: %s %s: %w", id, FieldTotal, err)
	}
	balance, err := decodeDecimal(doc[FieldBalance])
	if err != nil {
		return domain.Goal{}, fmt.Errorf("DecodeGoal: %s %s: %w", id, FieldBalance, err)
	}
	created, err := decodeTime(doc[FieldDateCreated], loc)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("DecodeGoal: %s %s: %w", id, FieldDateCreated, err)
	}
	name, _ := doc[FieldName].(string)

	g := domain.Goal{
		ID:          id,
		Name:        name,
		Total:       total,
		Balance:     balance,
		DateCreated: created,
	}
	if perPaycheck, err := decodeDecimal(doc[FieldAmountPerPaycheck]); err == nil {
		g.AmountPerPaycheck = decimal.NewNullDecimal(perPaycheck)
	}
	return g, nil
}

func decodeDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a number: %q", n)
		}
		return d, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("not a number: %v", n)
		}
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case nil:
		return decimal.Zero, fmt.Errorf("missing")
	default:
		return decimal.Zero, fmt.Errorf("unsupported type %T", v)
	}
}

func decodeTime(v interface{}, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.ParseInLocation(layout, t, loc); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised date %q", t)
	case nil:
		return time.Time{}, fmt.Errorf("missing")
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}

func decodeContribution(v interface{}) (domain.Contribution, error) {
	switch c := v.(type) {
	case string:
		return domain.ParseContribution(c)
	case bool:
		return domain.ContributionFromBool(c), nil
	case nil:
		return domain.ContributeUnset, nil
	default:
		return domain.ContributeUnset, fmt.Errorf("unsupported type %T", v)
	}
}
