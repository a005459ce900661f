// Package statement reads bank statement exports into typed rows.
package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidRow is wrapped by every per-row parse failure.
var ErrInvalidRow = errors.New("invalid statement row")

// Required column headers.
const (
	ColumnDate        = "Effective Date"
	ColumnAmount      = "Amount"
	ColumnDescription = "Description"
)

// DateLayout is the month/day/year layout of the date column.
const DateLayout = "1/2/2006"

// RawRow is one data row as text.
type RawRow struct {
	Line          int // 1-based line number in the file, header is line 1
	EffectiveDate string
	Amount        string
	Description   string

	// Err is set when the record itself could not be read, e.g. a stray
	// quote. The other fields are then empty and ParseRow returns Err.
	Err error
}

// Row is a RawRow with its values parsed.
type Row struct {
	Line        int
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// ParseResult holds the rows of one file.
type ParseResult struct {
	Rows    []RawRow
	Skipped int // rows with an empty required field
}

// ParseCSV reads a statement with a header row naming the date, amount and
// description columns. Other columns are ignored and may appear in any order.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("ParseCSV: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[name] = i
	}
	for _, col := range []string{ColumnDate, ColumnAmount, ColumnDescription} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("ParseCSV: missing column %q", col)
		}
	}

	result := &ParseResult{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// The reader resumes at the next record, so one bad line does
			// not cost the rest of the file.
			result.Rows = append(result.Rows, RawRow{
				Line: parseErr.StartLine,
				Err:  fmt.Errorf("%w: line %d: %v", ErrInvalidRow, parseErr.StartLine, parseErr.Err),
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ParseCSV: failed to read record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		field := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		raw := RawRow{
			Line:          line,
			EffectiveDate: field(ColumnDate),
			Amount:        field(ColumnAmount),
			Description:   field(ColumnDescription),
		}
		if raw.EffectiveDate == "" || raw.Amount == "" || raw.Description == "" {
			result.Skipped++
			continue
		}
		result.Rows = append(result.Rows, raw)
	}

	return result, nil
}

// ParseRow parses raw's date in loc and its amount as a decimal.
func ParseRow(raw RawRow, loc *time.Location) (Row, error) {
	if raw.Err != nil {
		return Row{}, raw.Err
	}
	if loc == nil {
		loc = time.Local
	}

	date, err := time.ParseInLocation(DateLayout, raw.EffectiveDate, loc)
	if err != nil {
		return Row{}, fmt.Errorf("%w: line %d: date %q is not M/D/YYYY", ErrInvalidRow, raw.Line, raw.EffectiveDate)
	}

	cleaned := strings.NewReplacer("$", "", ",", "").Replace(raw.Amount)
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Row{}, fmt.Errorf("%w: line %d: amount %q is not a number", ErrInvalidRow, raw.Line, raw.Amount)
	}

	return Row{
		Line:        raw.Line,
		Date:        date,
		Amount:      amount,
		Description: raw.Description,
	}, nil
}
