package domain

import (
	"fmt"
	"strings"
)

// Contribution is the tri-state "contribute to goals" flag of a transaction.
type Contribution int

const (
	// ContributeUnset means the flag does not apply, e.g. for expenses.
	ContributeUnset Contribution = iota
	// ContributeYes marks income that should fund goals.
	ContributeYes
	// ContributeNo marks income the user kept out of goals.
	ContributeNo
)

// ContributionFromBool maps a user-supplied checkbox onto the tri-state flag.
func ContributionFromBool(b bool) Contribution {
	if b {
		return ContributeYes
	}
	return ContributeNo
}

// String returns the stored representation of the flag.
func (c Contribution) String() string {
	switch c {
	case ContributeYes:
		return "yes"
	case ContributeNo:
		return "no"
	default:
		return "unset"
	}
}

// ParseContribution is the inverse of String. Empty input is ContributeUnset.
func ParseContribution(s string) (Contribution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true":
		return ContributeYes, nil
	case "no", "false":
		return ContributeNo, nil
	case "", "unset", "null":
		return ContributeUnset, nil
	default:
		return ContributeUnset, fmt.Errorf("ParseContribution: unknown value %q", s)
	}
}
