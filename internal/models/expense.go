package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitType selects how an expense total is allocated to members.
type SplitType string

const (
	// SplitEqual divides the total evenly across current group members.
	SplitEqual SplitType = "equal"
	// SplitCustom uses an explicit per-member amount list.
	SplitCustom SplitType = "custom"
)

// Cadence is the repeat interval of a recurring expense.
type Cadence string

const (
	CadenceMonthly Cadence = "monthly"
	CadenceWeekly  Cadence = "weekly"
	CadenceYearly  Cadence = "yearly"
)

// Valid reports whether c is a known cadence.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceMonthly, CadenceWeekly, CadenceYearly:
		return true
	}
	return false
}

// Expense represents money one member paid on behalf of a group.
// It owns its Splits; both are created in a single transaction.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Description is the human-readable label (e.g., "Electricity").
	Description string

	// Amount is the total paid, in currency units with two decimals.
	Amount decimal.Decimal

	// GroupID is the group the expense belongs to.
	GroupID string

	// PayerID is the user who paid the full amount.
	PayerID string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// Recurring marks the expense as a template for future clones.
	Recurring bool

	// Cadence is the repeat interval. Empty for one-off expenses.
	Cadence Cadence

	// NextDueDate is the date the next clone should be generated.
	// Nil for one-off expenses. Advanced in place by each recurrence pass.
	NextDueDate *time.Time

	// Splits are the per-member obligations for this expense.
	Splits []Split
}

// SplitFor returns the split obligating userID, if any.
func (e *Expense) SplitFor(userID string) (Split, bool) {
	for _, s := range e.Splits {
		if s.UserID == userID {
			return s, true
		}
	}
	return Split{}, false
}

// Split represents one user's monetary obligation against a single expense.
type Split struct {
	// ID is the unique identifier for the split (UUID format).
	ID string

	// ExpenseID is the parent expense.
	ExpenseID string

	// UserID is the obligated user.
	UserID string

	// Amount is what the user owes toward the expense.
	Amount decimal.Decimal
}
