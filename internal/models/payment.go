package models

import "github.com/shopspring/decimal"

// Payment represents a repayment from one group member to another.
// Payments are immutable once recorded.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// ExpenseID optionally links the payment to the expense it repays.
	// Empty for free-standing settlements.
	ExpenseID string

	// GroupID is the group this payment belongs to.
	GroupID string

	// FromUserID is the user who paid (debtor settling up).
	FromUserID string

	// ToUserID is the user who received payment (creditor being paid).
	ToUserID string

	// Amount is the payment amount.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the payment was recorded.
	CreatedAt int64
}
