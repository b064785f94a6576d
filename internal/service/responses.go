package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/roomsync/internal/calculator"
)

// Money is an amount that serializes as a JSON number with exactly two decimals.
type Money decimal.Decimal

// NewMoney rounds d to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money(calculator.Round(d))
}

func (m Money) Decimal() decimal.Decimal { return decimal.Decimal(m) }

func (m Money) String() string { return decimal.Decimal(m).StringFixed(calculator.CentPlaces) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// UserRef names a user in responses.
type UserRef struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type CreateExpenseResponse struct {
	ExpenseID string `json:"expense_id"`
}

type RecordPaymentResponse struct {
	Message   string `json:"message"`
	PaymentID string `json:"payment_id"`
}

// BalanceEntry is one user's net position in a group.
// Positive means the group owes the user.
type BalanceEntry struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Balance Money  `json:"balance"`
}

type GroupBalancesResponse struct {
	Balances []BalanceEntry `json:"balances"`
}

// DebtEntry is what one user still owes another on a single expense.
type DebtEntry struct {
	From   UserRef `json:"from"`
	To     UserRef `json:"to"`
	Amount Money   `json:"amount"`
}

// ExpenseDebts lists the outstanding debts of one expense.
type ExpenseDebts struct {
	ExpenseID   string      `json:"expense_id"`
	Description string      `json:"description"`
	TotalAmount Money       `json:"total_amount"`
	PaidBy      UserRef     `json:"paid_by"`
	CreatedAt   string      `json:"created_at"`
	Owes        []DebtEntry `json:"owes"`
}

type DebtHistoryResponse struct {
	Expenses []ExpenseDebts `json:"expenses"`
}

// ExpenseRef identifies the expense a summary line came from.
type ExpenseRef struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Total       Money  `json:"total"`
}

// SummaryDetail is one gross obligation between the caller and someone else.
type SummaryDetail struct {
	UserID  string     `json:"user_id"`
	Name    string     `json:"name"`
	Amount  Money      `json:"amount"`
	Expense ExpenseRef `json:"expense"`
}

type SummaryDetails struct {
	OwesTo []SummaryDetail `json:"owes_to"`
	OwedBy []SummaryDetail `json:"owed_by"`
}

type PersonalSummaryResponse struct {
	UserID            string         `json:"user_id"`
	Name              string         `json:"name"`
	TotalPaid         Money          `json:"total_paid"`
	TotalOwedToOthers Money          `json:"total_owed_to_others"`
	TotalOthersOweMe  Money          `json:"total_others_owe_me"`
	PaymentsMade      Money          `json:"payments_made"`
	PaymentsReceived  Money          `json:"payments_received"`
	Details           SummaryDetails `json:"details"`
}

// TransferEntry is one suggested settling payment.
type TransferEntry struct {
	From   UserRef `json:"from"`
	To     UserRef `json:"to"`
	Amount Money   `json:"amount"`
}

type SettlementPlanResponse struct {
	Transfers []TransferEntry `json:"transfers"`
}

type CreateRecurringExpenseResponse struct {
	ExpenseID   string `json:"expense_id"`
	NextDueDate string `json:"next_due_date"`
}

type GenerateRecurringResponse struct {
	Generated  int      `json:"generated"`
	ExpenseIDs []string `json:"expense_ids"`
}

// UserView is the public part of a user account.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type AuthResponse struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

type GroupView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	InviteCode string   `json:"invite_code"`
	Members    []string `json:"members"`
}
