package service

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/roomsync/internal/calculator"
	"github.com/mmynk/roomsync/internal/models"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// SplitInput is one entry of a custom split list.
type SplitInput struct {
	UserID string           `json:"user_id"`
	Amount *decimal.Decimal `json:"amount"`
}

// CreateExpenseRequest records money the caller paid on behalf of a group.
type CreateExpenseRequest struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	GroupID     string           `json:"group_id"`
	SplitType   models.SplitType `json:"split_type"`
	Splits      []SplitInput     `json:"splits,omitempty"`
}

// Validate checks field presence and shape and fills defaults.
// Allocation rules that need group membership are checked later.
func (r *CreateExpenseRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Description) == "" {
		missing = append(missing, "description")
	}
	if r.Amount == nil {
		missing = append(missing, "amount")
	}
	if r.GroupID == "" {
		missing = append(missing, "group_id")
	}
	if len(missing) > 0 {
		return invalid(strings.Join(missing, ", "), ErrRequired)
	}

	r.Description = strings.TrimSpace(r.Description)
	if err := validateAmount("amount", *r.Amount); err != nil {
		return err
	}

	if r.SplitType == "" {
		r.SplitType = models.SplitEqual
	}
	switch r.SplitType {
	case models.SplitEqual:
	case models.SplitCustom:
		if len(r.Splits) == 0 {
			return invalid("", calculator.ErrInvalidSplitList)
		}
		for _, s := range r.Splits {
			if s.UserID == "" || s.Amount == nil {
				return invalid("", calculator.ErrInvalidSplitList)
			}
			if !s.Amount.Equal(calculator.Round(*s.Amount)) {
				return invalid("splits", ErrPrecision)
			}
		}
	default:
		return invalid("", calculator.ErrInvalidPolicy)
	}
	return nil
}

func (r *CreateExpenseRequest) shares() []calculator.Share {
	shares := make([]calculator.Share, len(r.Splits))
	for i, s := range r.Splits {
		shares[i] = calculator.Share{UserID: s.UserID, Amount: *s.Amount}
	}
	return shares
}

// CreateRecurringExpenseRequest creates an expense that is cloned forward on
// every due date.
type CreateRecurringExpenseRequest struct {
	CreateExpenseRequest

	// RecurrenceType defaults to monthly.
	RecurrenceType models.Cadence `json:"recurrence_type,omitempty"`
	// NextDueDate is YYYY-MM-DD. Defaults to the first day of next month.
	NextDueDate string `json:"next_due_date,omitempty"`
}

// Validate checks the embedded expense fields and the schedule.
func (r *CreateRecurringExpenseRequest) Validate() error {
	if err := r.CreateExpenseRequest.Validate(); err != nil {
		return err
	}
	if r.RecurrenceType == "" {
		r.RecurrenceType = models.CadenceMonthly
	}
	if !r.RecurrenceType.Valid() {
		return invalid("recurrence_type", ErrBadCadence)
	}
	if r.NextDueDate != "" {
		if _, err := time.Parse(DateLayout, r.NextDueDate); err != nil {
			return invalid("next_due_date", ErrBadDate)
		}
	}
	return nil
}

// nextDue returns the requested first due date, or the default relative to now.
func (r *CreateRecurringExpenseRequest) nextDue(now time.Time) time.Time {
	if r.NextDueDate == "" {
		return calculator.FirstOfNextMonth(now)
	}
	due, _ := time.Parse(DateLayout, r.NextDueDate)
	return due
}

// RecordPaymentRequest records that the caller paid another member back.
type RecordPaymentRequest struct {
	ToUser    string           `json:"to_user"`
	Amount    *decimal.Decimal `json:"amount"`
	GroupID   string           `json:"group_id"`
	ExpenseID string           `json:"expense_id,omitempty"`
}

// Validate checks required fields. Missing fields are reported together.
func (r *RecordPaymentRequest) Validate() error {
	var missing []string
	if r.ToUser == "" {
		missing = append(missing, "to_user")
	}
	if r.Amount == nil {
		missing = append(missing, "amount")
	}
	if r.GroupID == "" {
		missing = append(missing, "group_id")
	}
	if len(missing) > 0 {
		return invalid(strings.Join(missing, ", "), ErrRequired)
	}
	return validateAmount("amount", *r.Amount)
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return invalid(strings.Join(missing, ", "), ErrRequired)
	}
	if !strings.Contains(r.Email, "@") {
		return invalid("email", errors.New("must be an email address"))
	}
	return nil
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return invalid(strings.Join(missing, ", "), ErrRequired)
	}
	return nil
}

// CreateGroupRequest creates a group with the caller as its first member.
type CreateGroupRequest struct {
	Name string `json:"name"`
}

func (r *CreateGroupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return invalid("name", ErrRequired)
	}
	return nil
}

// JoinGroupRequest adds the caller to the group owning the invite code.
type JoinGroupRequest struct {
	InviteCode string `json:"invite_code"`
}

func (r *JoinGroupRequest) Validate() error {
	r.InviteCode = strings.ToUpper(strings.TrimSpace(r.InviteCode))
	if r.InviteCode == "" {
		return invalid("invite_code", ErrRequired)
	}
	return nil
}

func validateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid(field, ErrNotPositive)
	}
	if !amount.Equal(calculator.Round(amount)) {
		return invalid(field, ErrPrecision)
	}
	return nil
}
