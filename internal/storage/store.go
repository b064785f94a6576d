// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/roomsync/internal/models"
)

// ErrNotFound is returned when a referenced user, group or expense does not exist.
var ErrNotFound = errors.New("not found")

// Directory resolves identity and membership data owned by the account side of
// the system. The ledger only reads it.
type Directory interface {
	// GroupMembers returns the member user IDs of a group in join order.
	// Returns ErrNotFound if the group does not exist.
	GroupMembers(ctx context.Context, groupID string) ([]string, error)

	// UserDisplayName returns the name shown to other group members.
	// Returns ErrNotFound if the user does not exist.
	UserDisplayName(ctx context.Context, userID string) (string, error)

	// GroupsForUser returns the IDs of every group the user belongs to.
	GroupsForUser(ctx context.Context, userID string) ([]string, error)
}

// Tx is the write surface available to a recurrence pass. Every write made
// through a Tx commits together or not at all.
type Tx interface {
	// ListDueRecurring returns recurring expenses (with splits) whose next due
	// date is on or before asOf, oldest due first.
	ListDueRecurring(ctx context.Context, asOf time.Time) ([]*models.Expense, error)

	// InsertExpense persists an expense and all of its splits.
	InsertExpense(ctx context.Context, expense *models.Expense) error

	// AdvanceNextDue moves an expense's next due date forward.
	AdvanceNextDue(ctx context.Context, expenseID string, next time.Time) error
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, in-memory)
// without changing the service layer.
type Store interface {
	Directory

	// CreateExpense persists a new expense with its splits in one transaction.
	// The expense and split ID fields will be populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense and its splits by ID.
	// Returns ErrNotFound if the expense does not exist.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup returns every expense of a group with its splits,
	// newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// CreatePayment persists a new payment.
	CreatePayment(ctx context.Context, payment *models.Payment) error

	// ListPaymentsByGroup returns every payment of a group, newest first.
	ListPaymentsByGroup(ctx context.Context, groupID string) ([]*models.Payment, error)

	// Atomically runs fn inside a single transaction. If fn returns an error
	// nothing it wrote is kept.
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// CreateUser inserts a new user. Emails are unique.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound if no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns ErrNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateGroup persists a group and its initial members.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroupByInviteCode returns ErrNotFound if no group uses the code.
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)

	// AddGroupMember adds a user to a group. Adding an existing member is a no-op.
	AddGroupMember(ctx context.Context, groupID, userID string) error

	// Close releases any resources held by the store.
	Close() error
}
