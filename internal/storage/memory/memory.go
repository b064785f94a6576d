// Package memory provides an in-process implementation of storage.Store for
// tests and local demos. All data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/roomsync/internal/models"
	"github.com/mmynk/roomsync/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps every record in maps guarded by a single mutex. Returned records
// are copies; mutating them does not change the store.
type Store struct {
	mu sync.RWMutex

	users    map[string]*models.User
	groups   map[string]*models.Group
	expenses []*models.Expense
	payments []*models.Payment
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:  make(map[string]*models.User),
		groups: make(map[string]*models.Group),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// CreateExpense stores an expense and its splits.
func (s *Store) CreateExpense(_ context.Context, expense *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenses = append(s.expenses, prepareExpense(expense))
	return nil
}

// GetExpense returns ErrNotFound if no expense has the ID.
func (s *Store) GetExpense(_ context.Context, expenseID string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.expenses {
		if e.ID == expenseID {
			return cloneExpense(e), nil
		}
	}
	return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
}

// ListExpensesByGroup returns a group's expenses, newest first.
func (s *Store) ListExpensesByGroup(_ context.Context, groupID string) ([]*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Expense
	for i := len(s.expenses) - 1; i >= 0; i-- {
		if s.expenses[i].GroupID == groupID {
			out = append(out, cloneExpense(s.expenses[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// CreatePayment stores a payment.
func (s *Store) CreatePayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}
	p := *payment
	s.payments = append(s.payments, &p)
	return nil
}

// ListPaymentsByGroup returns a group's payments, newest first.
func (s *Store) ListPaymentsByGroup(_ context.Context, groupID string) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Payment
	for i := len(s.payments) - 1; i >= 0; i-- {
		if s.payments[i].GroupID == groupID {
			p := *s.payments[i]
			out = append(out, &p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// Atomically holds the write lock for the whole of fn. Writes are staged on
// the transaction and applied only when fn returns nil.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, advanced: make(map[string]time.Time)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.expenses = append(s.expenses, tx.inserted...)
	for _, e := range s.expenses {
		if next, ok := tx.advanced[e.ID]; ok {
			next := next
			e.NextDueDate = &next
		}
	}
	return nil
}

type memTx struct {
	store    *Store
	inserted []*models.Expense
	advanced map[string]time.Time
}

func (t *memTx) all() []*models.Expense {
	out := make([]*models.Expense, 0, len(t.store.expenses)+len(t.inserted))
	out = append(out, t.store.expenses...)
	return append(out, t.inserted...)
}

// ListDueRecurring sees the transaction's own staged writes.
func (t *memTx) ListDueRecurring(_ context.Context, asOf time.Time) ([]*models.Expense, error) {
	var due []*models.Expense
	for _, e := range t.all() {
		if !e.Recurring || e.NextDueDate == nil {
			continue
		}
		c := cloneExpense(e)
		if next, ok := t.advanced[e.ID]; ok {
			c.NextDueDate = &next
		}
		if !c.NextDueDate.After(asOf) {
			due = append(due, c)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].NextDueDate.Before(*due[j].NextDueDate) })
	return due, nil
}

func (t *memTx) InsertExpense(_ context.Context, expense *models.Expense) error {
	t.inserted = append(t.inserted, prepareExpense(expense))
	return nil
}

func (t *memTx) AdvanceNextDue(_ context.Context, expenseID string, next time.Time) error {
	for _, e := range t.all() {
		if e.ID == expenseID {
			t.advanced[expenseID] = next
			return nil
		}
	}
	return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
}

// prepareExpense fills generated fields on expense and returns a private copy.
func prepareExpense(expense *models.Expense) *models.Expense {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	for i := range expense.Splits {
		if expense.Splits[i].ID == "" {
			expense.Splits[i].ID = uuid.New().String()
		}
		expense.Splits[i].ExpenseID = expense.ID
	}
	return cloneExpense(expense)
}

func cloneExpense(e *models.Expense) *models.Expense {
	c := *e
	if e.NextDueDate != nil {
		due := *e.NextDueDate
		c.NextDueDate = &due
	}
	c.Splits = append([]models.Split(nil), e.Splits...)
	return &c
}
