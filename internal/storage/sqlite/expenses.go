package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/roomsync/internal/models"
	"github.com/mmynk/roomsync/internal/storage"
)

const expenseColumns = `id, description, amount, group_id, payer_id, created_at, is_recurring, cadence, next_due_date`

// CreateExpense persists a new expense and its splits in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertExpense(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := scanExpense(s.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?",
		expenseID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	splits, err := loadSplits(ctx, s.db, "WHERE expense_id = ?", expenseID)
	if err != nil {
		return nil, err
	}
	expense.Splits = splits[expense.ID]

	return expense, nil
}

// ListExpensesByGroup retrieves all expenses for a group with their splits, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	expenses, err := queryExpenses(ctx, s.db,
		"WHERE group_id = ? ORDER BY created_at DESC, rowid DESC", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}

	splits, err := loadSplits(ctx, s.db,
		"WHERE expense_id IN (SELECT id FROM expenses WHERE group_id = ?)", groupID)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		e.Splits = splits[e.ID]
	}

	return expenses, nil
}

// ListDueRecurring returns recurring expenses due on or before asOf.
func (t *sqliteTx) ListDueRecurring(ctx context.Context, asOf time.Time) ([]*models.Expense, error) {
	due := asOf.UTC().Format(dateLayout)

	expenses, err := queryExpenses(ctx, t.q,
		"WHERE is_recurring = 1 AND next_due_date IS NOT NULL AND next_due_date <= ? ORDER BY next_due_date, rowid", due)
	if err != nil {
		return nil, fmt.Errorf("failed to list due recurring expenses: %w", err)
	}

	splits, err := loadSplits(ctx, t.q,
		"WHERE expense_id IN (SELECT id FROM expenses WHERE is_recurring = 1 AND next_due_date IS NOT NULL AND next_due_date <= ?)", due)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		e.Splits = splits[e.ID]
	}

	return expenses, nil
}

// InsertExpense persists an expense and its splits within the transaction.
func (t *sqliteTx) InsertExpense(ctx context.Context, expense *models.Expense) error {
	return insertExpense(ctx, t.q, expense)
}

// AdvanceNextDue moves an expense's next due date forward.
func (t *sqliteTx) AdvanceNextDue(ctx context.Context, expenseID string, next time.Time) error {
	res, err := t.q.ExecContext(ctx,
		"UPDATE expenses SET next_due_date = ? WHERE id = ?",
		next.UTC().Format(dateLayout), expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to advance next due date: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to advance next due date: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

func insertExpense(ctx context.Context, q querier, expense *models.Expense) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	var nextDue any
	if expense.NextDueDate != nil {
		nextDue = expense.NextDueDate.UTC().Format(dateLayout)
	}

	_, err := q.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		expense.ID, expense.Description, expense.Amount, expense.GroupID, expense.PayerID,
		expense.CreatedAt, expense.Recurring, string(expense.Cadence), nextDue,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.Splits {
		split := &expense.Splits[i]
		if split.ID == "" {
			split.ID = uuid.New().String()
		}
		split.ExpenseID = expense.ID

		_, err = q.ExecContext(ctx,
			"INSERT INTO expense_splits (id, expense_id, user_id, amount) VALUES (?, ?, ?, ?)",
			split.ID, split.ExpenseID, split.UserID, split.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	var cadence string
	var nextDue sql.NullString

	if err := row.Scan(&e.ID, &e.Description, &e.Amount, &e.GroupID, &e.PayerID,
		&e.CreatedAt, &e.Recurring, &cadence, &nextDue); err != nil {
		return nil, err
	}

	e.Cadence = models.Cadence(cadence)
	if nextDue.Valid {
		due, err := time.Parse(dateLayout, nextDue.String)
		if err != nil {
			return nil, fmt.Errorf("invalid next_due_date %q: %w", nextDue.String, err)
		}
		e.NextDueDate = &due
	}
	return e, nil
}

func queryExpenses(ctx context.Context, q querier, where string, args ...any) ([]*models.Expense, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+expenseColumns+" FROM expenses "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// loadSplits returns splits matching the filter grouped by expense ID, in insertion order.
func loadSplits(ctx context.Context, q querier, where string, args ...any) (map[string][]models.Split, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, expense_id, user_id, amount FROM expense_splits "+where+" ORDER BY rowid",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	splits := make(map[string][]models.Split)
	for rows.Next() {
		var s models.Split
		if err := rows.Scan(&s.ID, &s.ExpenseID, &s.UserID, &s.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits[s.ExpenseID] = append(splits[s.ExpenseID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return splits, nil
}
