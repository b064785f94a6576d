package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/roomsync/internal/models"
)

// CreatePayment persists a new payment to the database.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	// Generate ID if not set
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}

	var expenseID any
	if payment.ExpenseID != "" {
		expenseID = payment.ExpenseID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, expense_id, group_id, from_user_id, to_user_id, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, expenseID, payment.GroupID, payment.FromUserID, payment.ToUserID,
		payment.Amount, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// ListPaymentsByGroup retrieves all payments for a group, newest first.
func (s *SQLiteStore) ListPaymentsByGroup(ctx context.Context, groupID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, expense_id, group_id, from_user_id, to_user_id, amount, created_at
		 FROM payments WHERE group_id = ? ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by group: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment := &models.Payment{}
		var expenseID sql.NullString

		if err := rows.Scan(&payment.ID, &expenseID, &payment.GroupID, &payment.FromUserID,
			&payment.ToUserID, &payment.Amount, &payment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		if expenseID.Valid {
			payment.ExpenseID = expenseID.String
		}

		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}
