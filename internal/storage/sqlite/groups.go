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

// CreateGroup persists a group and its initial members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, invite_code, created_at) VALUES (?, ?, ?, ?)",
		group.ID, group.Name, group.InviteCode, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for _, userID := range group.Members {
		if err := addMember(ctx, tx, group.ID, userID, group.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroupByInviteCode retrieves a group and its members by invite code.
func (s *SQLiteStore) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, invite_code, created_at FROM groups WHERE invite_code = ?", code,
	).Scan(&group.ID, &group.Name, &group.InviteCode, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invite code %s: %w", code, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Members, err = s.GroupMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// AddGroupMember adds a user to a group. Existing members are left untouched.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	if err := s.groupExists(ctx, groupID); err != nil {
		return err
	}
	return addMember(ctx, s.db, groupID, userID, time.Now().Unix())
}

// GroupMembers returns the member IDs of a group in join order.
func (s *SQLiteStore) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	if err := s.groupExists(ctx, groupID); err != nil {
		return nil, err
	}
	return s.queryIDs(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? ORDER BY joined_at, rowid", groupID)
}

// GroupsForUser returns the IDs of the groups a user belongs to.
func (s *SQLiteStore) GroupsForUser(ctx context.Context, userID string) ([]string, error) {
	return s.queryIDs(ctx,
		"SELECT group_id FROM group_members WHERE user_id = ? ORDER BY joined_at, rowid", userID)
}

func (s *SQLiteStore) groupExists(ctx context.Context, groupID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}
	return ids, nil
}

func addMember(ctx context.Context, q querier, groupID, userID string, joinedAt int64) error {
	_, err := q.ExecContext(ctx,
		"INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		groupID, userID, joinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}
