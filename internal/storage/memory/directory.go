package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/roomsync/internal/models"
	"github.com/mmynk/roomsync/internal/storage"
)

// CreateUser stores a user. Emails are unique.
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user: email %s already registered", user.Email)
		}
	}
	u := *user
	s.users[u.ID] = &u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user email=%s: %w", email, storage.ErrNotFound)
}

func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user id=%s: %w", id, storage.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (s *Store) UserDisplayName(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	return u.DisplayName, nil
}

// CreateGroup stores a group with its initial members.
func (s *Store) CreateGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	for _, g := range s.groups {
		if g.InviteCode == group.InviteCode {
			return fmt.Errorf("failed to insert group: invite code %s in use", group.InviteCode)
		}
	}
	g := *group
	g.Members = slices.Compact(slices.Clone(group.Members))
	s.groups[g.ID] = &g
	return nil
}

func (s *Store) GetGroupByInviteCode(_ context.Context, code string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.InviteCode == code {
			c := *g
			c.Members = slices.Clone(g.Members)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("invite code %s: %w", code, storage.ErrNotFound)
}

func (s *Store) AddGroupMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if !slices.Contains(g.Members, userID) {
		g.Members = append(g.Members, userID)
	}
	return nil
}

func (s *Store) GroupMembers(_ context.Context, groupID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return slices.Clone(g.Members), nil
}

// GroupsForUser returns group IDs ordered by creation time, then ID.
func (s *Store) GroupsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []*models.Group
	for _, g := range s.groups {
		if slices.Contains(g.Members, userID) {
			groups = append(groups, g)
		}
	}
	slices.SortFunc(groups, func(a, b *models.Group) int {
		return cmp.Or(cmp.Compare(a.CreatedAt, b.CreatedAt), strings.Compare(a.ID, b.ID))
	})

	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids, nil
}
