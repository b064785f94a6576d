package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/roomsync/internal/auth"
	"github.com/mmynk/roomsync/internal/models"
	"github.com/mmynk/roomsync/internal/storage"
)

const (
	inviteCodeLength   = 6
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// AccountService handles registration, login and group membership.
type AccountService struct {
	store         storage.Store
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
}

// NewAccountService creates a new account service.
func NewAccountService(store storage.Store, authenticator auth.Authenticator, jwtManager *auth.JWTManager) *AccountService {
	return &AccountService{
		store:         store,
		authenticator: authenticator,
		jwtManager:    jwtManager,
	}
}

// Register creates a new user account and returns a session token.
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.authenticator.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		slog.Warn("Registration failed", "email", req.Email, "error", err)
		if errors.Is(err, auth.ErrEmailExists) || errors.Is(err, auth.ErrWeakPassword) {
			return nil, invalid("", err)
		}
		return nil, err
	}

	slog.Info("User registered", "user_id", user.ID)
	return s.session(user)
}

// Login verifies credentials and returns a session token.
func (s *AccountService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.authenticator.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Email, "error", err)
		return nil, err
	}

	slog.Info("Login successful", "user_id", user.ID)
	return s.session(user)
}

func (s *AccountService) session(user *models.User) (*AuthResponse, error) {
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}
	return &AuthResponse{
		User:  UserView{ID: user.ID, Email: user.Email, Name: user.DisplayName},
		Token: token,
	}, nil
}

// CreateGroup creates a group with a fresh invite code. The caller is its first member.
func (s *AccountService) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*GroupView, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	code, err := newInviteCode()
	if err != nil {
		return nil, err
	}
	group := &models.Group{
		Name:       req.Name,
		InviteCode: code,
		Members:    []string{userID},
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	slog.Info("Group created", "group_id", group.ID, "user_id", userID)
	return groupView(group), nil
}

// JoinGroup adds the caller to the group owning the invite code.
func (s *AccountService) JoinGroup(ctx context.Context, req *JoinGroupRequest) (*GroupView, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	group, err := s.store.GetGroupByInviteCode(ctx, req.InviteCode)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, invalid("invite_code", ErrInviteCode)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.AddGroupMember(ctx, group.ID, userID); err != nil {
		slog.Error("JoinGroup failed", "group_id", group.ID, "error", err)
		return nil, fmt.Errorf("failed to join group: %w", err)
	}
	members, err := s.store.GroupMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	group.Members = members

	slog.Info("Group joined", "group_id", group.ID, "user_id", userID)
	return groupView(group), nil
}

func groupView(g *models.Group) *GroupView {
	return &GroupView{ID: g.ID, Name: g.Name, InviteCode: g.InviteCode, Members: g.Members}
}

func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(buf), nil
}
