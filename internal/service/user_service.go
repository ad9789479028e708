package service

import (
	"context"
	"fmt"
	"strings"

	"cipherquest/internal/models"
	"cipherquest/internal/validation"
)

// UserService manages leaderboard display names
type UserService struct {
	users UserStore
}

// NewUserService creates a new user service
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Register creates a user or renames an existing one
func (s *UserService) Register(ctx context.Context, id, username string) (*models.User, error) {
	if err := validation.ValidateUserID(id); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}

	user, err := s.users.UpsertUser(ctx, id, username)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// Get retrieves a user or repository.ErrNotFound
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if err := validation.ValidateUserID(id); err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
