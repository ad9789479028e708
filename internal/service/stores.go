package service

import (
	"context"
	"errors"

	"cipherquest/internal/models"
)

var (
	// ErrChallengeNotFound is returned when a submission names a challenge
	// the catalogue does not know. No write is performed.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrUserNotFound is returned when known-user checks are enabled and the
	// user is not registered
	ErrUserNotFound = errors.New("user not found")
)

// ProgressStore persists progress records. Implementations must make
// UpsertAttempt atomic per (userID, challengeID) and report transient
// failures as repository.ErrStorageUnavailable.
type ProgressStore interface {
	UpsertAttempt(ctx context.Context, userID, challengeID string, solved bool) (*models.ProgressRecord, error)
	Get(ctx context.Context, userID, challengeID string) (*models.ProgressRecord, error)
	ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error)
	ListAll(ctx context.Context) ([]models.ProgressRecord, error)
	Restore(ctx context.Context, record models.ProgressRecord) (*models.ProgressRecord, error)
}

// UserStore persists display names
type UserStore interface {
	UpsertUser(ctx context.Context, id, username string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// ChallengeCatalog is the read-only challenge lookup
type ChallengeCatalog interface {
	Get(id string) (models.Challenge, bool)
	All() []models.Challenge
}
