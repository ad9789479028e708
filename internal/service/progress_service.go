package service

import (
	"context"
	"errors"
	"fmt"

	"cipherquest/internal/models"
	"cipherquest/internal/repository"
	"cipherquest/internal/validation"
)

// ProgressService is the only path by which a submission becomes durable
// state
type ProgressService struct {
	store   ProgressStore
	catalog ChallengeCatalog
	users   UserStore
}

// NewProgressService creates a new progress service
func NewProgressService(store ProgressStore, catalog ChallengeCatalog) *ProgressService {
	return &ProgressService{
		store:   store,
		catalog: catalog,
	}
}

// RequireKnownUsers makes Submit reject users missing from users
func (s *ProgressService) RequireKnownUsers(users UserStore) {
	s.users = users
}

// Submit checks an answer and records the attempt. Every submission,
// correct or not, performs exactly one store write; solved only ever flips
// from false to true.
func (s *ProgressService) Submit(ctx context.Context, userID, challengeID, answer string) (*models.SubmitResult, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := validation.ValidateChallengeID(challengeID); err != nil {
		return nil, err
	}

	if err := s.checkUser(ctx, userID); err != nil {
		return nil, err
	}

	challenge, ok := s.catalog.Get(challengeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChallengeNotFound, challengeID)
	}

	correct := validation.IsCorrect(answer, challenge.Plaintext)

	record, err := s.store.UpsertAttempt(ctx, userID, challengeID, correct)
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	return &models.SubmitResult{Correct: correct, Record: *record}, nil
}

func (s *ProgressService) checkUser(ctx context.Context, userID string) error {
	if s.users == nil {
		return nil
	}
	_, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	return nil
}

// UserProgress returns every record of a user. A user without records gets
// an empty slice.
func (s *ProgressService) UserProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}

// ChallengeProgress returns the record of one (user, challenge) pair or
// repository.ErrNotFound
func (s *ProgressService) ChallengeProgress(ctx context.Context, userID, challengeID string) (*models.ProgressRecord, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := validation.ValidateChallengeID(challengeID); err != nil {
		return nil, err
	}
	record, err := s.store.Get(ctx, userID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return record, nil
}
