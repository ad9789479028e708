package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherquest/internal/models"
	"cipherquest/internal/repository"
	"cipherquest/internal/validation"
)

// failingStore reports every call as a storage outage
type failingStore struct{}

var errOutage = fmt.Errorf("%w: connection refused", repository.ErrStorageUnavailable)

func (failingStore) UpsertAttempt(context.Context, string, string, bool) (*models.ProgressRecord, error) {
	return nil, errOutage
}

func (failingStore) Get(context.Context, string, string) (*models.ProgressRecord, error) {
	return nil, errOutage
}

func (failingStore) ListByUser(context.Context, string) ([]models.ProgressRecord, error) {
	return nil, errOutage
}

func (failingStore) ListAll(context.Context) ([]models.ProgressRecord, error) {
	return nil, errOutage
}

func (failingStore) Restore(context.Context, models.ProgressRecord) (*models.ProgressRecord, error) {
	return nil, errOutage
}

func TestSubmitWorkedExample(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryProgressStore()
	cat := testCatalog(t)
	progress := NewProgressService(store, cat)
	board := NewLeaderboardService(store, cat, nil)

	result, err := progress.Submit(ctx, "u1", "c1", "Hello ")
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, 1, result.Record.Attempts)
	assert.True(t, result.Record.Solved)

	entries, err := board.Compute(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LeaderboardEntry{Rank: 1, UserID: "u1", Username: "u1", Score: 10, Solved: 1}, entries[0])

	result, err = progress.Submit(ctx, "u1", "c1", "xyz")
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Equal(t, 2, result.Record.Attempts)
	assert.True(t, result.Record.Solved, "a wrong answer never unsolves")

	after, err := board.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, after)
}

func TestSubmitUnknownChallengeWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryProgressStore()
	svc := NewProgressService(store, testCatalog(t))

	_, err := svc.Submit(ctx, "u1", "missing", "hello")
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	records, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmitValidation(t *testing.T) {
	svc := NewProgressService(repository.NewMemoryProgressStore(), testCatalog(t))

	tests := []struct {
		name        string
		userID      string
		challengeID string
		wantField   string
	}{
		{"missing user", "", "c1", "userId"},
		{"malformed user", "u 1", "c1", "userId"},
		{"missing challenge", "u1", "", "challengeId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.userID, tt.challengeID, "hello")
			var verr validation.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestSubmitEmptyAnswerIsRecordedAsWrong(t *testing.T) {
	svc := NewProgressService(repository.NewMemoryProgressStore(), testCatalog(t))

	result, err := svc.Submit(context.Background(), "u1", "c1", "   ")
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Equal(t, 1, result.Record.Attempts)
	assert.False(t, result.Record.Solved)
}

func TestSubmitRequireKnownUsers(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserStore()
	svc := NewProgressService(repository.NewMemoryProgressStore(), testCatalog(t))
	svc.RequireKnownUsers(users)

	_, err := svc.Submit(ctx, "u1", "c1", "hello")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = users.UpsertUser(ctx, "u1", "Uno")
	require.NoError(t, err)

	result, err := svc.Submit(ctx, "u1", "c1", "hello")
	require.NoError(t, err)
	assert.True(t, result.Correct)
}

func TestSubmitStorageUnavailable(t *testing.T) {
	svc := NewProgressService(failingStore{}, testCatalog(t))

	_, err := svc.Submit(context.Background(), "u1", "c1", "hello")
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
}

func TestSubmitConcurrentSamePair(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryProgressStore()
	svc := NewProgressService(store, testCatalog(t))

	const k = 25
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answer := "wrong"
			if i == k-1 {
				answer = "HELLO"
			}
			_, err := svc.Submit(ctx, "u1", "c1", answer)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	record, err := svc.ChallengeProgress(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, k, record.Attempts)
	assert.True(t, record.Solved)
}

func TestUserProgress(t *testing.T) {
	ctx := context.Background()
	svc := NewProgressService(repository.NewMemoryProgressStore(), testCatalog(t))

	records, err := svc.UserProgress(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = svc.Submit(ctx, "u1", "c2", "world")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "u1", "c1", "nope")
	require.NoError(t, err)

	records, err = svc.UserProgress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].ChallengeID)
	assert.False(t, records[0].Solved)
	assert.Equal(t, "c2", records[1].ChallengeID)
	assert.True(t, records[1].Solved)

	_, err = svc.ChallengeProgress(ctx, "u1", "c3")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
