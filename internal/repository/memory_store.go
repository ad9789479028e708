package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"cipherquest/internal/models"
)

// MemoryProgressStore keeps progress records in process memory. Each
// (user, challenge) key owns its own lock, so writers of unrelated keys never
// wait on each other. Records are copied in and out like documents.
type MemoryProgressStore struct {
	entries sync.Map // models.ProgressKey -> *memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	mu      sync.Mutex
	created bool
	record  models.ProgressRecord
}

// NewMemoryProgressStore creates an empty in-memory store
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{now: time.Now}
}

// SetClock replaces the time source used for attempt timestamps
func (s *MemoryProgressStore) SetClock(now func() time.Time) {
	s.now = now
}

// entry returns the slot for key, inserting an empty one when absent.
// LoadOrStore guarantees a single slot per key even for racing first writes.
func (s *MemoryProgressStore) entry(key models.ProgressKey) *memoryEntry {
	if e, ok := s.entries.Load(key); ok {
		return e.(*memoryEntry)
	}
	e, _ := s.entries.LoadOrStore(key, &memoryEntry{})
	return e.(*memoryEntry)
}

// UpsertAttempt records one attempt for (userID, challengeID)
func (s *MemoryProgressStore) UpsertAttempt(ctx context.Context, userID, challengeID string, solved bool) (*models.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("failed to upsert attempt", err)
	}

	e := s.entry(models.ProgressKey{UserID: userID, ChallengeID: challengeID})
	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now().UTC()
	if !e.created {
		e.record = models.ProgressRecord{
			UserID:      userID,
			ChallengeID: challengeID,
			CreatedAt:   now,
		}
		e.created = true
	}
	e.record.Attempts++
	e.record.Solved = e.record.Solved || solved
	e.record.LastAttemptedAt = &now
	e.record.UpdatedAt = now

	return copyRecord(e.record), nil
}

// Get retrieves the record for one (user, challenge) pair
func (s *MemoryProgressStore) Get(ctx context.Context, userID, challengeID string) (*models.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("failed to get progress", err)
	}

	v, ok := s.entries.Load(models.ProgressKey{UserID: userID, ChallengeID: challengeID})
	if !ok {
		return nil, ErrNotFound
	}
	e := v.(*memoryEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.created {
		return nil, ErrNotFound
	}
	return copyRecord(e.record), nil
}

// ListByUser retrieves every record of a user ordered by challenge id
func (s *MemoryProgressStore) ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("failed to list user progress", err)
	}
	return s.collect(func(key models.ProgressKey) bool { return key.UserID == userID }), nil
}

// ListAll retrieves every record ordered by user and challenge id
func (s *MemoryProgressStore) ListAll(ctx context.Context) ([]models.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("failed to list progress", err)
	}
	return s.collect(func(models.ProgressKey) bool { return true }), nil
}

// Restore merges a record from a backup into the store
func (s *MemoryProgressStore) Restore(ctx context.Context, incoming models.ProgressRecord) (*models.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("failed to restore progress", err)
	}

	e := s.entry(incoming.Key())
	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now().UTC()
	if e.created {
		e.record = e.record.Merge(incoming)
	} else {
		e.record = *copyRecord(incoming)
		e.created = true
	}
	if e.record.CreatedAt.IsZero() {
		e.record.CreatedAt = now
	}
	if e.record.UpdatedAt.IsZero() {
		e.record.UpdatedAt = now
	}
	return copyRecord(e.record), nil
}

func (s *MemoryProgressStore) collect(match func(models.ProgressKey) bool) []models.ProgressRecord {
	records := []models.ProgressRecord{}
	s.entries.Range(func(k, v any) bool {
		if !match(k.(models.ProgressKey)) {
			return true
		}
		e := v.(*memoryEntry)
		e.mu.Lock()
		if e.created {
			records = append(records, *copyRecord(e.record))
		}
		e.mu.Unlock()
		return true
	})

	sort.Slice(records, func(i, j int) bool {
		if records[i].UserID != records[j].UserID {
			return records[i].UserID < records[j].UserID
		}
		return records[i].ChallengeID < records[j].ChallengeID
	})
	return records
}

func copyRecord(r models.ProgressRecord) *models.ProgressRecord {
	out := r
	if r.LastAttemptedAt != nil {
		t := *r.LastAttemptedAt
		out.LastAttemptedAt = &t
	}
	return &out
}

// MemoryUserStore keeps users in process memory
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	now   func() time.Time
}

// NewMemoryUserStore creates an empty in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]models.User),
		now:   time.Now,
	}
}

// UpsertUser creates a user or renames an existing one
func (s *MemoryUserStore) UpsertUser(ctx context.Context, id, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("failed to upsert user", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		user = models.User{ID: id, CreatedAt: s.now().UTC()}
	}
	user.Username = username
	s.users[id] = user
	return &user, nil
}

// GetUser retrieves a user by id
func (s *MemoryUserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("failed to get user", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// ListUsers retrieves every user ordered by id
func (s *MemoryUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("failed to list users", err)
	}

	s.mu.RLock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
