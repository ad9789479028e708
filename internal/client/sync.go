package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cipherquest/internal/models"
)

// DefaultPollInterval is used when a SyncAgent is created without one
const DefaultPollInterval = 5 * time.Second

// ErrStopped is returned by agent calls made after Stop
var ErrStopped = errors.New("sync agent stopped")

// API is the subset of Client the sync agent needs
type API interface {
	Submit(ctx context.Context, userID, challengeID, answer string) (*models.SubmitResult, error)
	UserProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// View is a snapshot of the agent's local state
type View struct {
	Progress    []models.ProgressRecord
	Leaderboard []models.LeaderboardEntry
	LastSync    time.Time
}

// Solved reports whether the view has challengeID marked solved
func (v View) Solved(challengeID string) bool {
	for _, r := range v.Progress {
		if r.ChallengeID == challengeID {
			return r.Solved
		}
	}
	return false
}

// SyncAgent keeps a local, optimistic copy of one user's progress and the
// leaderboard. Local state is replaced wholesale by every successful poll.
type SyncAgent struct {
	api      API
	userID   string
	interval time.Duration
	id       string
	now      func() time.Time
	onSync   func(View)

	mu          sync.RWMutex
	progress    map[string]models.ProgressRecord
	leaderboard []models.LeaderboardEntry
	lastSync    time.Time
	stopped     bool

	// pollMu keeps polls from overlapping
	pollMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSyncAgent creates an agent for userID. interval <= 0 uses
// DefaultPollInterval.
func NewSyncAgent(api API, userID string, interval time.Duration) *SyncAgent {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncAgent{
		api:      api,
		userID:   userID,
		interval: interval,
		id:       uuid.NewString(),
		now:      time.Now,
		progress: make(map[string]models.ProgressRecord),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnSync registers fn to be called with a fresh view after every
// successful poll. Set it before Start.
func (a *SyncAgent) OnSync(fn func(View)) {
	a.onSync = fn
}

// ID identifies this agent in logs
func (a *SyncAgent) ID() string {
	return a.id
}

// Start launches the poll loop. The first poll runs immediately.
func (a *SyncAgent) Start() {
	a.startOnce.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.stopped {
			return
		}
		a.wg.Add(1)
		go a.loop()
	})
}

func (a *SyncAgent) loop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if err := a.poll(a.ctx); err != nil && a.ctx.Err() == nil {
			log.Printf("[sync %s] poll failed: %v", a.id, err)
		}
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the poll loop and any background submissions and waits for
// them. No fetch happens after Stop returns.
func (a *SyncAgent) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.stopped = true
		a.mu.Unlock()

		a.cancel()
		a.wg.Wait()
		// Wait out a Refresh that was already polling
		a.pollMu.Lock()
		a.pollMu.Unlock()
	})
}

// Refresh runs one poll now
func (a *SyncAgent) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(a.ctx, cancel)
	defer stop()

	return a.poll(ctx)
}

func (a *SyncAgent) poll(ctx context.Context) error {
	a.pollMu.Lock()
	defer a.pollMu.Unlock()

	if a.ctx.Err() != nil {
		return ErrStopped
	}

	board, err := a.api.Leaderboard(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	records, err := a.api.UserProgress(ctx, a.userID)
	if err != nil {
		return fmt.Errorf("failed to fetch progress: %w", err)
	}

	progress := make(map[string]models.ProgressRecord, len(records))
	for _, r := range records {
		progress[r.ChallengeID] = r
	}

	a.mu.Lock()
	a.progress = progress
	a.leaderboard = board
	a.lastSync = a.now()
	a.mu.Unlock()

	if a.onSync != nil {
		a.onSync(a.View())
	}
	return nil
}

// Submit applies the answer to the local view at once, marking the
// challenge solved and counting the attempt, then sends it to the server
// in the background. The server's record replaces the local one when the
// call succeeds, followed by an immediate poll; a failure is logged and
// left for the next poll to fix.
// Cancelling ctx abandons the background submission.
func (a *SyncAgent) Submit(ctx context.Context, challengeID, answer string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := a.now().UTC()
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return ErrStopped
	}
	record, ok := a.progress[challengeID]
	if !ok {
		record = models.ProgressRecord{UserID: a.userID, ChallengeID: challengeID, CreatedAt: now}
	}
	record.Solved = true
	record.Attempts++
	record.LastAttemptedAt = &now
	record.UpdatedAt = now
	a.progress[challengeID] = record
	a.wg.Add(1)
	a.mu.Unlock()

	subCtx, cancel := context.WithCancel(a.ctx)
	stop := context.AfterFunc(ctx, cancel)

	go func() {
		defer a.wg.Done()
		defer cancel()
		defer stop()

		result, err := a.api.Submit(subCtx, a.userID, challengeID, answer)
		if err != nil {
			if subCtx.Err() == nil {
				log.Printf("[sync %s] submit %s failed: %v", a.id, challengeID, err)
			}
			return
		}

		a.mu.Lock()
		if !a.stopped {
			a.progress[challengeID] = result.Record
		}
		a.mu.Unlock()

		// Pick up the new standings right away
		if err := a.poll(subCtx); err != nil && subCtx.Err() == nil {
			log.Printf("[sync %s] refresh after submit failed: %v", a.id, err)
		}
	}()
	return nil
}

// View returns a copy of the local state
func (a *SyncAgent) View() View {
	a.mu.RLock()
	defer a.mu.RUnlock()

	progress := make([]models.ProgressRecord, 0, len(a.progress))
	for _, r := range a.progress {
		progress = append(progress, r)
	}
	sort.Slice(progress, func(i, j int) bool {
		return progress[i].ChallengeID < progress[j].ChallengeID
	})

	board := make([]models.LeaderboardEntry, len(a.leaderboard))
	copy(board, a.leaderboard)

	return View{Progress: progress, Leaderboard: board, LastSync: a.lastSync}
}
