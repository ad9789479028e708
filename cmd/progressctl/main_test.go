package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherquest/internal/catalog"
	"cipherquest/internal/client"
	"cipherquest/internal/database"
	"cipherquest/internal/handlers"
	"cipherquest/internal/models"
	"cipherquest/internal/repository"
	"cipherquest/internal/security"
	"cipherquest/internal/service"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func newServer(t *testing.T) (*httptest.Server, *repository.MemoryProgressStore) {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)
	store := repository.NewMemoryProgressStore()
	users := repository.NewMemoryUserStore()

	router := &handlers.Router{
		Middleware:  handlers.NewMiddleware(nil, nil),
		Progress:    handlers.NewProgressHandler(service.NewProgressService(store, cat)),
		Leaderboard: handlers.NewLeaderboardHandler(service.NewLeaderboardService(store, cat, users)),
		Challenges:  handlers.NewChallengeHandler(cat),
		Users:       handlers.NewUserHandler(service.NewUserService(users)),
		Health:      handlers.NewHealthHandler(nil),
	}
	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "leaderboard", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "alice", "--ttl", "1h")
	require.NoError(t, err)

	subject, err := security.NewTokenManager("cli-secret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := execute(t, "token", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLeaderboardCommand(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()
	_, err := store.UpsertAttempt(ctx, "alice", "c1", true)
	require.NoError(t, err)
	_, err = store.UpsertAttempt(ctx, "bob", "c2", false)
	require.NoError(t, err)

	out, err := execute(t, "leaderboard", "--server", srv.URL, "--format", "json")
	require.NoError(t, err)

	var entries []models.LeaderboardEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, 10, entries[0].Score)

	out, err = execute(t, "leaderboard", "--server", srv.URL, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "bob")
}

func TestPrintLeaderboardText(t *testing.T) {
	entries := []models.LeaderboardEntry{
		{Rank: 1, UserID: "alice", Username: "Alice", Score: 35, Solved: 2},
		{Rank: 2, UserID: "bob", Username: "bob", Score: 35, Solved: 3},
	}

	var buf bytes.Buffer
	require.NoError(t, printLeaderboard(&buf, "text", entries))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "leaderboard_text", buf.Bytes())

	buf.Reset()
	require.NoError(t, printLeaderboard(&buf, "text", nil))
	assert.Equal(t, "No progress recorded yet\n", buf.String())
}

func TestExportImportCommands(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.db")

	db, err := database.Initialize(srcPath)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(ctx))
	repo := repository.NewProgressRepository(db, 5*time.Second)
	_, err = repo.UpsertAttempt(ctx, "alice", "c1", false)
	require.NoError(t, err)
	_, err = repo.UpsertAttempt(ctx, "alice", "c1", true)
	require.NoError(t, err)
	_, err = repository.NewUserRepository(db, 5*time.Second).UpsertUser(ctx, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	backupPath := filepath.Join(dir, "out", "backup.json")
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_PATH", srcPath)
	out, err := execute(t, "export", "--output", backupPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Export complete")

	dstPath := filepath.Join(dir, "dst.db")
	t.Setenv("DB_PATH", dstPath)
	out, err = execute(t, "import", "--input", backupPath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 users, 1 progress records")

	db, err = database.Initialize(dstPath)
	require.NoError(t, err)
	defer db.Close()

	record, err := repository.NewProgressRepository(db, 5*time.Second).Get(ctx, "alice", "c1")
	require.NoError(t, err)
	assert.True(t, record.Solved)
	assert.Equal(t, 2, record.Attempts)
}

func TestImportRequiresInput(t *testing.T) {
	_, err := execute(t, "import")
	require.Error(t, err)
}

// lockedBuffer is written by the sync agent while the test reads it
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatchPrintsEverySync(t *testing.T) {
	srv, store := newServer(t)
	_, err := store.UpsertAttempt(context.Background(), "alice", "c3", true)
	require.NoError(t, err)

	out := &lockedBuffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	opts := &RootOptions{Format: "text"}
	api := client.New(srv.URL, "", nil, client.DefaultRetryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, cmd, opts, api, "alice", 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		return strings.Count(out.String(), "-- synced") >= 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}

	text := out.String()
	assert.Contains(t, text, "alice: 1/1 challenges solved")
	assert.Contains(t, text, "RANK")
}
