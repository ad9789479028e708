package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherquest/internal/catalog"
	"cipherquest/internal/models"
	"cipherquest/internal/repository"
	"cipherquest/internal/security"
	"cipherquest/internal/service"
)

type testEnv struct {
	handler http.Handler
	store   *repository.MemoryProgressStore
	users   *repository.MemoryUserStore
}

type envOptions struct {
	limiter *security.RateLimiter
	tokens  *security.TokenManager
	pinger  Pinger
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	store := repository.NewMemoryProgressStore()
	users := repository.NewMemoryUserStore()

	router := &Router{
		Middleware:  NewMiddleware(opts.limiter, opts.tokens),
		Progress:    NewProgressHandler(service.NewProgressService(store, cat)),
		Leaderboard: NewLeaderboardHandler(service.NewLeaderboardService(store, cat, users)),
		Challenges:  NewChallengeHandler(cat),
		Users:       NewUserHandler(service.NewUserService(users)),
		Health:      NewHealthHandler(opts.pinger),
	}
	return &testEnv{handler: router.Handler(), store: store, users: users}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestSubmitProgress(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, "POST", "/api/progress", SubmitRequest{UserID: "u1", ChallengeID: "c1", Answer: "Hello "}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[models.SubmitResult](t, rec)
	assert.True(t, result.Correct)
	assert.Equal(t, 1, result.Record.Attempts)
	assert.True(t, result.Record.Solved)

	rec = env.do(t, "POST", "/api/progress", SubmitRequest{UserID: "u1", ChallengeID: "c1", Answer: "xyz"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode[models.SubmitResult](t, rec)
	assert.False(t, result.Correct)
	assert.Equal(t, 2, result.Record.Attempts)
	assert.True(t, result.Record.Solved)
}

func TestSubmitProgressErrors(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{"invalid json", "{nope", http.StatusBadRequest, ErrInvalidJSON},
		{"missing user", SubmitRequest{ChallengeID: "c1", Answer: "x"}, http.StatusBadRequest, "userId is required"},
		{"unknown challenge", SubmitRequest{UserID: "u1", ChallengeID: "c404", Answer: "x"}, http.StatusNotFound, ErrChallengeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/progress", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decode[errorResponse](t, rec).Error)
		})
	}

	records, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records, "failed submissions must not write")
}

func TestReadProgress(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, "GET", "/api/progress/u1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, "GET", "/api/progress/u1/c1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrProgressNotFound, decode[errorResponse](t, rec).Error)

	env.do(t, "POST", "/api/progress", SubmitRequest{UserID: "u1", ChallengeID: "c1", Answer: "hello"}, nil)

	rec = env.do(t, "GET", "/api/progress/u1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]models.ProgressRecord](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, "c1", records[0].ChallengeID)

	rec = env.do(t, "GET", "/api/progress/u1/c1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.ProgressRecord](t, rec).Solved)
}

func TestLeaderboardEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	_, err := env.users.UpsertUser(context.Background(), "u2", "Bea")
	require.NoError(t, err)

	env.do(t, "POST", "/api/progress", SubmitRequest{UserID: "u1", ChallengeID: "c1", Answer: "hello"}, nil)
	env.do(t, "POST", "/api/progress", SubmitRequest{UserID: "u2", ChallengeID: "c4", Answer: "attackatdawn"}, nil)

	rec := env.do(t, "GET", "/api/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]models.LeaderboardEntry](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LeaderboardEntry{Rank: 1, UserID: "u2", Username: "Bea", Score: 25, Solved: 1}, entries[0])
	assert.Equal(t, models.LeaderboardEntry{Rank: 2, UserID: "u1", Username: "u1", Score: 10, Solved: 1}, entries[1])

	rec = env.do(t, "GET", "/api/leaderboard?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.LeaderboardEntry](t, rec), 1)

	rec = env.do(t, "GET", "/api/leaderboard?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChallengeEndpoints(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, "GET", "/api/challenges", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "plaintext")
	assert.NotContains(t, rec.Body.String(), "attackatdawn")

	rec = env.do(t, "GET", "/api/challenges?category=Advanced", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range decode[[]models.PublicChallenge](t, rec) {
		assert.Equal(t, models.CategoryAdvanced, c.Category)
	}

	rec = env.do(t, "GET", "/api/challenges/c1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "KHOOR", decode[models.PublicChallenge](t, rec).Ciphertext)

	rec = env.do(t, "GET", "/api/challenges/random", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[models.PublicChallenge](t, rec).ID)

	rec = env.do(t, "GET", "/api/challenges/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, "POST", "/api/users", RegisterRequest{ID: "u1", Username: "Ada"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Ada", decode[models.User](t, rec).Username)

	rec = env.do(t, "GET", "/api/users/u1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/users/u2", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "POST", "/api/users", RegisterRequest{ID: "u1", Username: ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	rec := newTestEnv(t, envOptions{}).do(t, "GET", "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	down := newTestEnv(t, envOptions{pinger: pingFunc(func(context.Context) error { return errors.New("down") })})
	rec = down.do(t, "GET", "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestBearerAuthentication(t *testing.T) {
	tokens := security.NewTokenManager("test-secret")
	env := newTestEnv(t, envOptions{tokens: tokens})

	token, err := tokens.Issue("u1", time.Hour)
	require.NoError(t, err)
	auth := http.Header{"Authorization": {"Bearer " + token}}
	body := SubmitRequest{UserID: "u1", ChallengeID: "c1", Answer: "hello"}

	rec := env.do(t, "POST", "/api/progress", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, "POST", "/api/progress", body, http.Header{"Authorization": {"Bearer junk"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, "POST", "/api/progress", SubmitRequest{UserID: "u2", ChallengeID: "c1", Answer: "hello"}, auth)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "POST", "/api/progress", body, auth)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/progress/u2", nil, auth)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "GET", "/api/progress/u1", nil, auth)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Public reads stay open
	rec = env.do(t, "GET", "/api/leaderboard", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitedSubmissions(t *testing.T) {
	limiter := security.NewRateLimiter(1, time.Hour)
	defer limiter.Stop()
	env := newTestEnv(t, envOptions{limiter: limiter})

	body := SubmitRequest{UserID: "u1", ChallengeID: "c1", Answer: "hello"}
	rec := env.do(t, "POST", "/api/progress", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", "/api/progress", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	record, err := env.store.Get(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.Attempts, "a rejected request must not count as an attempt")
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, "GET", "/healthz", nil, nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = env.do(t, "GET", "/healthz", nil, http.Header{RequestIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
