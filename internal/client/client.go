package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"cipherquest/internal/models"
)

var (
	// ErrUnavailable matches 503 responses: the server's store is down
	// and the request may be retried
	ErrUnavailable = errors.New("server unavailable")
	// ErrNotFound matches 404 responses
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is match ErrUnavailable and ErrNotFound
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// RetryConfig controls backoff for retryable responses
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the backoff used when none is given
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2,
	}
}

// Client talks to the progress API
type Client struct {
	baseURL string
	http    *http.Client
	retry   RetryConfig
}

// New creates a client for baseURL. A non-empty token is sent as a bearer
// token on every request. base may be nil to use http.DefaultTransport.
func New(baseURL, token string, base http.RoundTripper, retry RetryConfig) *Client {
	if base == nil {
		base = http.DefaultTransport
	}
	transport := base
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		}
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: transport, Timeout: 30 * time.Second},
		retry:   retry,
	}
}

// Submit sends one answer
func (c *Client) Submit(ctx context.Context, userID, challengeID, answer string) (*models.SubmitResult, error) {
	body := map[string]string{"userId": userID, "challengeId": challengeID, "answer": answer}
	var result models.SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/progress", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserProgress fetches every record of a user
func (c *Client) UserProgress(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	if err := c.do(ctx, http.MethodGet, "/api/progress/"+url.PathEscape(userID), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ChallengeProgress fetches one record; a missing record matches ErrNotFound
func (c *Client) ChallengeProgress(ctx context.Context, userID, challengeID string) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	path := "/api/progress/" + url.PathEscape(userID) + "/" + url.PathEscape(challengeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Leaderboard fetches the ranking. limit <= 0 fetches every entry.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	path := "/api/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var entries []models.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Challenges lists the public catalogue, optionally by category
func (c *Client) Challenges(ctx context.Context, category string) ([]models.PublicChallenge, error) {
	path := "/api/challenges"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var challenges []models.PublicChallenge
	if err := c.do(ctx, http.MethodGet, path, nil, &challenges); err != nil {
		return nil, err
	}
	return challenges, nil
}

// RegisterUser creates or renames a user
func (c *Client) RegisterUser(ctx context.Context, userID, username string) (*models.User, error) {
	var user models.User
	body := map[string]string{"id": userID, "username": username}
	if err := c.do(ctx, http.MethodPost, "/api/users", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do sends a request, retrying 503 responses with exponential backoff and
// jitter. Transport failures are retried only for GET, since a POST may
// have reached the server.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := range c.retry.MaxAttempts {
		err := c.once(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !c.shouldRetry(method, err) {
			return err
		}
		if attempt == c.retry.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt, err)):
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}

func (c *Client) shouldRetry(method string, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusServiceUnavailable
	}
	return method == http.MethodGet
}

// backoff computes the wait before the next attempt
func (c *Client) backoff(attempt int, err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 && apiErr.RetryAfter < c.retry.MaxWait {
		return apiErr.RetryAfter
	}

	wait := float64(c.retry.InitialWait) * math.Pow(c.retry.Multiplier, float64(attempt))
	if wait > float64(c.retry.MaxWait) {
		wait = float64(c.retry.MaxWait)
	}

	// ±20% jitter
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
