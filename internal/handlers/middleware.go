package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"cipherquest/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	RequestIDContextKey ContextKey = "request_id"
	SubjectContextKey   ContextKey = "subject"
)

// RequestIDHeader carries the per-request id in both directions
const RequestIDHeader = "X-Request-ID"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	rateLimiter *security.RateLimiter
	tokens      *security.TokenManager
}

// NewMiddleware creates a new middleware instance. A nil token manager
// disables bearer authentication; a nil rate limiter disables limiting.
func NewMiddleware(rateLimiter *security.RateLimiter, tokens *security.TokenManager) *Middleware {
	return &Middleware{
		rateLimiter: rateLimiter,
		tokens:      tokens,
	}
}

// RateLimit rejects clients that exceed the configured request rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimiter != nil && !m.rateLimiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// Authenticate requires a valid bearer token when token checks are enabled
// and stores its subject in the request context
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.tokens == nil {
			next(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		subject, err := m.tokens.Verify(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "Rejected bearer token", err)
			return
		}

		ctx := context.WithValue(r.Context(), SubjectContextKey, subject)
		next(w, r.WithContext(ctx))
	}
}

// authorizeUser reports whether the authenticated subject, if any, may act
// as userID. It writes a 403 when it may not.
func authorizeUser(w http.ResponseWriter, r *http.Request, userID string) bool {
	subject, ok := r.Context().Value(SubjectContextKey).(string)
	if !ok || subject == userID {
		return true
	}
	respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests and tags each with a request id
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		log.Printf("%s %s %d %s [%s]", r.Method, r.URL.Path, rec.status, time.Since(start), requestID)
	})
}

// GetRequestID retrieves the request id from the request context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
