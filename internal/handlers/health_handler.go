package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *database.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler. db may be nil when the
// service runs on the in-memory store.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz answers 200 when the database responds
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			respondWithError(w, http.StatusServiceUnavailable, ErrStorageUnavailable, "Health check failed", err)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
