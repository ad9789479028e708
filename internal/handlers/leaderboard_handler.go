package handlers

import (
	"net/http"
	"strconv"

	"cipherquest/internal/service"
)

// LeaderboardHandler serves the ranking
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// Get returns the leaderboard, optionally cut to ?limit=n entries
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, ErrInvalidLimit, "", nil)
			return
		}
		limit = n
	}

	entries, err := h.leaderboardService.Top(r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, "Computing leaderboard failed ["+GetRequestID(r.Context())+"]", err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
