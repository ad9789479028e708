package handlers

import (
	"errors"
	"log"
	"net/http"

	"cipherquest/internal/models"
	"cipherquest/internal/repository"
	"cipherquest/internal/service"
)

// ProgressHandler handles answer submissions and progress reads
type ProgressHandler struct {
	progressService *service.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// SubmitRequest is the body of POST /api/progress
type SubmitRequest struct {
	UserID      string `json:"userId"`
	ChallengeID string `json:"challengeId"`
	Answer      string `json:"answer"`
}

// Submit records one answer attempt
func (h *ProgressHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	if !authorizeUser(w, r, req.UserID) {
		return
	}

	result, err := h.progressService.Submit(r.Context(), req.UserID, req.ChallengeID, req.Answer)
	if err != nil {
		respondWithServiceError(w, "Submit failed ["+GetRequestID(r.Context())+"]", err)
		return
	}

	if result.Correct {
		log.Printf("User %s solved %s after %d attempts", req.UserID, req.ChallengeID, result.Record.Attempts)
	}
	respondWithJSON(w, http.StatusOK, result)
}

// ListUserProgress returns every record of a user
func (h *ProgressHandler) ListUserProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !authorizeUser(w, r, userID) {
		return
	}

	records, err := h.progressService.UserProgress(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, "Listing progress failed ["+GetRequestID(r.Context())+"]", err)
		return
	}
	if records == nil {
		records = []models.ProgressRecord{}
	}
	respondWithJSON(w, http.StatusOK, records)
}

// GetChallengeProgress returns the record of one (user, challenge) pair
func (h *ProgressHandler) GetChallengeProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !authorizeUser(w, r, userID) {
		return
	}

	record, err := h.progressService.ChallengeProgress(r.Context(), userID, r.PathValue("challengeId"))
	if errors.Is(err, repository.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, ErrProgressNotFound, "", nil)
		return
	}
	if err != nil {
		respondWithServiceError(w, "Getting progress failed ["+GetRequestID(r.Context())+"]", err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}
