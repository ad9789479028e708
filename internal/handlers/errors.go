package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cipherquest/internal/repository"
	"cipherquest/internal/service"
	"cipherquest/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	respondWithJSON(w, status, errorResponse{Error: userMsg})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// respondWithServiceError maps the service error taxonomy onto HTTP statuses
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, verr.Message, "", nil)
	case errors.Is(err, service.ErrChallengeNotFound):
		respondWithError(w, http.StatusNotFound, ErrChallengeNotFound, "", nil)
	case errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, ErrUserNotFound, "", nil)
	case errors.Is(err, repository.ErrNotFound):
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
	case errors.Is(err, repository.ErrStorageUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, ErrStorageUnavailable, logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
