package handlers

import (
	"errors"
	"net/http"

	"cipherquest/internal/repository"
	"cipherquest/internal/service"
)

// UserHandler manages leaderboard display names
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest is the body of POST /api/users
type RegisterRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Register creates or renames a user
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	if !authorizeUser(w, r, req.ID) {
		return
	}

	user, err := h.userService.Register(r.Context(), req.ID, req.Username)
	if err != nil {
		respondWithServiceError(w, "Registering user failed ["+GetRequestID(r.Context())+"]", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

// Get returns one user
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), r.PathValue("userId"))
	if errors.Is(err, repository.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, ErrUserNotFound, "", nil)
		return
	}
	if err != nil {
		respondWithServiceError(w, "Getting user failed ["+GetRequestID(r.Context())+"]", err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}
