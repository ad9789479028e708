package handlers

import (
	"net/http"

	"cipherquest/internal/catalog"
	"cipherquest/internal/models"
)

// ChallengeHandler serves the public view of the catalogue. Plaintexts
// never leave the server.
type ChallengeHandler struct {
	catalog *catalog.Catalog
}

// NewChallengeHandler creates a new challenge handler
func NewChallengeHandler(c *catalog.Catalog) *ChallengeHandler {
	return &ChallengeHandler{catalog: c}
}

// List returns the catalogue, optionally filtered by ?category=
func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	challenges := h.catalog.ByCategory(r.URL.Query().Get("category"))

	out := make([]models.PublicChallenge, 0, len(challenges))
	for _, c := range challenges {
		out = append(out, c.Public())
	}
	respondWithJSON(w, http.StatusOK, out)
}

// Get returns one challenge
func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.catalog.Get(r.PathValue("id"))
	if !ok {
		respondWithError(w, http.StatusNotFound, ErrChallengeNotFound, "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, c.Public())
}

// Random returns a random challenge
func (h *ChallengeHandler) Random(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.Random()
	if err != nil {
		respondWithError(w, http.StatusNotFound, ErrCatalogEmpty, "", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, c.Public())
}
