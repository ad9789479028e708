package handlers

import "net/http"

// Router wires the handlers onto a ServeMux
type Router struct {
	Middleware  *Middleware
	Progress    *ProgressHandler
	Leaderboard *LeaderboardHandler
	Challenges  *ChallengeHandler
	Users       *UserHandler
	Health      *HealthHandler
}

// Handler returns the fully wrapped HTTP handler
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	m := rt.Middleware

	// Progress
	mux.HandleFunc("POST /api/progress", m.RateLimit(m.Authenticate(rt.Progress.Submit)))
	mux.HandleFunc("GET /api/progress/{userId}", m.Authenticate(rt.Progress.ListUserProgress))
	mux.HandleFunc("GET /api/progress/{userId}/{challengeId}", m.Authenticate(rt.Progress.GetChallengeProgress))

	// Leaderboard
	mux.HandleFunc("GET /api/leaderboard", rt.Leaderboard.Get)

	// Catalogue
	mux.HandleFunc("GET /api/challenges", rt.Challenges.List)
	mux.HandleFunc("GET /api/challenges/random", rt.Challenges.Random)
	mux.HandleFunc("GET /api/challenges/{id}", rt.Challenges.Get)

	// Users
	mux.HandleFunc("POST /api/users", m.RateLimit(m.Authenticate(rt.Users.Register)))
	mux.HandleFunc("GET /api/users/{userId}", rt.Users.Get)

	mux.HandleFunc("GET /healthz", rt.Health.Healthz)

	return Logging(mux)
}
