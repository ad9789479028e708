package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cipherquest/internal/catalog"
	"cipherquest/internal/config"
	"cipherquest/internal/database"
	"cipherquest/internal/handlers"
	"cipherquest/internal/repository"
	"cipherquest/internal/security"
	"cipherquest/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Load the challenge catalogue
	challenges, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load challenge catalogue: %v", err)
	}
	log.Printf("Loaded %d challenges", challenges.Len())

	// Initialize storage
	var (
		progressStore service.ProgressStore
		userStore     service.UserStore
		pinger        handlers.Pinger
	)
	if strings.EqualFold(cfg.DatabaseType, "memory") {
		progressStore = repository.NewMemoryProgressStore()
		userStore = repository.NewMemoryUserStore()
		log.Println("Using in-memory store; progress is lost on restart")
	} else {
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err = db.RunMigrations(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Migrations completed successfully")

		progressStore = repository.NewProgressRepository(db, cfg.StoreTimeout)
		userStore = repository.NewUserRepository(db, cfg.StoreTimeout)
		pinger = db
	}

	// Initialize services
	progressService := service.NewProgressService(progressStore, challenges)
	if cfg.RequireKnownUsers {
		progressService.RequireKnownUsers(userStore)
	}
	leaderboardService := service.NewLeaderboardService(progressStore, challenges, userStore)
	userService := service.NewUserService(userStore)

	// Security
	rateLimiter := security.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer rateLimiter.Stop()

	var tokens *security.TokenManager
	if cfg.JWTSecret != "" {
		tokens = security.NewTokenManager(cfg.JWTSecret)
		log.Println("Bearer token authentication enabled")
	} else {
		log.Println("Warning: JWT_SECRET not set, progress endpoints are unauthenticated")
	}

	// Setup routes
	router := &handlers.Router{
		Middleware:  handlers.NewMiddleware(rateLimiter, tokens),
		Progress:    handlers.NewProgressHandler(progressService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		Challenges:  handlers.NewChallengeHandler(challenges),
		Users:       handlers.NewUserHandler(userService),
		Health:      handlers.NewHealthHandler(pinger),
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
