package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort        string
	DatabaseType      string
	DatabasePath      string
	DatabaseURL       string
	CatalogPath       string
	StoreTimeout      time.Duration
	PollInterval      time.Duration
	JWTSecret         string
	RequireKnownUsers bool
	RateLimit         int
	RateWindow        time.Duration
	ServerURL         string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment take precedence over it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return &Config{
		ServerPort:        getEnv("PORT", "8080"),
		DatabaseType:      getEnv("DB_TYPE", "sqlite"),
		DatabasePath:      getEnv("DB_PATH", "./cipherquest.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		CatalogPath:       getEnv("CATALOG_PATH", ""),
		StoreTimeout:      getDuration("STORE_TIMEOUT", 5*time.Second),
		PollInterval:      getDuration("POLL_INTERVAL", 5*time.Second),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		RequireKnownUsers: getBool("REQUIRE_KNOWN_USERS", false),
		RateLimit:         getInt("RATE_LIMIT", 60),
		RateWindow:        getDuration("RATE_WINDOW", time.Minute),
		ServerURL:         getEnv("SERVER_URL", "http://localhost:8080"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
