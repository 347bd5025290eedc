package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	AuthJWTSecret  string
	Environment    string

	// Anonymous session buffering
	MaxActionsPerSession int
	SessionTTL           time.Duration

	// Per (session, action kind) ingestion throttle
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	// Recurring expiry sweep, robfig/cron spec
	SweepSchedule string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		AuthJWTSecret:  getEnv("AUTH_JWT_SECRET", ""),
		Environment:    getEnv("ENVIRONMENT", "production"),

		MaxActionsPerSession: getIntEnv("MAX_ACTIONS_PER_SESSION", 50),
		SessionTTL:           getDurationEnv("SESSION_TTL", 24*time.Hour),

		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 10),
		RateLimitWindow:      getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 10m"),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
