// Package config centralises configuration parsing for the dashboard and the audit consumer.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"example.com/octofit/internal/apiclient"
)

// Config captures runtime configuration values.
type Config struct {
	HTTPAddress     string
	MetricsAddress  string
	AllowedOrigins  []string
	APIBaseURL      string
	BackendTimeout  time.Duration // Zero disables the per-request deadline.
	SessionTTL      time.Duration
	SweepInterval   time.Duration
	HistoryPageSize int
	JWTSecret       string
	JWTIssuer       string
	KafkaBrokers    []string // Empty routes events in process.
	MembershipTopic string
	ConsumerGroup   string
	MaxAttempts     int    // Handler failures before a message is parked; zero retries forever.
	ReplayInterval  time.Duration
	PostgresURL     string // Empty selects the in-memory audit store.
}

// Load reads an optional .env file and then the environment, applying
// defaults for local dev. Variables already set in the environment win over
// the file.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	codespace := getEnv("CODESPACE_NAME", getEnv("REACT_APP_CODESPACE_NAME", ""))

	return Config{
		HTTPAddress:     getEnv("HTTP_ADDRESS", ":3000"),
		MetricsAddress:  getEnv("METRICS_ADDRESS", ":9102"),
		AllowedOrigins:  splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		APIBaseURL:      apiclient.ResolveBaseURL(codespace, getEnv("API_BASE_URL", "")),
		BackendTimeout:  getDurationEnv("BACKEND_TIMEOUT", 0),
		SessionTTL:      getDurationEnv("SESSION_TTL", 30*time.Minute),
		SweepInterval:   getDurationEnv("SESSION_SWEEP_INTERVAL", time.Minute),
		HistoryPageSize: getIntEnv("HISTORY_PAGE_SIZE", 20),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:       getEnv("JWT_ISSUER", "octofit.identity"),
		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		MembershipTopic: getEnv("MEMBERSHIP_TOPIC", "membership_events"),
		ConsumerGroup:   getEnv("CONSUMER_GROUP_ID", "octofit-audit"),
		MaxAttempts:     getIntEnv("AUDIT_MAX_ATTEMPTS", 5),
		ReplayInterval:  getDurationEnv("AUDIT_REPLAY_INTERVAL", time.Minute),
		PostgresURL:     getEnv("POSTGRES_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
