// Package config loads the relay configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration.
type Config struct {
	Port           string
	DBPath         string
	MediaRoot      string
	MediaURL       string
	JWTSecret      string
	JWTIssuer      string
	TokenDuration  time.Duration
	RedisURL       string
	RedisPrefix    string
	AllowedOrigins []string
	MaxMessageSize int64
	HistoryLimit   int
	FailureLog     string
}

const devSecret = "dev-secret-change-me"

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		Port:           "8080",
		DBPath:         "data/chat.db",
		MediaRoot:      "data/media",
		MediaURL:       "/media/",
		JWTSecret:      devSecret,
		JWTIssuer:      "room-relay",
		TokenDuration:  24 * time.Hour,
		RedisPrefix:    "relay:",
		AllowedOrigins: []string{"*"},
		MaxMessageSize: 64 * 1024,
		HistoryLimit:   50,
		FailureLog:     "data/persist-failures.jsonl",
	}
}

// FromEnv creates a Config from environment variables, falling back to
// defaults for unset or invalid values.
func FromEnv() Config {
	cfg := Default()

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.MediaRoot = getEnv("MEDIA_ROOT", cfg.MediaRoot)
	cfg.MediaURL = getEnv("MEDIA_URL", cfg.MediaURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RedisPrefix = getEnv("REDIS_PREFIX", cfg.RedisPrefix)
	cfg.FailureLog = getEnv("FAILURE_LOG", cfg.FailureLog)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseList(origins)
	}
	if v := os.Getenv("MAX_MESSAGE_SIZE"); v != "" {
		cfg.MaxMessageSize = int64(parsePositive(v, int(cfg.MaxMessageSize)))
	}
	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		cfg.HistoryLimit = parsePositive(v, cfg.HistoryLimit)
	}
	if v := os.Getenv("TOKEN_TTL_HOURS"); v != "" {
		cfg.TokenDuration = time.Duration(parsePositive(v, int(cfg.TokenDuration/time.Hour))) * time.Hour
	}

	return sanitize(cfg)
}

func sanitize(cfg Config) Config {
	cfg.Port = strings.TrimPrefix(cfg.Port, ":")
	if !strings.HasPrefix(cfg.MediaURL, "/") {
		cfg.MediaURL = "/" + cfg.MediaURL
	}
	if !strings.HasSuffix(cfg.MediaURL, "/") {
		cfg.MediaURL += "/"
	}
	if cfg.JWTSecret == devSecret {
		log.Printf("JWT_SECRET is not set, using an insecure development secret")
	}
	return cfg
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePositive(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}
