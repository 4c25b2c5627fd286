package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "MEDIA_ROOT", "MEDIA_URL", "JWT_SECRET", "JWT_ISSUER",
		"REDIS_URL", "REDIS_PREFIX", "ALLOWED_ORIGINS", "MAX_MESSAGE_SIZE", "HISTORY_LIMIT", "FAILURE_LOG", "TOKEN_TTL_HOURS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	want := Default()
	if cfg.Port != want.Port || cfg.DBPath != want.DBPath || cfg.MediaURL != "/media/" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.HistoryLimit != 50 || cfg.MaxMessageSize != 65536 {
		t.Errorf("unexpected limits %+v", cfg)
	}
	if cfg.RedisURL != "" {
		t.Errorf("expected no redis by default, got %s", cfg.RedisURL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("MEDIA_URL", "files")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, ,https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("HISTORY_LIMIT", "-3")
	t.Setenv("TOKEN_TTL_HOURS", "2")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := FromEnv()
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.MediaURL != "/files/" {
		t.Errorf("expected /files/, got %s", cfg.MediaURL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("expected 1024, got %d", cfg.MaxMessageSize)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("expected invalid limit to fall back to 50, got %d", cfg.HistoryLimit)
	}
	if cfg.TokenDuration != 2*time.Hour {
		t.Errorf("expected 2h, got %v", cfg.TokenDuration)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("unexpected redis url %s", cfg.RedisURL)
	}
}
