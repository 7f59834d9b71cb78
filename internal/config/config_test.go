package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("RATE_LIMIT_PER_WINDOW", "not-a-number")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("PORT", "8080")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("port got %q", cfg.Port)
	}
	if cfg.JWTTTL != 2*time.Hour {
		t.Fatalf("jwt ttl got %v", cfg.JWTTTL)
	}
	if cfg.RateLimitPerWindow != 30 {
		t.Fatalf("invalid int should fall back, got %d", cfg.RateLimitPerWindow)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("window got %v", cfg.RateLimitWindow)
	}
}

func TestProductionRedirect(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_URL", "https://sweep.example.com/")
	if got := Load().OAuthRedirectURL; got != "https://sweep.example.com/login" {
		t.Fatalf("redirect got %q", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{SessionBackend: "memcache"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation errors")
	}
	cfg = &Config{GoogleClientID: "id", GoogleClientSecret: "s", JWTSecret: "j", SessionBackend: "redis"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
