package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	JWTSecret          string
	JWTTTL             time.Duration
	SessionBackend     string // "sqlite" or "redis"
	SQLitePath         string
	RedisURL           string
	SessionTTL         time.Duration
	RateLimitPerWindow int
	RateLimitWindow    time.Duration
	FetchWorkers       int
	LogLevel           string
	AllowedOrigins     []string
	Production         bool
}

func Load() *Config {
	production := getEnv("APP_ENV", "development") == "production"
	redirect := getEnv("OAUTH_REDIRECT_URL", "http://localhost:5173/login")
	if production {
		if appURL := os.Getenv("APP_URL"); appURL != "" {
			redirect = strings.TrimRight(appURL, "/") + "/login"
		}
	}
	return &Config{
		Port:               getEnv("PORT", "3001"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectURL:   redirect,
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTL:             getEnvDuration("JWT_TTL", 24*time.Hour),
		SessionBackend:     getEnv("SESSION_BACKEND", "sqlite"),
		SQLitePath:         getEnv("SQLITE_PATH", filepath.Join("data", "inboxsweep.db")),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:         getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		RateLimitPerWindow: getEnvInt("RATE_LIMIT_PER_WINDOW", 30),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		FetchWorkers:       getEnvInt("FETCH_WORKERS", 16),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:     strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		Production:         production,
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.GoogleClientID == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID is required"))
	}
	if c.GoogleClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_SECRET is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.SessionBackend {
	case "sqlite", "redis":
	default:
		errs = append(errs, errors.New("SESSION_BACKEND must be sqlite or redis"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
