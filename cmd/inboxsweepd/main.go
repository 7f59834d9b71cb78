package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inboxsweep/internal/api"
	"inboxsweep/internal/auth"
	"inboxsweep/internal/config"
	"inboxsweep/internal/gmail"
	"inboxsweep/internal/logger"
	"inboxsweep/internal/ratelimit"
	"inboxsweep/internal/redisstore"
	"inboxsweep/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type sessionBackend interface {
	api.SessionStore
	Close() error
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		sessions sessionBackend
		limiter  ratelimit.Limiter = ratelimit.NewMemory()
	)
	switch cfg.SessionBackend {
	case "redis":
		rs, err := redisstore.New(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Fatal("connect to redis", zap.Error(err))
		}
		sessions, limiter = rs, rs
	default:
		ss, err := store.NewSQLiteStore(cfg.SQLitePath, cfg.SessionTTL)
		if err != nil {
			log.Fatal("open session database", zap.Error(err))
		}
		go purgeSessions(ctx, ss, time.Hour, log)
		sessions = ss
	}
	defer sessions.Close()

	login := auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)
	connector := gmail.NewConnector(login.OAuthConfig(), sessions)
	sweeper := gmail.NewSweeper(connector, cfg.FetchWorkers, log.Named("sweeper"))
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	handler := api.New(sessions, sweeper, login, tokens, limiter, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimitPerWindow,
		RateWindow:     cfg.RateLimitWindow,
	}, log.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("addr", srv.Addr), zap.String("session_backend", cfg.SessionBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}

func purgeSessions(ctx context.Context, s *store.SQLiteStore, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				log.Warn("purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
