package api

import (
	"context"
	"net/http"
	"time"

	"inboxsweep/internal/auth"
	"inboxsweep/internal/gmail"
	"inboxsweep/internal/model"
	"inboxsweep/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// SessionStore persists the credential a user delegated at login.
type SessionStore interface {
	SaveSession(ctx context.Context, sess model.Session) error
	GetSession(ctx context.Context, userID string) (*model.Session, error)
	DeleteSession(ctx context.Context, userID string) error
}

// Authenticator runs the Google authorization-code login.
type Authenticator interface {
	AuthURL() string
	Exchange(ctx context.Context, code string) (model.Session, error)
}

type Options struct {
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

type Handler struct {
	sessions SessionStore
	sweeper  *gmail.Sweeper
	login    Authenticator
	tokens   *auth.Tokens
	limiter  ratelimit.Limiter
	opts     Options
	log      *zap.Logger
}

func New(sessions SessionStore, sweeper *gmail.Sweeper, login Authenticator, tokens *auth.Tokens, limiter ratelimit.Limiter, opts Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		sweeper:  sweeper,
		login:    login,
		tokens:   tokens,
		limiter:  limiter,
		opts:     opts,
		log:      log,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	c := cors.New(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/auth/google", h.googleAuthURL)
		r.Post("/auth/google/callback", h.googleCallback)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Get("/auth/me", h.me)
			r.Post("/auth/logout", h.logout)
			r.Post("/gmail/mark-unsubscribed", h.markUnsubscribed)

			r.Group(func(r chi.Router) {
				r.Use(h.rateLimit)

				r.Get("/gmail/unsubscribe-emails", h.unsubscribeEmails)
				r.Get("/gmail/stats", h.stats)
				r.Get("/gmail/email/{id}", h.emailDetail)
			})
		})
	})

	return r
}
