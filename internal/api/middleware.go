package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"inboxsweep/internal/auth"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type ctxKey int

const claimsKey ctxKey = iota

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// authenticate requires a bearer JWT and stores its claims on the request.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}
		claims, err := h.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusForbidden, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// rateLimit counts requests per user. A failing limiter lets the request through.
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		allowed, err := h.limiter.Allow(r.Context(), "gmail:"+claims.UserID, h.opts.RateLimit, h.opts.RateWindow)
		if err != nil {
			h.log.Warn("rate limiter unavailable", zap.String("user_id", claims.UserID), zap.Error(err))
			allowed = true
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please wait before making more requests.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
