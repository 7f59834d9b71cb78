package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type callbackRequest struct {
	Code string `json:"code"`
}

func (h *Handler) googleAuthURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"authUrl": h.login.AuthURL()})
}

func (h *Handler) googleCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code is required")
		return
	}

	sess, err := h.login.Exchange(r.Context(), code)
	if err != nil {
		h.log.Warn("google login failed", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	if err := h.sessions.SaveSession(r.Context(), sess); err != nil {
		h.log.Error("save session", zap.String("user_id", sess.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to store session")
		return
	}

	user := sess.User()
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.log.Error("issue token", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	h.log.Info("user logged in", zap.String("user_id", user.ID))
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": user})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	sess, err := h.sessions.GetSession(r.Context(), claims.UserID)
	if err != nil {
		h.log.Error("load session", zap.String("user_id", claims.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Session not found. Please log in again.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": sess.User()})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if err := h.sessions.DeleteSession(r.Context(), claims.UserID); err != nil {
		h.log.Error("delete session", zap.String("user_id", claims.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
