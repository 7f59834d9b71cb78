package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"inboxsweep/internal/gmail"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a sweeper error to its HTTP status. fallback is the body
// for upstream failures, which are not echoed to the client.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, gmail.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gmail.ErrCredentialsMissing):
		writeError(w, http.StatusUnauthorized, "Session not found. Please log in again.")
	case errors.Is(err, gmail.ErrAuthExpired):
		writeError(w, http.StatusUnauthorized, "Gmail access token expired. Please re-authenticate.")
	default:
		h.log.Error(fallback, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
