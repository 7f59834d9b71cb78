package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"inboxsweep/internal/gmail"
	"inboxsweep/internal/model"

	"github.com/go-chi/chi/v5"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

func parseCandidateQuery(r *http.Request) (model.CandidateQuery, error) {
	q := r.URL.Query()
	cq := model.CandidateQuery{
		Page:            1,
		Limit:           defaultLimit,
		Sender:          q.Get("sender"),
		PageToken:       q.Get("pageToken"),
		IncludeArchived: q.Get("includeArchived") == "true",
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cq, fmt.Errorf("page must be a positive integer: %w", gmail.ErrInvalidInput)
		}
		cq.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cq, fmt.Errorf("limit must be a positive integer: %w", gmail.ErrInvalidInput)
		}
		cq.Limit = min(n, maxLimit)
	}
	return cq, nil
}

func (h *Handler) unsubscribeEmails(w http.ResponseWriter, r *http.Request) {
	cq, err := parseCandidateQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.sweeper.FetchCandidates(r.Context(), claimsFrom(r.Context()).UserID, cq)
	if err != nil {
		h.writeFailure(w, r, err, "Failed to fetch unsubscribe emails")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.sweeper.FetchStats(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		h.writeFailure(w, r, err, "Failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) emailDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.sweeper.FetchEmailDetail(r.Context(), claimsFrom(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, err, "Failed to fetch email")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) markUnsubscribed(w http.ResponseWriter, r *http.Request) {
	var req model.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.sweeper.RecordAction(r.Context(), claimsFrom(r.Context()).UserID, req)
	if err != nil {
		h.writeFailure(w, r, err, "Failed to record unsubscribe action")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
