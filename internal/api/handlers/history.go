package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/speechtotext/internal/auth"
	"github.com/nikhilbhutani/speechtotext/internal/history"
	"github.com/nikhilbhutani/speechtotext/internal/models"
)

type HistoryHandler struct {
	svc *history.Service
}

func NewHistoryHandler(svc *history.Service) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

type appendHistoryRequest struct {
	Type models.HistoryKind `json:"type"`
	Text string             `json:"text"`
}

func (h *HistoryHandler) Append(w http.ResponseWriter, r *http.Request) {
	var req appendHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	entry, err := h.svc.Append(r.Context(), userID, req.Type, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, history.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, history.ErrUnknownOwner):
			writeError(w, http.StatusUnauthorized, "access denied")
		default:
			slog.Error("history append failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save history")
		}
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	entries, err := h.svc.ListForOwner(r.Context(), userID)
	if err != nil {
		slog.Error("history list failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
