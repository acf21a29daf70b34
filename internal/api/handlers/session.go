package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/floatchat/floatchat/internal/domain/session"
)

// historySource is the slice of the session store the handler needs.
type historySource interface {
	History(ctx context.Context, sessionID string, limit int) ([]session.Turn, error)
}

type SessionHandler struct {
	store historySource
}

func NewSessionHandler(store historySource) *SessionHandler {
	return &SessionHandler{store: store}
}

// History handles GET /api/v1/sessions/{id}/history.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	limit := parseHistoryLimit(r)

	turns, err := h.store.History(r.Context(), sessionID, limit)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
		"meta":       map[string]int{"total": len(turns)},
	})
}
