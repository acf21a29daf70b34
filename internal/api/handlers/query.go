package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/floatchat/floatchat/internal/domain/query"
)

// maxQuestionLen bounds the accepted question size; anything longer is not a
// natural-language question.
const maxQuestionLen = 2000

// submitter is the slice of the query service the handler needs.
type submitter interface {
	Submit(ctx context.Context, question, sessionID string) *query.Envelope
}

type QueryHandler struct {
	svc submitter
}

func NewQueryHandler(svc submitter) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type queryRequest struct {
	QueryText string `json:"query_text"`
	SessionID string `json:"session_id,omitempty"`
}

// Submit handles POST /api/v1/query. The envelope is always 200: pipeline
// failures are reported inside it with success=false and a sanitized error.
func (h *QueryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.QueryText = strings.TrimSpace(req.QueryText)
	if req.QueryText == "" {
		writeError(w, http.StatusBadRequest, "query_text is required")
		return
	}
	if len(req.QueryText) > maxQuestionLen {
		writeError(w, http.StatusBadRequest, "query_text is too long")
		return
	}

	env := h.svc.Submit(r.Context(), req.QueryText, req.SessionID)
	writeJSON(w, http.StatusOK, env)
}
