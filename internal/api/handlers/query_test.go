package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/floatchat/floatchat/internal/domain/query"
)

// fakeSubmitter records the submitted question and returns a canned envelope.
type fakeSubmitter struct {
	lastQuestion string
	lastSession  string
	env          *query.Envelope
}

func (f *fakeSubmitter) Submit(_ context.Context, question, sessionID string) *query.Envelope {
	f.lastQuestion = question
	f.lastSession = sessionID
	return f.env
}

func postQuery(t *testing.T, h *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Submit(rr, req)
	return rr
}

func TestQueryHandler_Submit(t *testing.T) {
	t.Parallel()

	svc := &fakeSubmitter{env: &query.Envelope{
		Success:       true,
		SessionID:     "sess-1",
		ExecutionPath: "sql",
		Explanation:   "recent profiles",
	}}
	h := NewQueryHandler(svc)

	rr := postQuery(t, h, `{"query_text":"show me recent profiles","session_id":"sess-1"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want=%d body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if svc.lastQuestion != "show me recent profiles" {
		t.Errorf("question = %q", svc.lastQuestion)
	}
	if svc.lastSession != "sess-1" {
		t.Errorf("session = %q", svc.lastSession)
	}

	var env query.Envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !env.Success || env.ExecutionPath != "sql" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestQueryHandler_FailedEnvelopeStillOK(t *testing.T) {
	t.Parallel()

	svc := &fakeSubmitter{env: &query.Envelope{
		Success:       false,
		SessionID:     "sess-2",
		ExecutionPath: "sql",
		Error:         "internal error",
	}}
	h := NewQueryHandler(svc)

	rr := postQuery(t, h, `{"query_text":"broken question"}`)

	// Pipeline failures travel inside the envelope, not as HTTP errors.
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want=%d", rr.Code, http.StatusOK)
	}

	var env query.Envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Success || env.Error == "" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestQueryHandler_TrimsQuestion(t *testing.T) {
	t.Parallel()

	svc := &fakeSubmitter{env: &query.Envelope{Success: true}}
	h := NewQueryHandler(svc)

	rr := postQuery(t, h, `{"query_text":"  show floats  "}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want=%d", rr.Code, http.StatusOK)
	}
	if svc.lastQuestion != "show floats" {
		t.Errorf("question = %q; want trimmed", svc.lastQuestion)
	}
}

func TestQueryHandler_BadRequests(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query_text": `},
		{"missing query_text", `{"session_id":"sess-1"}`},
		{"blank query_text", `{"query_text":"   "}`},
		{"oversized query_text", `{"query_text":"` + strings.Repeat("a", maxQuestionLen+1) + `"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeSubmitter{env: &query.Envelope{Success: true}}
			h := NewQueryHandler(svc)

			rr := postQuery(t, h, tc.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status=%d want=%d body=%s", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
			if svc.lastQuestion != "" {
				t.Errorf("service should not be called, got question %q", svc.lastQuestion)
			}
		})
	}
}
