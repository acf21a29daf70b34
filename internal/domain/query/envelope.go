// Package query is the front door of the system: it routes a question
// through classification, retrieval and one of the two pipelines, executes
// the result against the database and shapes the response envelope.
package query

import (
	"errors"

	"github.com/floatchat/floatchat/internal/domain/sqlgen"
	"github.com/floatchat/floatchat/internal/domain/tools"
	"github.com/floatchat/floatchat/internal/infra/llm"
	"github.com/floatchat/floatchat/internal/infra/postgres"
)

// Envelope is the response shape for every submitted question. It is always
// well-formed: failures set Success=false and a sanitized Error, never a
// partial structure.
type Envelope struct {
	Success       bool     `json:"success"`
	SessionID     string   `json:"session_id"`
	Data          any      `json:"data,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Confidence    float64  `json:"confidence,omitempty"`
	ExecutionPath string   `json:"execution_path"`
	ExecutionMS   int64    `json:"execution_time_ms"`
	Visualization []string `json:"suggested_visualizations,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// sanitizeError maps internal failures to messages safe to show a caller.
// Provider names, key states and SQL fragments never leave the service.
func sanitizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, llm.ErrAllKeysExhausted):
		return "the language model is at capacity, try again shortly"
	case errors.Is(err, llm.ErrLLMTimeout):
		return "the request timed out, try a simpler question"
	case errors.Is(err, sqlgen.ErrSQLValidationFailed):
		return "could not produce a safe database query for this question"
	case errors.Is(err, tools.ErrNoPlan):
		return "could not determine how to answer this question"
	case errors.Is(err, tools.ErrToolArgInvalid):
		return "the question is missing information a tool needs"
	case errors.Is(err, postgres.ErrExecution):
		return "the database query failed"
	default:
		return "internal error"
	}
}
