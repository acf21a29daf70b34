package sqlgen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Envelope is the structured response the model is instructed to emit.
// Everything except SQLQuery is advisory: the validator, not the model's
// own ValidationChecks, decides whether the statement runs.
type Envelope struct {
	SQLQuery                string            `json:"sql_query"`
	Explanation             string            `json:"explanation"`
	Confidence              float64           `json:"confidence"`
	QueryType               string            `json:"query_type"`
	ParametersDetected      map[string]string `json:"parameters_detected,omitempty"`
	ValidationChecks        []string          `json:"validation_checks,omitempty"`
	SuggestedVisualizations []string          `json:"suggested_visualizations,omitempty"`
}

var fenceRe = regexp.MustCompile("(?s)```(?:json|sql)?\\s*(.*?)```")

// stripFences removes a markdown code fence wrapping the payload, if any.
// Models wrap JSON in ```json fences no matter how firmly told not to.
func stripFences(s string) string {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// ParseEnvelope decodes the model output. Three shapes are accepted, in
// order: the JSON envelope (possibly fenced), a fenced bare SQL statement,
// and raw SQL text. The last two produce an envelope with only SQLQuery set.
func ParseEnvelope(raw string) (*Envelope, error) {
	payload := stripFences(raw)
	if payload == "" {
		return nil, fmt.Errorf("sqlgen: empty model response")
	}

	if strings.HasPrefix(payload, "{") {
		var env Envelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			return nil, fmt.Errorf("sqlgen: decode envelope: %w", err)
		}
		if strings.TrimSpace(env.SQLQuery) == "" {
			return nil, fmt.Errorf("sqlgen: envelope missing sql_query")
		}
		return &env, nil
	}

	// Bare SQL: tolerate models that skip the envelope entirely.
	if startsWithSelect(payload) {
		return &Envelope{SQLQuery: payload}, nil
	}
	return nil, fmt.Errorf("sqlgen: response is neither an envelope nor sql")
}

func startsWithSelect(s string) bool {
	upper := strings.ToUpper(strings.TrimSpace(s))
	return strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH")
}
