package sqlgen

import "testing"

func TestParseEnvelopeJSON(t *testing.T) {
	t.Parallel()

	raw := `{
		"sql_query": "SELECT wmo_id FROM argo_floats LIMIT 10",
		"explanation": "lists floats",
		"confidence": 0.92,
		"query_type": "listing",
		"parameters_detected": {"limit": "10"},
		"suggested_visualizations": ["table"]
	}`
	env, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.SQLQuery != "SELECT wmo_id FROM argo_floats LIMIT 10" {
		t.Errorf("sql = %q", env.SQLQuery)
	}
	if env.Confidence != 0.92 {
		t.Errorf("confidence = %v", env.Confidence)
	}
	if env.ParametersDetected["limit"] != "10" {
		t.Errorf("parameters = %v", env.ParametersDetected)
	}
}

func TestParseEnvelopeFencedJSON(t *testing.T) {
	t.Parallel()

	raw := "Here is your query:\n```json\n{\"sql_query\": \"SELECT 1 FROM argo_floats\", \"confidence\": 0.5}\n```\nLet me know!"
	env, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.SQLQuery != "SELECT 1 FROM argo_floats" {
		t.Errorf("sql = %q", env.SQLQuery)
	}
}

func TestParseEnvelopeBareSQL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"SELECT wmo_id FROM argo_floats",
		"```sql\nSELECT wmo_id FROM argo_floats\n```",
		"  select wmo_id from argo_floats  ",
	} {
		env, err := ParseEnvelope(raw)
		if err != nil {
			t.Errorf("ParseEnvelope(%q): %v", raw, err)
			continue
		}
		if env.SQLQuery == "" {
			t.Errorf("ParseEnvelope(%q): empty sql", raw)
		}
	}
}

func TestParseEnvelopeErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "I cannot answer that question."},
		{"broken json", `{"sql_query": `},
		{"missing sql", `{"explanation": "no query"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseEnvelope(tc.raw); err == nil {
				t.Errorf("ParseEnvelope(%q): expected error", tc.raw)
			}
		})
	}
}
