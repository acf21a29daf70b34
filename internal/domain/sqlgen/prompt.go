package sqlgen

import (
	"strings"

	"github.com/floatchat/floatchat/internal/domain/knowledge"
	"github.com/floatchat/floatchat/internal/infra/llm"
)

const systemPreamble = `You translate oceanographic questions into PostgreSQL.
You answer with a single JSON object, no prose, no markdown fences:
{
  "sql_query": "<one SELECT statement>",
  "explanation": "<one sentence>",
  "confidence": <0.0-1.0>,
  "query_type": "<listing|aggregate|lookup>",
  "parameters_detected": {"<name>": "<value>"},
  "validation_checks": ["<check applied>"],
  "suggested_visualizations": ["<chart type>"]
}
Rules: only SELECT, only documented tables and columns, always a LIMIT.`

// schemaExcerpt always rides along, independent of retrieval. A question
// whose retrieval context came back empty still needs column names.
const schemaExcerpt = `Schema:
argo_floats(wmo_id, deployment_date, float_type, institution, float_category)
argo_profiles(profile_id, wmo_id, cycle_number, profile_date, latitude,
longitude, float_category, data_mode, pressure_dbar[], temperature_celsius[],
salinity_psu[], doxy_micromol_per_kg[], chla_microgram_per_l[],
nitrate_micromol_per_kg[], and matching *_qc[] flag arrays)`

// workedExamples anchors the output shape with two known-good answers.
const workedExamples = `Examples:
Q: how many profiles were collected in 2024?
sql_query: SELECT COUNT(*) AS profile_count FROM argo_profiles WHERE profile_date >= '2024-01-01' AND profile_date < '2025-01-01' LIMIT 1
Q: salinity measurements from float 2902746
sql_query: SELECT cycle_number, profile_date, salinity_psu, pressure_dbar FROM argo_profiles WHERE wmo_id = 2902746 ORDER BY cycle_number LIMIT 100`

const correctionPreamble = `Your previous SQL was rejected. Produce a corrected
JSON object following the same format. Rejection reason:`

// BuildPrompt assembles the chat messages for a generation attempt: the
// system preamble with the fixed schema and examples, retrieved context
// chunks, prior session turns, and the user's question.
func BuildPrompt(question string, chunks []knowledge.Chunk, history []llm.Message) []llm.Message {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n")
	b.WriteString(schemaExcerpt)
	b.WriteString("\n\n")
	b.WriteString(workedExamples)
	if len(chunks) > 0 {
		b.WriteString("\n\nContext:\n")
		for _, c := range chunks {
			b.WriteString("\n## ")
			b.WriteString(c.Title)
			b.WriteString("\n")
			b.WriteString(c.Content)
			b.WriteString("\n")
		}
	}
	out := make([]llm.Message, 0, len(history)+2)
	out = append(out, llm.Message{Role: "system", Content: b.String()})
	out = append(out, history...)
	out = append(out, llm.Message{Role: "user", Content: question})
	return out
}

// BuildCorrectionPrompt extends a failed attempt's messages with the
// rejected statement and the validator's reason, asking for a fix.
func BuildCorrectionPrompt(prev []llm.Message, rejectedSQL, reason string) []llm.Message {
	out := make([]llm.Message, len(prev), len(prev)+2)
	copy(out, prev)
	out = append(out,
		llm.Message{Role: "assistant", Content: rejectedSQL},
		llm.Message{Role: "user", Content: correctionPreamble + " " + reason},
	)
	return out
}
