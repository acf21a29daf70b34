// Package router classifies a natural-language question into the pipeline
// that should answer it: direct SQL generation, or the tool orchestrator for
// spatial and analytical operations the database exposes as functions.
package router

import (
	"regexp"
	"sort"
	"strings"

	"github.com/floatchat/floatchat/internal/infra/config"
)

// Pipeline is the route a question takes through the system.
type Pipeline string

const (
	PipelineSQL  Pipeline = "sql"
	PipelineTool Pipeline = "tool"
)

// sqlTieEpsilon: when the two pipeline scores are within this fraction of
// the top score, route to SQL. A plain SELECT is cheaper to produce and
// easier to validate than a tool plan, so ties go to the safer pipeline.
const sqlTieEpsilon = 0.15

// historyDampening scales signals matched against the previous user turn.
// Follow-up questions rarely repeat the operative vocabulary; the prior
// turn keeps them in the same pipeline without drowning out the current
// question's own signals.
const historyDampening = 0.5

// Classification is the routing decision for one question.
type Classification struct {
	Pipeline   Pipeline `json:"pipeline"`
	Confidence float64  `json:"confidence"`
	// Signals lists the categories of the patterns that matched,
	// strongest first. Useful for explaining routing decisions.
	Signals []string `json:"signals,omitempty"`
}

// signal is one weighted pattern voting for a pipeline.
type signal struct {
	re       *regexp.Regexp
	weight   float64
	pipeline Pipeline
	category string
}

// Built-in signal table. Tool signals detect operations that map onto
// database functions (nearest-float search, trajectories, comparisons,
// regional statistics); SQL signals detect tabular questions. Weights
// reflect how unambiguous the phrase is.
var builtinSignals = []signal{
	// tool pipeline
	{regexp.MustCompile(`\b(nearest|closest)\b`), 3.0, PipelineTool, "proximity"},
	{regexp.MustCompile(`\bwithin\s+\d+\s*km\b`), 3.0, PipelineTool, "proximity"},
	{regexp.MustCompile(`(?:^|[\s(])-?\d{1,3}(\.\d+)?\s*[,°]\s*-?\d{1,3}(\.\d+)?\b`), 2.5, PipelineTool, "coordinates"},
	{regexp.MustCompile(`\b(trajectory|trajectories|path|track|drift(ed)?)\b`), 2.5, PipelineTool, "trajectory"},
	{regexp.MustCompile(`\bcompare\b`), 2.5, PipelineTool, "comparison"},
	{regexp.MustCompile(`\bbetween\s+(floats?|wmo)\b`), 2.0, PipelineTool, "comparison"},
	{regexp.MustCompile(`\b(statistics|stats|summary|summarize)\b`), 1.5, PipelineTool, "regional-stats"},
	{regexp.MustCompile(`\bdistance\b`), 1.5, PipelineTool, "proximity"},

	// sql pipeline
	{regexp.MustCompile(`\b(show|list|display|get|give me)\b`), 1.5, PipelineSQL, "listing"},
	{regexp.MustCompile(`\b(temperature|salinity|pressure|oxygen|chlorophyll|nitrate)\b`), 1.5, PipelineSQL, "parameter"},
	{regexp.MustCompile(`\b(profile|profiles|measurement|measurements)\b`), 1.0, PipelineSQL, "profiles"},
	{regexp.MustCompile(`\b(average|mean|max|maximum|min|minimum|count|how many)\b`), 1.5, PipelineSQL, "aggregate"},
	{regexp.MustCompile(`\b(arabian sea|bay of bengal|indian ocean|equator(ial)?)\b`), 1.0, PipelineSQL, "region"},
	{regexp.MustCompile(`\b(in|during|since|from)\s+(january|february|march|april|may|june|july|august|september|october|november|december|\d{4})\b`), 1.5, PipelineSQL, "temporal"},
	{regexp.MustCompile(`\blast\s+\d+\s+(day|days|week|weeks|month|months)\b`), 1.0, PipelineSQL, "temporal"},
	{regexp.MustCompile(`\bwmo\b|\b\d{7}\b`), 1.0, PipelineSQL, "float-id"},
}

// Classifier scores a question against the signal table and picks the
// higher-scoring pipeline.
type Classifier struct {
	signals []signal
}

// NewClassifier builds a classifier from the built-in table plus any
// operator-supplied rules.
func NewClassifier(rules []config.SignalRule) (*Classifier, error) {
	signals := make([]signal, 0, len(builtinSignals)+len(rules))
	signals = append(signals, builtinSignals...)
	for _, r := range rules {
		re, err := regexp.Compile(`(?i)` + r.Pattern)
		if err != nil {
			return nil, err
		}
		signals = append(signals, signal{
			re:       re,
			weight:   r.Weight,
			pipeline: Pipeline(r.Pipeline),
			category: r.Category,
		})
	}
	return &Classifier{signals: signals}, nil
}

// Classify routes a question. Confidence is the normalized margin between
// the winning and losing pipeline scores: 1.0 when only one pipeline
// matched, approaching 0 as the scores converge. A question matching no
// signal at all routes to SQL with zero confidence; the SQL pipeline's
// template fallback copes better with vague questions than a tool plan.
//
// history is the session's prior user turns, oldest first. The most recent
// one is scored at dampened weight so a signal-free follow-up ("and near
// the equator?") stays in the pipeline that answered the previous question.
func (c *Classifier) Classify(question string, history []string) Classification {
	scores := map[Pipeline]float64{}
	type hit struct {
		category string
		weight   float64
	}
	var hits []hit
	seen := map[string]bool{}
	collect := func(text string, factor float64) {
		q := strings.ToLower(text)
		for _, s := range c.signals {
			if !s.re.MatchString(q) {
				continue
			}
			scores[s.pipeline] += s.weight * factor
			if !seen[s.category] {
				seen[s.category] = true
				hits = append(hits, hit{category: s.category, weight: s.weight * factor})
			}
		}
	}
	collect(question, 1)
	if len(history) > 0 {
		collect(history[len(history)-1], historyDampening)
	}

	sqlScore, toolScore := scores[PipelineSQL], scores[PipelineTool]
	top, second, winner := sqlScore, toolScore, PipelineSQL
	if toolScore > sqlScore {
		top, second, winner = toolScore, sqlScore, PipelineTool
	}

	if top == 0 {
		return Classification{Pipeline: PipelineSQL, Confidence: 0}
	}
	if winner == PipelineTool && top-second < sqlTieEpsilon*top {
		// Near-tie: fall back to the cheaper, easier-to-validate pipeline.
		winner = PipelineSQL
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].weight > hits[j].weight })
	categories := make([]string, len(hits))
	for i, h := range hits {
		categories[i] = h.category
	}

	return Classification{
		Pipeline:   winner,
		Confidence: (top - second) / top,
		Signals:    categories,
	}
}
