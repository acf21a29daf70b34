package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/floatchat/floatchat/internal/domain/knowledge"
	"github.com/floatchat/floatchat/internal/domain/router"
	"github.com/floatchat/floatchat/internal/domain/session"
	"github.com/floatchat/floatchat/internal/domain/sqlgen"
	"github.com/floatchat/floatchat/internal/domain/tools"
	"github.com/floatchat/floatchat/internal/infra/eventbus"
	"github.com/floatchat/floatchat/internal/infra/llm"
	"github.com/floatchat/floatchat/internal/infra/postgres"
	"github.com/floatchat/floatchat/pkg/uuid"
)

// historyTurns bounds how much prior conversation is replayed into prompts.
const historyTurns = 6

// Collaborator slices, narrowed for testability.
type (
	classifier interface {
		Classify(question string, history []string) router.Classification
	}
	retriever interface {
		Retrieve(question string, hints []string) []knowledge.Chunk
	}
	generator interface {
		Generate(ctx context.Context, question string, chunks []knowledge.Chunk, history []llm.Message) (*sqlgen.Envelope, error)
	}
	executor interface {
		Query(ctx context.Context, sql string, args ...any) (*postgres.Result, error)
	}
	planner interface {
		BuildPlan(ctx context.Context, question string, chunks []knowledge.Chunk) (*tools.Plan, error)
	}
	orchestrator interface {
		Execute(ctx context.Context, plan *tools.Plan) (*tools.PlanResult, error)
	}
	turnStore interface {
		AppendTurn(ctx context.Context, sessionID string, role session.Role, content, pipeline string) (*session.Turn, error)
		History(ctx context.Context, sessionID string, limit int) ([]session.Turn, error)
	}
	publisher interface {
		Publish(topic string, payload any)
	}
)

// Service routes questions end to end.
type Service struct {
	classifier   classifier
	retriever    retriever
	generator    generator
	fallback     *sqlgen.Fallback
	planner      planner
	orchestrator orchestrator
	executor     executor
	turns        turnStore
	bus          publisher
	timeout      time.Duration
	logger       *slog.Logger
}

// Config wires a Service.
type Config struct {
	Classifier   classifier
	Retriever    retriever
	Generator    generator
	Fallback     *sqlgen.Fallback
	Planner      planner
	Orchestrator orchestrator
	Executor     executor
	Turns        turnStore
	Bus          publisher
	Timeout      time.Duration
	Logger       *slog.Logger
}

// NewService builds a Service. Timeout <= 0 means 90s.
func NewService(cfg Config) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		classifier:   cfg.Classifier,
		retriever:    cfg.Retriever,
		generator:    cfg.Generator,
		fallback:     cfg.Fallback,
		planner:      cfg.Planner,
		orchestrator: cfg.Orchestrator,
		executor:     cfg.Executor,
		turns:        cfg.Turns,
		bus:          cfg.Bus,
		timeout:      timeout,
		logger:       logger,
	}
}

// pipelineResult is the internal outcome of one pipeline attempt.
type pipelineResult struct {
	data          any
	explanation   string
	confidence    float64
	visualization []string
	path          string
}

// Submit answers one question. The returned envelope is always well-formed;
// failures carry a sanitized error. An empty sessionID starts a new session.
func (s *Service) Submit(ctx context.Context, question, sessionID string) *Envelope {
	start := time.Now()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	history := s.loadHistory(ctx, sessionID)
	cls := s.classifier.Classify(question, userTurns(history))
	chunks := s.retriever.Retrieve(question, cls.Signals)

	s.logger.Info("question routed",
		"session", sessionID, "pipeline", cls.Pipeline, "confidence", cls.Confidence)

	var (
		res *pipelineResult
		err error
	)
	if cls.Pipeline == router.PipelineTool {
		res, err = s.runToolPipeline(ctx, question, chunks)
		if err != nil {
			s.logger.Warn("tool pipeline failed, rerouting to sql", "error", err)
			res, err = s.runSQLPipeline(ctx, question, chunks, history, false)
		}
	} else {
		res, err = s.runSQLPipeline(ctx, question, chunks, history, true)
	}

	env := s.finish(ctx, sessionID, question, cls, res, err, time.Since(start))
	return env
}

// runSQLPipeline generates SQL and executes it. Validation exhaustion
// reroutes to the tool pipeline once; model unavailability drops to the
// template fallback. Execution errors are terminal.
func (s *Service) runSQLPipeline(ctx context.Context, question string, chunks []knowledge.Chunk, history []llm.Message, allowToolReroute bool) (*pipelineResult, error) {
	gen, err := s.generator.Generate(ctx, question, chunks, history)
	path := "sql"
	switch {
	case err == nil:
	case errors.Is(err, sqlgen.ErrSQLValidationFailed) && allowToolReroute:
		s.logger.Warn("sql validation exhausted, rerouting to tools", "error", err)
		if res, terr := s.runToolPipeline(ctx, question, chunks); terr == nil {
			res.path = "sql>" + res.path
			return res, nil
		}
		gen, path = s.fallback.Generate(question), "sql>template"
	default:
		s.logger.Warn("sql generation unavailable, using template", "error", err)
		gen, path = s.fallback.Generate(question), "sql>template"
	}

	result, err := s.executor.Query(ctx, gen.SQLQuery)
	if err != nil {
		return nil, err
	}
	return &pipelineResult{
		data: map[string]any{
			"rows":      result.Rows,
			"row_count": result.RowCount,
			"columns":   result.Columns,
			"sql":       gen.SQLQuery,
		},
		explanation:   gen.Explanation,
		confidence:    gen.Confidence,
		visualization: gen.SuggestedVisualizations,
		path:          path,
	}, nil
}

// runToolPipeline plans and executes tool calls. A plan where every call
// failed counts as a pipeline failure so the caller can reroute.
func (s *Service) runToolPipeline(ctx context.Context, question string, chunks []knowledge.Chunk) (*pipelineResult, error) {
	plan, err := s.planner.BuildPlan(ctx, question, chunks)
	if err != nil {
		return nil, err
	}
	planRes, err := s.orchestrator.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}
	if planRes.AllFailed() {
		return nil, errors.Join(tools.ErrNoPlan, firstFailure(planRes))
	}
	return &pipelineResult{
		data: planRes,
		path: "tool",
	}, nil
}

func firstFailure(r *tools.PlanResult) error {
	for _, res := range r.Results {
		if res.Status == tools.StatusFailed && res.Err != "" {
			return errors.New(res.Err)
		}
	}
	return nil
}

// finish shapes the envelope, persists the turn pair and publishes the
// outcome event.
func (s *Service) finish(ctx context.Context, sessionID, question string, cls router.Classification, res *pipelineResult, err error, elapsed time.Duration) *Envelope {
	env := &Envelope{
		SessionID:   sessionID,
		ExecutionMS: elapsed.Milliseconds(),
	}
	if err != nil {
		env.Success = false
		env.Error = sanitizeError(err)
		env.ExecutionPath = string(cls.Pipeline)
	} else {
		env.Success = true
		env.Data = res.data
		env.Explanation = res.explanation
		env.Confidence = res.confidence
		env.Visualization = res.visualization
		env.ExecutionPath = res.path
	}

	s.appendTurns(ctx, sessionID, question, env)

	if s.bus != nil {
		s.bus.Publish(eventbus.TopicPipelineResult, Outcome{
			Pipeline:   env.ExecutionPath,
			Success:    env.Success,
			DurationMS: env.ExecutionMS,
		})
	}
	return env
}

// appendTurns records the question and the answer summary. Persistence
// failures are logged, not surfaced: the answer is already computed.
func (s *Service) appendTurns(ctx context.Context, sessionID, question string, env *Envelope) {
	if _, err := s.turns.AppendTurn(ctx, sessionID, session.RoleUser, question, ""); err != nil {
		s.logger.Error("persist user turn", "error", err)
		return
	}
	content := env.Explanation
	if content == "" {
		if env.Success {
			content = "answered"
		} else {
			content = env.Error
		}
	}
	if _, err := s.turns.AppendTurn(ctx, sessionID, session.RoleAssistant, content, env.ExecutionPath); err != nil {
		s.logger.Error("persist assistant turn", "error", err)
	}
}

// userTurns extracts the user-authored contents from history, oldest
// first, for the classifier's follow-up pass.
func userTurns(history []llm.Message) []string {
	var out []string
	for _, m := range history {
		if m.Role == string(session.RoleUser) {
			out = append(out, m.Content)
		}
	}
	return out
}

// loadHistory converts recent turns to chat messages. A missing session is
// simply an empty history.
func (s *Service) loadHistory(ctx context.Context, sessionID string) []llm.Message {
	turns, err := s.turns.History(ctx, sessionID, historyTurns)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			s.logger.Warn("load history", "error", err)
		}
		return nil
	}
	out := make([]llm.Message, len(turns))
	for i, t := range turns {
		out[i] = llm.Message{Role: string(t.Role), Content: t.Content}
	}
	return out
}
