package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/floatchat/floatchat/internal/domain/knowledge"
	"github.com/floatchat/floatchat/internal/infra/llm"
)

// completer is the slice of the key pool the planner uses.
type completer interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

const plannerPreamble = `You plan tool calls answering oceanographic questions.
Answer with a single JSON object, no prose:
{"calls": [{"tool": "<name>", "args": {...}, "depends_on": "<earlier tool>", "bind": {"<arg>": "<column>"}}]}
depends_on and bind are optional; bind collects a column from the dependency's
result rows into an array argument. Use only the tools listed below.`

// Planner asks the model for a tool plan, falling back to pattern
// extraction when the model fails or plans an unknown tool.
type Planner struct {
	llm      completer
	registry *Registry
	logger   *slog.Logger
}

// NewPlanner wires a Planner.
func NewPlanner(c completer, registry *Registry, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{llm: c, registry: registry, logger: logger}
}

// BuildPlan produces a validated plan for the question. chunks is the
// retrieval context already selected for the question; it rides along so
// the model plans with the same region bounds and parameter notes the SQL
// pipeline sees. Order of recourse: model plan, then pattern extraction.
// ErrNoPlan means the question has no tool-shaped answer and the caller
// should reroute it.
func (p *Planner) BuildPlan(ctx context.Context, question string, chunks []knowledge.Chunk) (*Plan, error) {
	plan, err := p.modelPlan(ctx, question, chunks)
	switch {
	case err != nil:
		p.logger.Warn("model planning failed", "error", err)
	default:
		verr := p.verify(plan)
		if verr == nil {
			return plan, nil
		}
		p.logger.Warn("model plan rejected", "error", verr)
	}

	plan, err = ExtractPlan(question)
	if err != nil {
		return nil, err
	}
	if verr := p.verify(plan); verr != nil {
		return nil, verr
	}
	return plan, nil
}

func (p *Planner) modelPlan(ctx context.Context, question string, chunks []knowledge.Chunk) (*Plan, error) {
	resp, err := p.llm.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: p.systemPrompt(chunks)},
			{Role: "user", Content: question},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}
	return ParsePlan(resp.Content)
}

// systemPrompt renders the tool catalog and the retrieval context into the
// planning preamble.
func (p *Planner) systemPrompt(chunks []knowledge.Chunk) string {
	var b strings.Builder
	b.WriteString(plannerPreamble)
	b.WriteString("\n\nTools:\n")
	for _, t := range p.registry.List() {
		spec, _ := json.Marshal(t) //nolint:errcheck
		b.Write(spec)
		b.WriteString("\n")
	}
	if len(chunks) > 0 {
		b.WriteString("\nContext:\n")
		for _, c := range chunks {
			b.WriteString("\n## ")
			b.WriteString(c.Title)
			b.WriteString("\n")
			b.WriteString(c.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// verify checks every planned call against the registry: known tool, valid
// dependency reference, bound arguments declared by the tool.
func (p *Planner) verify(plan *Plan) error {
	keys := make(map[string]bool, len(plan.Calls))
	for _, call := range plan.Calls {
		tool, err := p.registry.Get(call.Tool)
		if err != nil {
			return err
		}
		if call.DependsOn != "" && !keys[call.DependsOn] {
			return fmt.Errorf("%w: %s depends on unknown call %q", ErrToolArgInvalid, call.Tool, call.DependsOn)
		}
		declared := make(map[string]bool, len(tool.Args))
		for _, a := range tool.Args {
			declared[a.Name] = true
		}
		for arg := range call.Bind {
			if !declared[arg] {
				return fmt.Errorf("%w: %s binds unknown argument %q", ErrToolArgInvalid, call.Tool, arg)
			}
		}
		keys[call.Key()] = true
	}
	return nil
}
