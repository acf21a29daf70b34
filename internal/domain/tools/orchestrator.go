package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/floatchat/floatchat/internal/infra/postgres"
)

// CallStatus is the outcome of one planned call.
type CallStatus string

const (
	StatusOK      CallStatus = "ok"
	StatusFailed  CallStatus = "failed"
	StatusSkipped CallStatus = "skipped" // dependency failed or unresolvable
)

// CallResult pairs a call with its outcome. Output is the tool's return
// value, typically a *postgres.Result.
type CallResult struct {
	Call   Call       `json:"call"`
	Status CallStatus `json:"status"`
	Output any        `json:"output,omitempty"`
	Err    string     `json:"error,omitempty"`
}

// PlanResult aggregates every call's outcome, in plan order. A plan with
// some failed calls is still a result: partial answers beat no answer.
type PlanResult struct {
	Results   []CallResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
}

// AllFailed reports whether not a single call produced output.
func (r *PlanResult) AllFailed() bool {
	return r.Succeeded == 0
}

// Orchestrator executes plans: independent calls run concurrently, dependent
// calls wait for their dependency and receive bound values from its rows.
type Orchestrator struct {
	registry *Registry
	logger   *slog.Logger
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(registry *Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{registry: registry, logger: logger}
}

// Execute runs the plan in dependency rounds. Each round executes every call
// whose dependency (if any) has succeeded, concurrently. A call whose
// dependency failed is skipped, never attempted. Execute itself only fails
// on a nil or empty plan; per-call failures land in the result.
func (o *Orchestrator) Execute(ctx context.Context, plan *Plan) (*PlanResult, error) {
	if plan == nil || len(plan.Calls) == 0 {
		return nil, ErrNoPlan
	}

	done := make(map[string]*CallResult, len(plan.Calls))
	pending := make([]Call, len(plan.Calls))
	copy(pending, plan.Calls)

	for len(pending) > 0 {
		var ready, blocked []Call
		var skipped []CallResult
		for _, call := range pending {
			if call.DependsOn == "" {
				ready = append(ready, call)
				continue
			}
			dep, ok := done[call.DependsOn]
			switch {
			case !ok:
				blocked = append(blocked, call)
			case dep.Status != StatusOK:
				skipped = append(skipped, CallResult{
					Call:   call,
					Status: StatusSkipped,
					Err:    fmt.Sprintf("dependency %s %s", call.DependsOn, dep.Status),
				})
			default:
				ready = append(ready, call)
			}
		}

		if len(ready) == 0 && len(skipped) == 0 {
			// No progress possible: remaining calls reference each other or
			// a call that does not exist.
			for _, call := range blocked {
				done[call.Key()] = &CallResult{
					Call:   call,
					Status: StatusSkipped,
					Err:    fmt.Sprintf("unresolvable dependency %q", call.DependsOn),
				}
			}
			break
		}

		for i := range skipped {
			res := skipped[i]
			done[res.Call.Key()] = &res
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, call := range ready {
			// The dependency result is resolved here, before the goroutine
			// starts: sibling goroutines write done under mu, so it must not
			// be read from inside them.
			var dep *CallResult
			if call.DependsOn != "" {
				dep = done[call.DependsOn]
			}
			wg.Add(1)
			go func(call Call, dep *CallResult) {
				defer wg.Done()
				res := o.runCall(ctx, call, dep)
				mu.Lock()
				done[call.Key()] = res
				mu.Unlock()
			}(call, dep)
		}
		wg.Wait()

		pending = blocked
	}

	result := &PlanResult{Results: make([]CallResult, 0, len(plan.Calls))}
	for _, call := range plan.Calls {
		res, ok := done[call.Key()]
		if !ok {
			continue
		}
		result.Results = append(result.Results, *res)
		switch res.Status {
		case StatusOK:
			result.Succeeded++
		case StatusFailed:
			result.Failed++
		case StatusSkipped:
			result.Skipped++
		}
	}
	return result, nil
}

// runCall resolves bindings, validates arguments and runs one tool. dep is
// the already-completed dependency result, nil for independent calls.
func (o *Orchestrator) runCall(ctx context.Context, call Call, dep *CallResult) *CallResult {
	args := make(map[string]any, len(call.Args)+len(call.Bind))
	for k, v := range call.Args {
		args[k] = v
	}
	if len(call.Bind) > 0 {
		if dep == nil {
			return &CallResult{Call: call, Status: StatusFailed,
				Err: "bind without a completed dependency"}
		}
		for arg, column := range call.Bind {
			values, err := collectColumn(dep.Output, column)
			if err != nil {
				return &CallResult{Call: call, Status: StatusFailed,
					Err: fmt.Sprintf("bind %s: %v", arg, err)}
			}
			args[arg] = values
		}
	}

	tool, err := o.registry.Get(call.Tool)
	if err != nil {
		return &CallResult{Call: call, Status: StatusFailed, Err: err.Error()}
	}
	if err := ValidateArgs(tool, args); err != nil {
		return &CallResult{Call: call, Status: StatusFailed, Err: err.Error()}
	}

	output, err := tool.Run(ctx, args)
	if err != nil {
		o.logger.Warn("tool call failed", "tool", call.Tool, "error", err)
		return &CallResult{Call: call, Status: StatusFailed, Err: err.Error()}
	}
	return &CallResult{Call: call, Status: StatusOK, Output: output}
}

// collectColumn pulls one column's values out of a dependency's result rows,
// deduplicated in first-seen order.
func collectColumn(output any, column string) ([]any, error) {
	res, ok := output.(*postgres.Result)
	if !ok {
		return nil, fmt.Errorf("dependency output has no rows (%T)", output)
	}
	seen := make(map[any]bool)
	var values []any
	for _, row := range res.Rows {
		v, ok := row[column]
		if !ok {
			return nil, fmt.Errorf("dependency rows have no column %q", column)
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values, nil
}
