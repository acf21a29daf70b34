// Package tools defines the operations the system can run against the ARGO
// database beyond plain SELECT: proximity search, trajectories, profile
// comparison and regional statistics. A plan of tool calls is produced per
// question and executed by the Orchestrator.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrToolArgInvalid means a call's arguments do not satisfy the tool's
// argument schema.
var ErrToolArgInvalid = errors.New("tools: invalid argument")

// ErrToolNotFound means the plan referenced an unregistered tool.
var ErrToolNotFound = errors.New("tools: tool not found")

// ArgType constrains a tool argument's JSON type.
type ArgType string

const (
	ArgNumber  ArgType = "number"
	ArgInteger ArgType = "integer"
	ArgString  ArgType = "string"
	ArgArray   ArgType = "array"
)

// ArgSpec describes one argument of a tool.
type ArgSpec struct {
	Name        string  `json:"name"`
	Type        ArgType `json:"type"`
	Required    bool    `json:"required"`
	Description string  `json:"description,omitempty"`
}

// RunFunc executes a tool against validated arguments.
type RunFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool is one registered operation.
type Tool struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Args        []ArgSpec `json:"args"`
	Run         RunFunc   `json:"-"`
}

// Registry holds the tool set. Registration happens at startup; lookups are
// read-only afterwards, so no locking.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate names are a programming error.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate registration of %s", t.Name))
	}
	r.tools[t.Name] = t
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (*Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// List returns all tools sorted by name.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidateArgs checks args against the tool's schema: required presence and
// JSON type per argument. Unknown argument names are rejected so a typo in a
// plan fails loudly instead of silently using a default.
func ValidateArgs(t *Tool, args map[string]any) error {
	specs := make(map[string]ArgSpec, len(t.Args))
	for _, s := range t.Args {
		specs[s.Name] = s
		if s.Required {
			if _, ok := args[s.Name]; !ok {
				return fmt.Errorf("%w: %s: missing required %q", ErrToolArgInvalid, t.Name, s.Name)
			}
		}
	}
	for name, value := range args {
		spec, ok := specs[name]
		if !ok {
			return fmt.Errorf("%w: %s: unknown argument %q", ErrToolArgInvalid, t.Name, name)
		}
		if err := checkType(spec.Type, value); err != nil {
			return fmt.Errorf("%w: %s: argument %q: %v", ErrToolArgInvalid, t.Name, name, err)
		}
	}
	return nil
}

// checkType accepts the Go representations JSON decoding produces. Integers
// additionally accept whole-valued float64, which is all encoding/json gives
// for numbers.
func checkType(argType ArgType, value any) error {
	switch argType {
	case ArgNumber:
		switch value.(type) {
		case float64, int, int64:
			return nil
		}
		return fmt.Errorf("expected number, got %T", value)
	case ArgInteger:
		switch v := value.(type) {
		case int, int64:
			return nil
		case float64:
			if v == float64(int64(v)) {
				return nil
			}
			return fmt.Errorf("expected integer, got %v", v)
		}
		return fmt.Errorf("expected integer, got %T", value)
	case ArgString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		return nil
	case ArgArray:
		switch value.(type) {
		case []any, []string, []float64, []int64:
			return nil
		}
		return fmt.Errorf("expected array, got %T", value)
	default:
		return fmt.Errorf("unknown argument type %q", argType)
	}
}
