package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/floatchat/floatchat/internal/domain/knowledge"
	"github.com/floatchat/floatchat/internal/infra/llm"
)

// completer is the slice of the key pool the generator uses.
type completer interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Generator produces validated SQL via the model, with corrective retries:
// a rejected statement is sent back to the model together with the
// validator's reason, up to maxRetries times.
type Generator struct {
	llm        completer
	validator  *Validator
	maxRetries int
	logger     *slog.Logger
}

// NewGenerator wires a Generator. maxRetries < 0 is treated as 0
// (single attempt, no correction round).
func NewGenerator(c completer, v *Validator, maxRetries int, logger *slog.Logger) *Generator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: c, validator: v, maxRetries: maxRetries, logger: logger}
}

// Generate asks the model for SQL answering the question, validates it and
// returns the envelope with SQLQuery replaced by the normalized statement.
// Model transport errors surface as-is so the caller can decide whether the
// template fallback applies; exhausted corrective retries surface as
// ErrSQLValidationFailed.
func (g *Generator) Generate(ctx context.Context, question string, chunks []knowledge.Chunk, history []llm.Message) (*Envelope, error) {
	messages := BuildPrompt(question, chunks, history)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		resp, err := g.llm.ChatCompletion(ctx, llm.ChatRequest{
			Messages:    messages,
			Temperature: 0.1,
		})
		if err != nil {
			return nil, fmt.Errorf("sqlgen: completion: %w", err)
		}

		env, err := ParseEnvelope(resp.Content)
		if err != nil {
			lastErr = err
			g.logger.Warn("model response unparseable", "attempt", attempt, "error", err)
			messages = BuildCorrectionPrompt(messages, resp.Content, err.Error())
			continue
		}

		validated, err := g.validator.Validate(env.SQLQuery)
		if err != nil {
			lastErr = err
			g.logger.Warn("generated sql rejected", "attempt", attempt, "error", err)
			messages = BuildCorrectionPrompt(messages, env.SQLQuery, err.Error())
			continue
		}

		env.SQLQuery = validated
		return env, nil
	}

	if errors.Is(lastErr, ErrSQLValidationFailed) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %v", ErrSQLValidationFailed, lastErr)
}
