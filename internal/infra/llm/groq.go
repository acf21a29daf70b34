package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	mimeJSON            = "application/json"
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
)

// Classified provider errors. The key pool inspects these to decide the
// fate of the key that made the call.
var (
	// ErrRateLimited means the provider returned HTTP 429 for this key.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrAuthFailed means the provider rejected the key (401/403).
	ErrAuthFailed = errors.New("llm: authentication failed")
	// ErrServerError means the provider returned a 5xx status.
	ErrServerError = errors.New("llm: provider server error")
)

// GroqClient calls the Groq OpenAI-compatible chat completions API.
// Endpoint used: POST {baseURL}/chat/completions
type GroqClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGroqClient creates a GroqClient with the given per-request timeout.
func NewGroqClient(baseURL, model string, timeout time.Duration) *GroqClient {
	return &GroqClient{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ─── internal Groq JSON types (OpenAI-compatible) ────────────────────────────

type groqChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatRequest struct {
	Model       string            `json:"model"`
	Messages    []groqChatMessage `json:"messages"`
	Temperature float32           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Stream      bool              `json:"stream"`
}

type groqChatResponse struct {
	Choices []struct {
		Message      groqChatMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type groqErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ─── ChatClient implementation ───────────────────────────────────────────────

// ChatCompletion performs a non-streaming chat via POST /chat/completions
// authenticated with apiKey.
func (c *GroqClient) ChatCompletion(ctx context.Context, apiKey string, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]groqChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = groqChatMessage(m)
	}

	body, err := json.Marshal(groqChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("groq chat: build request: %w", err)
	}
	httpReq.Header.Set(headerContentType, mimeJSON)
	httpReq.Header.Set(headerAuthorization, "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("groq chat: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, resp.Body)
	}

	var groqResp groqChatResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&groqResp); decodeErr != nil {
		return nil, fmt.Errorf("groq chat: decode response: %w", decodeErr)
	}
	if len(groqResp.Choices) == 0 {
		return nil, fmt.Errorf("groq chat: response contained no choices")
	}

	return &ChatResponse{
		Content:      groqResp.Choices[0].Message.Content,
		FinishReason: groqResp.Choices[0].FinishReason,
		Tokens:       groqResp.Usage.TotalTokens,
	}, nil
}

// classifyStatus maps a non-200 status to one of the sentinel errors so the
// key pool can react per key.
func classifyStatus(status int, body io.Reader) error {
	var detail groqErrorResponse
	_ = json.NewDecoder(body).Decode(&detail) //nolint:errcheck

	msg := detail.Error.Message
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuthFailed, status, msg)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrServerError, status, msg)
	default:
		return fmt.Errorf("groq chat: status %d: %s", status, msg)
	}
}
