// Package llm provides the Groq chat-completion client and the API key pool
// that multiplexes requests across multiple rate-limited keys.
package llm

import "context"

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the client default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Content      string // The assistant message text.
	FinishReason string // "stop" | "length" | "tool_calls"
	Tokens       int    // Total tokens consumed (prompt + completion).
}

// ChatClient performs a single chat completion using the given API key.
// The key is passed per call so the pool can rotate keys across requests.
type ChatClient interface {
	ChatCompletion(ctx context.Context, apiKey string, req ChatRequest) (*ChatResponse, error)
}
