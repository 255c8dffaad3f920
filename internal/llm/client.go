// Package llm sends a rendered prompt to a hosted model and returns its reply.
package llm

import (
	"context"
	"time"
)

//go:generate go run go.uber.org/mock/mockgen -source=client.go -destination=mock_client.go -package=llm

// Provider names accepted by [New].
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderReplay    = "replay"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultMaxTokens bounds the reply length.
const DefaultMaxTokens = 4000

// Request is a single completion call.
type Request struct {
	Prompt    string
	Model     string
	MaxTokens int
	// Document is the source document path. Only the replay provider uses it.
	Document string
}

// Response is the model's reply.
type Response struct {
	Text         string        `json:"text"`
	Model        string        `json:"model"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Duration     time.Duration `json:"duration"`
	// Cached is true when the reply came from the local cache.
	Cached bool `json:"-"`
}

// Client is a hosted model. Every failure is returned as a *ModelCallError.
type Client interface {
	// Complete sends the prompt and waits for the full reply.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Provider names the backend (anthropic, openai, replay).
	Provider() string
}
