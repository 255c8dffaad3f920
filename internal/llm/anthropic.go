package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

//go:generate go run go.uber.org/mock/mockgen -source=anthropic.go -destination=mock_messages_test.go -package=llm

// messagesAPI is the slice of [*anthropic.Client] we call.
type messagesAPI interface {
	CreateMessages(ctx context.Context, request anthropic.MessagesRequest) (anthropic.MessagesResponse, error)
}

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	api       messagesAPI
	model     string
	maxTokens int
	logger    *slog.Logger
}

// AnthropicConfig configures [NewAnthropicClient].
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the API endpoint, mainly for proxies.
	BaseURL string
}

// NewAnthropicClient creates a client. The API key is required.
func NewAnthropicClient(cfg AnthropicConfig, logger *slog.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	return newAnthropicClient(anthropic.NewClient(cfg.APIKey, opts...), cfg, logger), nil
}

func newAnthropicClient(api messagesAPI, cfg AnthropicConfig, logger *slog.Logger) *AnthropicClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &AnthropicClient{
		api:       api,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// Provider implements [Client].
func (c *AnthropicClient) Provider() string {
	return ProviderAnthropic
}

// Complete implements [Client].
func (c *AnthropicClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	prompt := req.Prompt
	var temperature float32 // scoring must be repeatable

	c.logger.Debug("LLM request", "provider", ProviderAnthropic, "model", model, "prompt_len", len(prompt), "max_tokens", maxTokens)
	start := time.Now()

	resp, err := c.api.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error("LLM request failed", "provider", ProviderAnthropic, "elapsed", elapsed, "error", err)
		return nil, ClassifyError(ProviderAnthropic, model, err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			b.WriteString(*block.Text)
		}
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return nil, emptyResponse(ProviderAnthropic, model)
	}

	c.logger.Debug("LLM request completed",
		"provider", ProviderAnthropic,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed", elapsed)

	respModel := string(resp.Model)
	if respModel == "" {
		respModel = model
	}
	return &Response{
		Text:         text,
		Model:        respModel,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Duration:     elapsed,
	}, nil
}
