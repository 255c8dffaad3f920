package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIBaseURL is the public OpenAI endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client    *openai.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *slog.Logger
}

// OpenAIConfig configures [NewOpenAIClient].
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewOpenAIClient creates a client. The model is required because the
// default model name belongs to another provider.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(clientConfig),
		endpoint:  clientConfig.BaseURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}, nil
}

// Provider implements [Client].
func (c *OpenAIClient) Provider() string {
	return ProviderOpenAI
}

// Complete implements [Client].
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	c.logger.Debug("LLM request", "provider", ProviderOpenAI, "endpoint", c.endpoint, "model", model, "prompt_len", len(req.Prompt))
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens: maxTokens,
	})
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error("LLM request failed", "provider", ProviderOpenAI, "elapsed", elapsed, "error", err)
		return nil, ClassifyError(ProviderOpenAI, model, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, emptyResponse(ProviderOpenAI, model)
	}

	c.logger.Debug("LLM request completed",
		"provider", ProviderOpenAI,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed", elapsed)

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}
	return &Response{
		Text:         resp.Choices[0].Message.Content,
		Model:        respModel,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Duration:     elapsed,
	}, nil
}
