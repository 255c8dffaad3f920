package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func textBlock(s string) anthropic.MessageContent {
	return anthropic.MessageContent{Type: "text", Text: &s}
}

func TestAnthropicClient_Complete(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := NewMockmessagesAPI(ctrl)

	api.EXPECT().CreateMessages(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req anthropic.MessagesRequest) (anthropic.MessagesResponse, error) {
			assert.Equal(t, anthropic.Model("claude-sonnet-4-20250514"), req.Model)
			assert.Equal(t, 4000, req.MaxTokens)
			require.NotNil(t, req.Temperature)
			assert.Zero(t, *req.Temperature)
			require.Len(t, req.Messages, 1)
			require.Len(t, req.Messages[0].Content, 1)
			assert.Equal(t, "score this", *req.Messages[0].Content[0].Text)

			return anthropic.MessagesResponse{
				Model:   "claude-sonnet-4-20250514",
				Content: []anthropic.MessageContent{textBlock("Section,"), textBlock("Question_Number")},
				Usage:   anthropic.MessagesUsage{InputTokens: 120, OutputTokens: 30},
			}, nil
		})

	c := newAnthropicClient(api, AnthropicConfig{}, slog.New(slog.DiscardHandler))
	assert.Equal(t, ProviderAnthropic, c.Provider())

	resp, err := c.Complete(context.Background(), &Request{Prompt: "score this"})
	require.NoError(t, err)
	assert.Equal(t, "Section,Question_Number", resp.Text)
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Model)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 30, resp.OutputTokens)
}

func TestAnthropicClient_RequestOverrides(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := NewMockmessagesAPI(ctrl)

	api.EXPECT().CreateMessages(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req anthropic.MessagesRequest) (anthropic.MessagesResponse, error) {
			assert.Equal(t, anthropic.Model("other-model"), req.Model)
			assert.Equal(t, 100, req.MaxTokens)
			return anthropic.MessagesResponse{Content: []anthropic.MessageContent{textBlock("ok")}}, nil
		})

	c := newAnthropicClient(api, AnthropicConfig{Model: "configured"}, slog.New(slog.DiscardHandler))
	resp, err := c.Complete(context.Background(), &Request{Prompt: "p", Model: "other-model", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "other-model", resp.Model)
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp anthropic.MessagesResponse
		err  error
		kind ErrorKind
	}{
		{
			name: "api error",
			err:  errors.New("anthropic api error type: authentication_error, message: invalid x-api-key, status code: 401"),
			kind: KindAuth,
		},
		{
			name: "timeout",
			err:  context.DeadlineExceeded,
			kind: KindTimeout,
		},
		{
			name: "no text blocks",
			resp: anthropic.MessagesResponse{},
			kind: KindEmptyResponse,
		},
		{
			name: "whitespace only",
			resp: anthropic.MessagesResponse{Content: []anthropic.MessageContent{textBlock("  \n")}},
			kind: KindEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			api := NewMockmessagesAPI(ctrl)
			api.EXPECT().CreateMessages(gomock.Any(), gomock.Any()).Return(tt.resp, tt.err)

			c := newAnthropicClient(api, AnthropicConfig{}, slog.New(slog.DiscardHandler))
			_, err := c.Complete(context.Background(), &Request{Prompt: "p"})

			var mce *ModelCallError
			require.ErrorAs(t, err, &mce)
			assert.Equal(t, tt.kind, mce.Kind)
			assert.Equal(t, ProviderAnthropic, mce.Provider)
		})
	}
}

func TestNewAnthropicClient_RequiresKey(t *testing.T) {
	_, err := NewAnthropicClient(AnthropicConfig{}, nil)
	require.Error(t, err)

	c, err := NewAnthropicClient(AnthropicConfig{APIKey: "k", BaseURL: "http://localhost:1/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.model)
	assert.Equal(t, DefaultMaxTokens, c.maxTokens)
}
