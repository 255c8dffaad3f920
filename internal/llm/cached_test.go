package llm

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveyeval/qscore/internal/cache"
	"go.uber.org/mock/gomock"
)

func TestCachedClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := NewMockClient(ctrl)
	inner.EXPECT().Provider().Return(ProviderAnthropic).AnyTimes()

	req := &Request{Prompt: "score this", MaxTokens: 4000, Document: "a.docx"}
	inner.EXPECT().Complete(gomock.Any(), req).Return(&Response{Text: "csv", Model: "m", InputTokens: 3}, nil).Times(1)

	c := WithCache(inner, cache.New(filepath.Join(t.TempDir(), "c")), "m", slog.New(slog.DiscardHandler))
	assert.Equal(t, ProviderAnthropic, c.Provider())

	first, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "csv", second.Text)
	assert.Equal(t, 3, second.InputTokens)
}

func TestCachedClient_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := NewMockClient(ctrl)
	inner.EXPECT().Provider().Return(ProviderAnthropic).AnyTimes()

	callErr := &ModelCallError{Provider: ProviderAnthropic, Kind: KindServer}
	req := &Request{Prompt: "p"}
	inner.EXPECT().Complete(gomock.Any(), req).Return(nil, callErr).Times(2)

	c := WithCache(inner, cache.New(t.TempDir()), "m", nil)
	for i := 0; i < 2; i++ {
		_, err := c.Complete(context.Background(), req)
		assert.True(t, errors.Is(err, callErr))
	}
}

func TestCacheKey(t *testing.T) {
	base := &Request{Prompt: "p", MaxTokens: 4000}
	k := CacheKey("anthropic", "m", base)

	assert.Equal(t, k, CacheKey("anthropic", "m", &Request{Prompt: "p", MaxTokens: 4000, Document: "other.docx"}))
	assert.NotEqual(t, k, CacheKey("openai", "m", base))
	assert.NotEqual(t, k, CacheKey("anthropic", "m2", base))
	assert.NotEqual(t, k, CacheKey("anthropic", "m", &Request{Prompt: "p", MaxTokens: 100}))
	assert.NotEqual(t, k, CacheKey("anthropic", "m", &Request{Prompt: "p2", MaxTokens: 4000}))
	assert.Equal(t, CacheKey("anthropic", "override", base), CacheKey("anthropic", "m", &Request{Prompt: "p", MaxTokens: 4000, Model: "override"}))
}
