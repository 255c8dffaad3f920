package llm

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/surveyeval/qscore/internal/cache"
)

// CachedClient serves repeated prompts from a reply cache.
type CachedClient struct {
	inner  Client
	cache  *cache.Cache
	model  string
	logger *slog.Logger
}

// WithCache wraps inner so identical requests hit the cache. model is used
// for the key when the request leaves it empty.
func WithCache(inner Client, c *cache.Cache, model string, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedClient{inner: inner, cache: c, model: model, logger: logger}
}

// Provider implements [Client].
func (c *CachedClient) Provider() string {
	return c.inner.Provider()
}

// CacheKey derives the key for a request.
func CacheKey(provider, model string, req *Request) string {
	if req.Model != "" {
		model = req.Model
	}
	return cache.Key(provider, model, strconv.Itoa(req.MaxTokens), req.Prompt)
}

// Complete implements [Client].
func (c *CachedClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	key := CacheKey(c.inner.Provider(), c.model, req)

	var hit Response
	if c.cache.Get(key, &hit) {
		c.logger.Debug("reply cache hit", "key", key[:12], "document", req.Document)
		hit.Cached = true
		return &hit, nil
	}

	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(key, resp); err != nil {
		c.logger.Warn("failed to store reply in cache", "error", err)
	}
	return resp, nil
}
