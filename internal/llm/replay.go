package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReplayClient serves canned replies from disk instead of calling a model.
// The reply for document "surveys/intake.docx" is read from
// "<dir>/intake.csv" (or "<dir>/intake.txt").
type ReplayClient struct {
	dir    string
	model  string
	logger *slog.Logger
}

// NewReplayClient creates a replay client rooted at dir.
func NewReplayClient(dir, model string, logger *slog.Logger) (*ReplayClient, error) {
	if dir == "" {
		return nil, errors.New("replay: responses directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("replay: %s is not a directory", dir)
	}
	if model == "" {
		model = "replay"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReplayClient{dir: dir, model: model, logger: logger}, nil
}

// Provider implements [Client].
func (c *ReplayClient) Provider() string {
	return ProviderReplay
}

// Complete implements [Client].
func (c *ReplayClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, ClassifyError(ProviderReplay, c.model, err)
	}
	if req.Document == "" {
		return nil, &ModelCallError{Provider: ProviderReplay, Model: c.model, Kind: KindNotFound, Message: "request has no document name"}
	}

	base := filepath.Base(req.Document)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for _, ext := range []string{".csv", ".txt"} {
		path := filepath.Join(c.dir, stem+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &ModelCallError{Provider: ProviderReplay, Model: c.model, Kind: KindUnknown, Err: err}
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, emptyResponse(ProviderReplay, c.model)
		}
		c.logger.Debug("replaying reply", "document", req.Document, "path", path)
		return &Response{
			Text:     string(data),
			Model:    c.model,
			Duration: time.Since(start),
		}, nil
	}

	return nil, &ModelCallError{
		Provider: ProviderReplay,
		Model:    c.model,
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("no reply for %s in %s", stem, c.dir),
	}
}
