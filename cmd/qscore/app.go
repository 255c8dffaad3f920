package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/surveyeval/qscore/internal/cache"
	"github.com/surveyeval/qscore/internal/config"
	"github.com/surveyeval/qscore/internal/llm"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/pipeline"
	"github.com/surveyeval/qscore/internal/prompt"
	"github.com/surveyeval/qscore/internal/telemetry"
)

// app holds what every model-calling command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	tel    *telemetry.Provider
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if debugLogging {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// setupApp loads dotenv files and config, then starts tracing. Call close
// when done so batched spans are flushed.
func setupApp(ctx context.Context, stderr io.Writer) (*app, error) {
	logger := newLogger(stderr)

	if err := config.LoadDotenv(logger); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded", "source", cfg.Source, "provider", cfg.Provider, "model", cfg.Model, "attributes", cfg.Attributes)

	tel, err := telemetry.Setup(ctx, cfg.TelemetrySettings(), logger)
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	return &app{cfg: cfg, logger: logger, tel: tel}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

type scorerOptions struct {
	attrs    models.AttributeSet
	rawDir   string
	runID    string
	useCache bool
}

// newScorer builds the model client and wraps it in a pipeline.
func (a *app) newScorer(opts scorerOptions) (*pipeline.Scorer, error) {
	client, err := llm.New(a.cfg.LLMOptions(), a.logger)
	if err != nil {
		return nil, &config.ConfigError{Field: "provider", Err: err}
	}
	if opts.useCache {
		a.logger.Debug("reply cache enabled", "dir", a.cfg.CacheDir)
		client = llm.WithCache(client, cache.New(a.cfg.CacheDir), a.cfg.Model, a.logger)
	}

	prompts, err := prompt.FromFile(a.cfg.PromptFile)
	if err != nil {
		return nil, &config.ConfigError{Field: "prompt_file", Err: err}
	}

	attrs := opts.attrs
	if attrs == nil {
		attrs = a.cfg.AttributeSet()
	}

	return pipeline.New(client,
		pipeline.WithLogger(a.logger),
		pipeline.WithTracer(a.tel.Tracer()),
		pipeline.WithAttributes(attrs),
		pipeline.WithModel(a.cfg.Model),
		pipeline.WithMaxTokens(a.cfg.MaxTokens),
		pipeline.WithTimeout(a.cfg.Timeout),
		pipeline.WithPromptBuilder(prompts),
		pipeline.WithRawDir(opts.rawDir),
		pipeline.WithRunID(opts.runID),
	), nil
}
