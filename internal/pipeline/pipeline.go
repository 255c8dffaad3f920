// Package pipeline runs one document through load, prompt, model call,
// parse and aggregation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/surveyeval/qscore/internal/llm"
	"github.com/surveyeval/qscore/internal/loader"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/parser"
	"github.com/surveyeval/qscore/internal/prompt"
	"github.com/surveyeval/qscore/internal/scoring"
	"github.com/surveyeval/qscore/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// RawFilePrefix names raw reply files: scoring_results_<stem>.csv.
const RawFilePrefix = "scoring_results_"

// Scorer scores documents. It is not safe for concurrent use.
type Scorer struct {
	client    llm.Client
	loader    *loader.Loader
	prompts   *prompt.Builder
	attrs     models.AttributeSet
	model     string
	maxTokens int
	timeout   time.Duration
	rawDir    string
	runID     string
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scorer) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAttributes selects the attribute set. Defaults to the core profile.
func WithAttributes(attrs models.AttributeSet) Option {
	return func(s *Scorer) { s.attrs = attrs }
}

// WithModel sets the model name sent with each request.
func WithModel(model string) Option {
	return func(s *Scorer) { s.model = model }
}

// WithMaxTokens bounds the reply length.
func WithMaxTokens(n int) Option {
	return func(s *Scorer) { s.maxTokens = n }
}

// WithTimeout bounds each model call. Zero means no limit beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) { s.timeout = d }
}

// WithPromptBuilder replaces the embedded prompt template.
func WithPromptBuilder(b *prompt.Builder) Option {
	return func(s *Scorer) {
		if b != nil {
			s.prompts = b
		}
	}
}

// WithRawDir writes each cleaned model reply to dir.
func WithRawDir(dir string) Option {
	return func(s *Scorer) { s.rawDir = dir }
}

// WithRunID stamps results with a run identifier.
func WithRunID(id string) Option {
	return func(s *Scorer) { s.runID = id }
}

// New creates a Scorer around a model client.
func New(client llm.Client, opts ...Option) *Scorer {
	s := &Scorer{
		client:    client,
		prompts:   prompt.New(),
		attrs:     models.CoreAttributes(),
		maxTokens: llm.DefaultMaxTokens,
		logger:    slog.New(slog.DiscardHandler),
		tracer:    telemetry.NoopTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loader = loader.New(s.logger)
	return s
}

// Attributes returns the attribute set in use.
func (s *Scorer) Attributes() models.AttributeSet {
	return s.attrs
}

// Provider names the model backend.
func (s *Scorer) Provider() string {
	return s.client.Provider()
}

// Model returns the configured model name.
func (s *Scorer) Model() string {
	return s.model
}

// ScoreDocument scores the document at path. Load and model failures abort
// with a *loader.LoadError or *llm.ModelCallError; rejected reply rows are
// logged and returned in the result's ParseErrors.
func (s *Scorer) ScoreDocument(ctx context.Context, path string) (result *models.ScoringResult, err error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "score_document", trace.WithAttributes(
		telemetry.KeyDocument.String(path),
		telemetry.KeyProvider.String(s.client.Provider()),
	))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	doc, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.KeyFileType.String(string(doc.Format)))

	text, err := s.prompts.Build(doc.Text, s.attrs)
	if err != nil {
		return nil, fmt.Errorf("building prompt for %s: %w", path, err)
	}

	resp, err := s.complete(ctx, path, text)
	if err != nil {
		return nil, err
	}

	parsed := parser.Parse(resp.Text, s.attrs)
	for _, pe := range parsed.Errors {
		s.logger.Warn("dropped reply row", "document", doc.Name, "row", pe.Row, "reason", pe.Reason)
	}
	if parsed.DataRows == 0 {
		s.logger.Warn("model reply contained no data rows", "document", doc.Name)
	}

	result = scoring.NewResult(path, parsed.Questions, s.attrs)
	result.RunID = s.runID
	result.Model = resp.Model
	result.ParseErrors = parsed.Issues()
	result.Usage = &models.TokenUsage{InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens}
	result.DurationMs = time.Since(start).Milliseconds()

	span.SetAttributes(
		telemetry.KeyQuestionCount.Int(len(result.Questions)),
		telemetry.KeySectionCount.Int(len(result.Sections)),
		telemetry.KeyDroppedRows.Int(len(parsed.Errors)),
	)

	if s.rawDir != "" {
		if werr := s.writeRaw(doc, resp.Text); werr != nil {
			s.logger.Warn("failed to write raw reply", "document", doc.Name, "error", werr)
		}
	}

	s.logger.Info("document scored",
		"document", doc.Name,
		"questions", len(result.Questions),
		"sections", len(result.Sections),
		"dropped_rows", len(parsed.Errors),
		"duration_ms", result.DurationMs)
	return result, nil
}

func (s *Scorer) complete(ctx context.Context, path, text string) (resp *llm.Response, err error) {
	ctx, span := s.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		telemetry.KeyModel.String(s.model),
		telemetry.KeyPromptLength.Int(len(text)),
	))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err = s.client.Complete(ctx, &llm.Request{
		Prompt:    text,
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Document:  path,
	})
	if err != nil {
		return nil, llm.ClassifyError(s.client.Provider(), s.model, err)
	}

	span.SetAttributes(
		telemetry.KeyResponseLen.Int(len(resp.Text)),
		telemetry.KeyInputTokens.Int(resp.InputTokens),
		telemetry.KeyOutputTokens.Int(resp.OutputTokens),
		telemetry.KeyCached.Bool(resp.Cached),
	)
	return resp, nil
}

// RawPath is where the raw reply for doc is written under dir.
func RawPath(dir string, doc *loader.Document) string {
	return filepath.Join(dir, RawFilePrefix+doc.Stem()+".csv")
}

func (s *Scorer) writeRaw(doc *loader.Document, reply string) error {
	if err := os.MkdirAll(s.rawDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(RawPath(s.rawDir, doc), []byte(parser.CleanReply(reply)+"\n"), 0o644)
}
