// Package harness replays the scoring pipeline over a labelled dataset and
// folds the per-document metrics into an eval outcome.
package harness

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/surveyeval/qscore/internal/dataset"
	"github.com/surveyeval/qscore/internal/evaluation"
	"github.com/surveyeval/qscore/internal/llm"
	"github.com/surveyeval/qscore/internal/loader"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Scorer is the part of the pipeline the runner drives.
type Scorer interface {
	ScoreDocument(ctx context.Context, path string) (*models.ScoringResult, error)
	Provider() string
	Model() string
}

// ProgressListener receives progress updates.
type ProgressListener func(event ProgressEvent)

// EventType names a progress event.
type EventType string

const (
	EventRunStart         EventType = "run_start"
	EventRunComplete      EventType = "run_complete"
	EventDocumentStart    EventType = "document_start"
	EventDocumentComplete EventType = "document_complete"
)

// ProgressEvent is one progress update.
type ProgressEvent struct {
	EventType  EventType
	CaseID     string
	CaseNum    int
	TotalCases int
	Status     models.Status
	DurationMs int64
	Details    map[string]any
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithCaseFilters limits the run to cases whose ID matches a glob pattern.
func WithCaseFilters(patterns ...string) Option {
	return func(r *Runner) { r.caseFilters = patterns }
}

// WithThresholds overrides thresholds after the dataset's own overrides.
func WithThresholds(overrides map[string]float64) Option {
	return func(r *Runner) { r.thresholds = overrides }
}

// WithStrict makes any errored document fail the run.
func WithStrict(strict bool) Option {
	return func(r *Runner) { r.strict = strict }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// Runner evaluates datasets one document at a time.
type Runner struct {
	scorer      Scorer
	logger      *slog.Logger
	tracer      trace.Tracer
	caseFilters []string
	thresholds  map[string]float64
	strict      bool
	runID       string

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// New creates a Runner around a scorer.
func New(scorer Scorer, opts ...Option) *Runner {
	r := &Runner{
		scorer: scorer,
		logger: slog.New(slog.DiscardHandler),
		tracer: telemetry.NoopTracer(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener.
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Run evaluates every selected case. A case that fails to load or score
// becomes an error record and the run continues; the returned error is
// reserved for problems with the run itself, such as a bad filter or a
// canceled context.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset) (*models.EvalOutcome, error) {
	cases, err := FilterCases(ds.Cases, r.caseFilters)
	if err != nil {
		return nil, err
	}

	runID := r.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	thresholds := evaluation.Thresholds(ds.Thresholds, r.thresholds)

	ctx, span := r.tracer.Start(ctx, "eval_run", trace.WithAttributes(
		telemetry.KeyRunID.String(runID),
		telemetry.KeyDataset.String(ds.Name),
	))
	defer span.End()

	start := time.Now()
	r.logger.Info("eval started", "run_id", runID, "dataset", ds.Name, "cases", len(cases))
	r.notifyProgress(ProgressEvent{EventType: EventRunStart, TotalCases: len(cases), Details: map[string]any{"dataset": ds.Name, "run_id": runID}})

	records := make([]models.EvalRecord, 0, len(cases))
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		r.notifyProgress(ProgressEvent{EventType: EventDocumentStart, CaseID: c.ID, CaseNum: i + 1, TotalCases: len(cases)})

		rec := r.runCase(ctx, c, ds.Attributes, thresholds)
		records = append(records, rec)

		r.notifyProgress(ProgressEvent{
			EventType:  EventDocumentComplete,
			CaseID:     c.ID,
			CaseNum:    i + 1,
			TotalCases: len(cases),
			Status:     rec.Status,
			DurationMs: rec.DurationMs,
			Details:    recordDetails(&rec),
		})
	}

	aggregate := evaluation.Aggregate(records, ds.Attributes)
	checks := evaluation.CheckThresholds(aggregate, thresholds)
	digest := evaluation.Digest(records)
	digest.DurationMs = time.Since(start).Milliseconds()

	outcome := &models.EvalOutcome{
		RunID:      runID,
		Dataset:    ds.Name,
		Model:      r.scorer.Model(),
		Provider:   r.scorer.Provider(),
		Attributes: ds.Attributes.Keys(),
		Timestamp:  start.UTC(),
		Records:    records,
		Aggregate:  aggregate,
		Checks:     checks,
		Digest:     digest,
		Passed:     evaluation.Verdict(checks, digest, r.strict),
	}

	verdict := models.StatusPassed
	if !outcome.Passed {
		verdict = models.StatusFailed
	}
	span.SetAttributes(telemetry.KeyStatus.String(string(verdict)))
	r.logger.Info("eval finished",
		"run_id", runID,
		"passed", outcome.Passed,
		"documents", digest.TotalDocuments,
		"errors", digest.Errors,
		"duration_ms", digest.DurationMs)
	r.notifyProgress(ProgressEvent{
		EventType:  EventRunComplete,
		TotalCases: len(cases),
		DurationMs: digest.DurationMs,
		Details:    map[string]any{"passed": outcome.Passed, "errors": digest.Errors},
	})
	return outcome, nil
}

func (r *Runner) runCase(ctx context.Context, c dataset.Case, attrs models.AttributeSet, thresholds []models.Threshold) models.EvalRecord {
	ctx, span := r.tracer.Start(ctx, "eval_case", trace.WithAttributes(
		telemetry.KeyCaseID.String(c.ID),
		telemetry.KeyDocument.String(c.Document),
	))
	defer span.End()

	start := time.Now()
	expected := c.Expected
	rec := models.EvalRecord{ID: c.ID, Document: c.Document, Expected: &expected}

	actual, err := r.scorer.ScoreDocument(ctx, c.Document)
	rec.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		telemetry.RecordError(span, err)
		rec.Status = models.StatusError
		rec.Error = err.Error()
		rec.ErrorKind = errorKind(err)
		r.logger.Error("document failed", "case", c.ID, "kind", rec.ErrorKind, "error", err)
		span.SetAttributes(telemetry.KeyStatus.String(string(rec.Status)))
		return rec
	}

	res := evaluation.Evaluate(c.Expected, actual, attrs)
	rec.Actual = actual
	rec.Metrics = res.Metrics
	rec.MatchedQuestions = res.Matched
	rec.Status = evaluation.DocumentStatus(res.Metrics, thresholds)

	span.SetAttributes(telemetry.KeyStatus.String(string(rec.Status)))
	r.logger.Debug("document evaluated", "case", c.ID, "status", rec.Status, "matched", res.Matched)
	return rec
}

// errorKind labels the failure for reports: "load", a model error kind, or "unknown".
func errorKind(err error) string {
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		return "load"
	}
	var mce *llm.ModelCallError
	if errors.As(err, &mce) {
		return string(mce.Kind)
	}
	return string(llm.KindUnknown)
}

func recordDetails(rec *models.EvalRecord) map[string]any {
	details := map[string]any{"matched_questions": rec.MatchedQuestions}
	if v, ok := rec.Metrics[evaluation.ExtractionAccuracy]; ok {
		details[evaluation.ExtractionAccuracy] = v
	}
	if rec.Error != "" {
		details["error"] = rec.Error
	}
	return details
}
