// Package telemetry wires OpenTelemetry tracing for the scoring pipeline.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the tracer name used by every component.
const InstrumentationName = "github.com/surveyeval/qscore"

// Attribute keys shared by the pipeline and harness spans.
const (
	KeyDocument      = attribute.Key("qscore.document")
	KeyFileType      = attribute.Key("qscore.file_type")
	KeyProvider      = attribute.Key("qscore.provider")
	KeyModel         = attribute.Key("qscore.model")
	KeyPromptLength  = attribute.Key("qscore.prompt_length")
	KeyResponseLen   = attribute.Key("qscore.response_length")
	KeyInputTokens   = attribute.Key("qscore.input_tokens")
	KeyOutputTokens  = attribute.Key("qscore.output_tokens")
	KeyCached        = attribute.Key("qscore.cached")
	KeyQuestionCount = attribute.Key("qscore.question_count")
	KeySectionCount  = attribute.Key("qscore.section_count")
	KeyDroppedRows   = attribute.Key("qscore.dropped_rows")
	KeyRunID         = attribute.Key("qscore.run_id")
	KeyDataset       = attribute.Key("qscore.dataset")
	KeyCaseID        = attribute.Key("qscore.case_id")
	KeyStatus        = attribute.Key("qscore.status")
)

// Config selects the exporters.
type Config struct {
	// Endpoint is an OTLP/HTTP collector URL. Empty disables export.
	Endpoint    string
	ServiceName string
	// LogSpans writes every finished span to the logger.
	LogSpans bool
}

// Provider owns the tracer provider and its shutdown.
type Provider struct {
	tp       trace.TracerProvider
	shutdown func(context.Context) error
}

// Setup builds a tracer provider from cfg. With no exporters configured it
// returns a noop provider.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.Endpoint == "" && !cfg.LogSpans {
		return Noop(), nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "qscore"
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	}

	if cfg.Endpoint != "" {
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		logger.Debug("tracing enabled", "endpoint", cfg.Endpoint, "service", cfg.ServiceName)
	}
	if cfg.LogSpans {
		opts = append(opts, sdktrace.WithSyncer(NewLogExporter(logger)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	return &Provider{tp: tp, shutdown: tp.Shutdown}, nil
}

// Noop returns a provider whose tracers record nothing.
func Noop() *Provider {
	return &Provider{
		tp:       noop.NewTracerProvider(),
		shutdown: func(context.Context) error { return nil },
	}
}

// Tracer returns the named tracer for qscore components.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(InstrumentationName)
}

// TracerProvider exposes the underlying provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// NoopTracer is the default tracer for components that were given none.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(InstrumentationName)
}

// LogExporter writes finished spans to a slog logger.
type LogExporter struct {
	logger *slog.Logger
}

// NewLogExporter creates a LogExporter.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans implements [sdktrace.SpanExporter].
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		attrs := []any{
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
			"duration", span.EndTime().Sub(span.StartTime()),
			"status", span.Status().Code.String(),
		}
		for _, kv := range span.Attributes() {
			attrs = append(attrs, string(kv.Key), kv.Value.Emit())
		}
		level := slog.LevelDebug
		if span.Status().Description != "" {
			attrs = append(attrs, "error", span.Status().Description)
			level = slog.LevelWarn
		}
		e.logger.Log(ctx, level, "span "+span.Name(), attrs...)
	}
	return nil
}

// Shutdown implements [sdktrace.SpanExporter].
func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}

// RecordError marks span as failed with err.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
