package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	dbTracerName   = "tiletrack/db"
	syncTracerName = "tiletrack/sync"
)

type contextKey string

const (
	runIDContextKey contextKey = "observability.run_id"
	stageContextKey contextKey = "observability.stage"
)

// Span is the application-level tracing span contract.
type Span interface {
	End()
	RecordError(error)
}

type otelSpan struct {
	inner trace.Span
}

// StartDBSpan starts a database tracing span for one query operation.
func StartDBSpan(ctx context.Context, queryName, operation string) (context.Context, Span) {
	queryName = strings.TrimSpace(queryName)
	if queryName == "" {
		queryName = "unknown"
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.system.name", "sqlite"),
		attribute.String("db.query_name", queryName),
		attribute.String("db.operation", strings.TrimSpace(operation)),
	}
	if runID, ok := RunIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("tiletrack.run_id", runID))
	}

	ctx, span := otel.Tracer(dbTracerName).Start(ctx, "db."+queryName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, otelSpan{inner: span}
}

// StartStageSpan starts a span for one pipeline stage of a sync run and
// records the stage name in context for log enrichment.
func StartStageSpan(ctx context.Context, stage string) (context.Context, Span) {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = "unknown"
	}
	attrs := []attribute.KeyValue{
		attribute.String("tiletrack.stage", stage),
	}
	if runID, ok := RunIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("tiletrack.run_id", runID))
	}

	ctx, span := otel.Tracer(syncTracerName).Start(ctx, "sync."+stage,
		trace.WithAttributes(attrs...),
	)
	ctx = context.WithValue(ctx, stageContextKey, stage)

	return ctx, otelSpan{inner: span}
}

// WithRunMetadata enriches context and current span with run identity.
func WithRunMetadata(ctx context.Context, runID string) context.Context {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, runIDContextKey, runID)
	if span := trace.SpanFromContext(ctx); span != nil {
		span.SetAttributes(attribute.String("tiletrack.run_id", runID))
	}
	return ctx
}

// RunIDFromContext extracts the sync run id.
func RunIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(runIDContextKey).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// StageFromContext extracts the active pipeline stage name.
func StageFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(stageContextKey).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (s otelSpan) End() {
	if s.inner == nil {
		return
	}
	s.inner.End()
}

func (s otelSpan) RecordError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}
