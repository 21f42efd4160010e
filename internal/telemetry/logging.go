// Package telemetry provides the ambient observability stack shared by
// every pipeline stage: a trace-correlated slog logger, a Prometheus
// metrics provider on a private registry, and an OpenTelemetry tracer
// with a no-op toggle. Grounded on the teacher's engine/telemetry
// package family (logging.go, metrics/prometheus.go,
// internal/telemetry/tracing).
package telemetry

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// NewLogger returns a slog.Logger whose *Context methods automatically
// attach trace_id/span_id attributes when ctx carries an active span
// (grounded on engine/telemetry/logging.go's correlatedLogger). Output
// is JSON, matching the structured-log contract most operators expect
// from a SIEM's own logs.
func NewLogger(level slog.Level) *slog.Logger {
	handler := &correlatingHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}
	return slog.New(handler)
}

// correlatingHandler wraps any slog.Handler, injecting trace_id/span_id
// attributes from the record's context before delegating.
type correlatingHandler struct {
	slog.Handler
}

func (h *correlatingHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.TraceID().String()),
			slog.String("span_id", span.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *correlatingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &correlatingHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *correlatingHandler) WithGroup(name string) slog.Handler {
	return &correlatingHandler{Handler: h.Handler.WithGroup(name)}
}
