package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLoggerInjectsTraceAndSpanIDs(t *testing.T) {
	var buf bytes.Buffer
	handler := &correlatingHandler{Handler: slog.NewJSONHandler(&buf, nil)}
	logger := slog.New(handler)

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	tracer := tp.Tracer("test")

	ctx, span := tracer.Start(context.Background(), "test-span")
	logger.InfoContext(ctx, "hello")
	span.End()

	out := buf.String()
	if !strings.Contains(out, "trace_id") || !strings.Contains(out, "span_id") {
		t.Fatalf("expected trace_id/span_id in log output, got %s", out)
	}
}

func TestLoggerWithoutSpanOmitsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	handler := &correlatingHandler{Handler: slog.NewJSONHandler(&buf, nil)}
	logger := slog.New(handler)

	logger.InfoContext(context.Background(), "hello")

	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("did not expect trace_id without an active span, got %s", buf.String())
	}
}

func TestMetricsRegistersAllInstruments(t *testing.T) {
	m := NewMetrics()
	m.EventsProcessed.WithLabelValues("auth.log").Inc()
	m.AlertsEmitted.WithLabelValues("rule", "high").Inc()
	m.StorageErrors.WithLabelValues("bulk_index").Inc()
	m.ScorerFitted.Set(1)

	if m.Handler() == nil {
		t.Fatalf("expected a non-nil metrics handler")
	}
}

func TestNewTracerNoopWhenDisabled(t *testing.T) {
	tracer, shutdown := NewTracer("test", false)
	_, span := tracer.Start(context.Background(), "span")
	if span.SpanContext().IsValid() {
		t.Fatalf("expected an invalid span context from the no-op tracer")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}
