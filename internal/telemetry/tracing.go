package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NewTracer returns a Tracer plus its shutdown func, or a no-op Tracer
// when enabled is false (grounded on
// engine/internal/telemetry/tracing's NewTracer(enabled bool) toggle,
// reimplemented against the real otel SDK rather than the teacher's
// hand-rolled span type, since go.opentelemetry.io/otel/sdk is itself a
// real pack dependency).
func NewTracer(serviceName string, enabled bool) (trace.Tracer, func(context.Context) error) {
	if !enabled {
		return noop.NewTracerProvider().Tracer(serviceName), func(context.Context) error { return nil }
	}

	res := resource.NewWithAttributes("", attribute.String("service.name", serviceName))
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	return tp.Tracer(serviceName), tp.Shutdown
}
