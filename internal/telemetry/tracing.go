package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "banshogate/pipeline"

// InitTracer configures the global tracer provider per the
// OTEL_TRACES_EXPORTER setting: "stdout" emits spans as JSON to stdout;
// any other value (including "none") installs nothing and leaves the default
// no-op global provider in place. The returned shutdown func flushes and
// tears down the provider; callers must call it on process exit.
func InitTracer(ctx context.Context, exporterKind string) (shutdown func(context.Context) error, err error) {
	if exporterKind != "stdout" {
		// Leave the default (no-op) global provider installed; nothing to
		// tear down.
		return func(context.Context) error { return nil }, nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName("banshogate"),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the pipeline's named tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
