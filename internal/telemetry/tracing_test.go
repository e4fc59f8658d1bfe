package telemetry

import (
	"context"
	"testing"
)

func TestInitTracerNoneIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "none")
	if err != nil {
		t.Fatalf("InitTracer(none): %v", err)
	}
	if shutdown == nil {
		t.Fatalf("InitTracer(none) returned a nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown(none): %v", err)
	}
}

func TestInitTracerStdout(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "stdout")
	if err != nil {
		t.Fatalf("InitTracer(stdout): %v", err)
	}
	defer shutdown(context.Background())

	tr := Tracer()
	_, span := tr.Start(context.Background(), "test-span")
	span.End()
}
