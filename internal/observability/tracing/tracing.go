package tracing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// ServiceName is reported as service.name on every span.
	ServiceName = "energy-surplus"

	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// ErrUnsupportedExporter is returned for unknown exporter names.
var ErrUnsupportedExporter = errors.New("tracing: unsupported exporter")

// Config selects the span exporter.
type Config struct {
	Exporter    string
	SampleRatio float64
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Setup installs the global tracer provider. With the none exporter the
// global no-op provider stays in place.
func Setup(cfg Config, logger *log.Logger) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "", ExporterNone:
		return noop, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return noop, fmt.Errorf("tracing: stdout exporter: %w", err)
		}
		exporter = exp
	default:
		return noop, fmt.Errorf("%w: %s", ErrUnsupportedExporter, cfg.Exporter)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(ServiceName))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(ratio)),
	)
	otel.SetTracerProvider(provider)
	if logger != nil {
		logger.Printf("event=tracing_enabled exporter=%s sample_ratio=%.2f", cfg.Exporter, ratio)
	}
	return provider.Shutdown, nil
}
