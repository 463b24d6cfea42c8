// Package observability provides OpenTelemetry integration for
// distributed tracing.
//
// Traces are exported over OTLP HTTP to a local collector agent (for
// example the Datadog Agent's OTLP receiver on localhost:4318). Tracing
// is optional: with no agent host configured the global tracer provider
// stays a no-op and the pipeline runs untraced.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config for trace export.
type Config struct {
	// AgentHost is the collector's OTLP HTTP endpoint, e.g. "localhost:4318".
	// Empty disables tracing.
	AgentHost string
	// Environment is the deployment environment tag (dev, staging, prod).
	Environment string
	// ServiceName identifies this service in the APM backend.
	ServiceName string
}

// Setup installs the global tracer provider and returns a shutdown
// function that flushes pending spans. With an empty AgentHost it
// returns a no-op shutdown and leaves tracing disabled.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if cfg.AgentHost == "" {
		return noop, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.AgentHost),
		otlptracehttp.WithInsecure(), // local agent, no TLS
	)
	if err != nil {
		// Tracing is best-effort; the service runs fine without it.
		logger.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return noop, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sabio"
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		return noop, fmt.Errorf("building trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled",
		"agent", cfg.AgentHost,
		"service", serviceName,
		"environment", cfg.Environment,
	)

	return provider.Shutdown, nil
}
