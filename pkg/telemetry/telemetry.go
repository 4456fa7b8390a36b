// Package telemetry configures OpenTelemetry tracing with lifecycle coordination.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/JaimeStill/vitalis/pkg/lifecycle"
)

// System owns the process tracer provider.
type System interface {
	// Tracer returns a named tracer. When tracing is disabled it is a no-op tracer.
	Tracer(name string) trace.Tracer
	// Start registers a shutdown hook that flushes pending spans.
	Start(lc *lifecycle.Coordinator) error
}

type telemetry struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
	logger   *slog.Logger
}

// New builds the tracer provider described by cfg and installs it globally.
func New(cfg *Config, version string, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "telemetry")

	if !cfg.Enabled || cfg.Exporter == ExporterNone {
		return &telemetry{
			provider: noop.NewTracerProvider(),
			logger:   logger,
		}, nil
	}

	exporter, err := buildExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("build span exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing initialized", "exporter", cfg.Exporter, "sample_ratio", cfg.SampleRatio)

	return &telemetry{
		provider: tp,
		shutdown: tp.Shutdown,
		logger:   logger,
	}, nil
}

func (t *telemetry) Tracer(name string) trace.Tracer {
	return t.provider.Tracer(name)
}

func (t *telemetry) Start(lc *lifecycle.Coordinator) error {
	if t.shutdown == nil {
		return nil
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		t.logger.Info("flushing spans")

		if err := t.shutdown(context.Background()); err != nil {
			t.logger.Error("tracer shutdown failed", "error", err)
			return
		}

		t.logger.Info("tracer shutdown complete")
	})

	return nil
}

func buildExporter(cfg *Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(context.Background(), opts...)
	default:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	}
}
