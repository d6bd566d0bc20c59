package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"sales-kpi-dashboard/internal/config"
)

const InstrumentationName = "sales-kpi-dashboard"

// Telemetry bundles the tracer and meter used across the service plus the
// scrape handler for /metrics.
type Telemetry struct {
	Tracer         trace.Tracer
	Meter          metric.Meter
	MetricsHandler http.Handler

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

func SetupTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
	)

	t := &Telemetry{}

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		t.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		otel.SetTracerProvider(t.tracerProvider)
		t.Tracer = t.tracerProvider.Tracer(InstrumentationName)
	case "none", "":
		t.Tracer = otel.Tracer(InstrumentationName)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if cfg.EnableMetrics {
		registry := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		t.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(t.meterProvider)
		t.Meter = t.meterProvider.Meter(InstrumentationName)
		t.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	} else {
		t.Meter = noop.NewMeterProvider().Meter(InstrumentationName)
		t.MetricsHandler = http.NotFoundHandler()
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		"trace_exporter", cfg.TraceExporter,
		"metrics_enabled", cfg.EnableMetrics,
	)

	return t, nil
}

// NoopTelemetry is used by tests and by callers that do not export anything.
func NoopTelemetry() *Telemetry {
	return &Telemetry{
		Tracer:         otel.Tracer(InstrumentationName),
		Meter:          noop.NewMeterProvider().Meter(InstrumentationName),
		MetricsHandler: http.NotFoundHandler(),
	}
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	var firstErr error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("shutdown tracer provider: %w", err)
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown meter provider: %w", err)
		}
	}
	return firstErr
}
