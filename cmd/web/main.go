package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-kpi-dashboard/internal/config"
	"sales-kpi-dashboard/internal/middleware"
	"sales-kpi-dashboard/internal/observability"
	"sales-kpi-dashboard/internal/server"
	"sales-kpi-dashboard/internal/services"
)

const sampleLoadTimeout = 30 * time.Second

type app struct {
	handler   http.Handler
	telemetry *observability.Telemetry
}

// newApp builds the full handler stack from configuration.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	telemetry, err := observability.SetupTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	metrics, err := observability.NewMetrics(telemetry.Meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	analytics := services.NewAnalytics(
		services.WithLogger(logger),
		services.WithTracer(telemetry.Tracer),
		services.WithMetrics(metrics),
		services.WithIngestOptions(services.IngestOptions{
			DateLayouts: cfg.Ingest.DateLayouts,
			Workers:     cfg.Ingest.Workers,
		}),
	)

	if cfg.Data.SampleFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), sampleLoadTimeout)
		defer cancel()

		start := time.Now()
		if err := analytics.LoadSample(ctx, cfg.Data.SampleFile); err != nil {
			return nil, err
		}
		logger.Info("sample data loaded",
			"file", cfg.Data.SampleFile,
			"records", analytics.Sample().Len(),
			"duration", time.Since(start),
		)
	}

	sessions, err := services.NewSessionStore(cfg.Sessions.Capacity,
		services.WithSeed(analytics.Sample),
		services.WithSessionMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}

	var metricsHandler http.Handler
	if cfg.Telemetry.EnableMetrics {
		metricsHandler = telemetry.MetricsHandler
	}
	srv := server.NewServer(cfg, analytics, sessions, metricsHandler, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(telemetry.Tracer),
		middleware.Metrics(metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return &app{
		handler:   middlewareChain(srv),
		telemetry: telemetry,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"sample_file", cfg.Data.SampleFile,
		"session_capacity", cfg.Sessions.Capacity,
		"trace_exporter", cfg.Telemetry.TraceExporter,
	)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to initialise application", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, cfg.Server, logger)
	gracefulServer.OnShutdown("telemetry", a.telemetry.Shutdown)

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
