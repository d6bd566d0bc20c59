package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"sales-kpi-dashboard/internal/models"
	"sales-kpi-dashboard/internal/observability"
)

// Analytics wraps the ingestion and KPI pipeline with logging, tracing and
// metrics. It holds no per-session data; tables are passed in by callers.
type Analytics struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics
	opts    IngestOptions

	sample atomic.Pointer[models.SalesTable]

	uploads          atomic.Int64
	failedUploads    atomic.Int64
	recordsProcessed atomic.Int64
	computations     atomic.Int64
	emptyViews       atomic.Int64
	startedAt        time.Time
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analytics) { a.tracer = tracer }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Analytics) { a.metrics = metrics }
}

func WithIngestOptions(opts IngestOptions) Option {
	return func(a *Analytics) { a.opts = opts }
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer(observability.InstrumentationName),
		opts:      DefaultIngestOptions(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ingest parses an uploaded file into a new table.
func (a *Analytics) Ingest(ctx context.Context, filename string, r io.Reader) (*models.SalesTable, error) {
	ctx, span := a.tracer.Start(ctx, "ingest", trace.WithAttributes(attribute.String("file.name", filename)))
	defer span.End()

	logger := observability.LoggerFrom(ctx, a.logger)
	start := time.Now()

	table, err := Ingest(ctx, filename, r, a.opts)
	if err != nil {
		a.failedUploads.Add(1)
		a.metrics.RecordUpload(ctx, "error", 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingestion failed")
		logger.Warn("ingestion failed", "file", filename, "error", err)
		return nil, err
	}

	a.uploads.Add(1)
	a.recordsProcessed.Add(int64(table.Len()))
	a.metrics.RecordUpload(ctx, "ok", table.Len())
	span.SetAttributes(attribute.Int("records", table.Len()))

	duration := time.Since(start)
	logger.Info("file ingested",
		"file", filename,
		"records", table.Len(),
		"columns", len(table.Header),
		"duration", duration,
	)
	return table, nil
}

// LoadSample reads the configured sample export once at startup. New
// sessions start with it until their first upload.
func (a *Analytics) LoadSample(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()

	table, err := a.Ingest(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("ingest sample: %w", err)
	}
	a.sample.Store(table)
	return nil
}

// Sample returns the startup table, or nil when none was configured.
func (a *Analytics) Sample() *models.SalesTable {
	return a.sample.Load()
}

// Compute recomputes the dashboard for a table and selection. Nothing is
// cached between calls.
func (a *Analytics) Compute(ctx context.Context, table *models.SalesTable, sel models.FilterSelection) (models.DashboardView, error) {
	ctx, span := a.tracer.Start(ctx, "compute", trace.WithAttributes(
		attribute.Int("table.records", table.Len()),
		attribute.Int("selection.regions", len(sel.Regions)),
		attribute.Int("selection.categories", len(sel.Categories)),
	))
	defer span.End()

	start := time.Now()
	view, err := BuildDashboard(table, sel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute failed")
		return models.DashboardView{}, err
	}

	a.computations.Add(1)
	if view.Empty {
		a.emptyViews.Add(1)
	}
	a.metrics.RecordCompute(ctx, time.Since(start), view.Empty)
	span.SetAttributes(
		attribute.Int("filtered.records", len(view.Rows)),
		attribute.String("period.latest", string(view.KPIs.LatestPeriod)),
		attribute.Bool("empty", view.Empty),
	)

	observability.LoggerFrom(ctx, a.logger).Debug("dashboard computed",
		"filtered", len(view.Rows),
		"latest_period", view.KPIs.LatestPeriod,
		"empty", view.Empty,
		"duration", time.Since(start),
	)
	return view, nil
}

// Stats is served on the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	sampleRecords := 0
	if s := a.sample.Load(); s != nil {
		sampleRecords = s.Len()
	}
	return map[string]any{
		"uploads":           a.uploads.Load(),
		"failed_uploads":    a.failedUploads.Load(),
		"records_processed": a.recordsProcessed.Load(),
		"computations":      a.computations.Load(),
		"empty_views":       a.emptyViews.Load(),
		"sample_records":    sampleRecords,
		"uptime":            time.Since(a.startedAt).Round(time.Second).String(),
	}
}
