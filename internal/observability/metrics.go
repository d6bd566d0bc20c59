package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the business and HTTP instruments recorded by the service.
type Metrics struct {
	uploads         metric.Int64Counter
	ingestedRecords metric.Int64Counter
	computeDuration metric.Float64Histogram
	emptySelections metric.Int64Counter
	httpRequests    metric.Int64Counter
	httpDuration    metric.Float64Histogram
	activeSessions  metric.Int64UpDownCounter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.uploads, err = meter.Int64Counter("kpi_uploads_total",
		metric.WithDescription("Uploaded sales files by outcome")); err != nil {
		return nil, err
	}
	if m.ingestedRecords, err = meter.Int64Counter("kpi_ingested_records_total",
		metric.WithDescription("Sales records accepted by ingestion")); err != nil {
		return nil, err
	}
	if m.computeDuration, err = meter.Float64Histogram("kpi_compute_duration_seconds",
		metric.WithDescription("Duration of one dashboard recomputation"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.emptySelections, err = meter.Int64Counter("kpi_empty_selections_total",
		metric.WithDescription("Recomputations whose filtered table was empty")); err != nil {
		return nil, err
	}
	if m.httpRequests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.httpDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.activeSessions, err = meter.Int64UpDownCounter("kpi_active_sessions",
		metric.WithDescription("Sessions currently held in memory")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordUpload(ctx context.Context, outcome string, records int) {
	if m == nil {
		return
	}
	m.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if records > 0 {
		m.ingestedRecords.Add(ctx, int64(records))
	}
}

func (m *Metrics) RecordCompute(ctx context.Context, d time.Duration, empty bool) {
	if m == nil {
		return
	}
	m.computeDuration.Record(ctx, d.Seconds())
	if empty {
		m.emptySelections.Add(ctx, 1)
	}
}

func (m *Metrics) RecordRequest(ctx context.Context, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.Int("status", status),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) SessionDelta(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.activeSessions.Add(ctx, delta)
}
