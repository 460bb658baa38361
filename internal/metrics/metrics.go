package metrics

import (
	"context"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests    metric.Int64Counter
	HTTPDuration    metric.Float64Histogram
	InFlight        metric.Int64UpDownCounter
	CacheOps        metric.Int64Counter
	CacheOpDuration metric.Float64Histogram
	ScanPages       metric.Int64Counter
	ScannedKeys     metric.Int64Counter
	BulkPages       metric.Int64Counter
	BulkKeys        metric.Int64Counter
}

// Setup creates the meters and returns the handler serving them in the
// Prometheus text format. Every call uses its own registry.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"cache_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"cache_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.InFlight, err = meter.Int64UpDownCounter(
		"cache_http_in_flight_requests",
		metric.WithDescription("Number of HTTP requests being served"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CacheOps, err = meter.Int64Counter(
		"cache_operations_total",
		metric.WithDescription("Cache operations by operation and outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CacheOpDuration, err = meter.Float64Histogram(
		"cache_operation_duration_seconds",
		metric.WithDescription("Cache operation duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ScanPages, err = meter.Int64Counter(
		"cache_scan_pages_total",
		metric.WithDescription("SCAN round trips issued while enumerating stores"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ScannedKeys, err = meter.Int64Counter(
		"cache_scanned_keys_total",
		metric.WithDescription("Keys returned by SCAN, duplicates included"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.BulkPages, err = meter.Int64Counter(
		"cache_bulk_pages_total",
		metric.WithDescription("Bulk get and delete pages"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.BulkKeys, err = meter.Int64Counter(
		"cache_bulk_keys_total",
		metric.WithDescription("Keys fetched or deleted by bulk pages"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) IncrementInFlight(ctx context.Context) {
	m.InFlight.Add(ctx, 1)
}

func (m *Metrics) DecrementInFlight(ctx context.Context) {
	m.InFlight.Add(ctx, -1)
}

func (m *Metrics) RecordCacheOp(ctx context.Context, op, outcome string, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	)

	m.CacheOps.Add(ctx, 1, labels)
	m.CacheOpDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordScanPage(ctx context.Context, keys int) {
	m.ScanPages.Add(ctx, 1)
	m.ScannedKeys.Add(ctx, int64(keys))
}

func (m *Metrics) RecordBulkPage(ctx context.Context, op string, keys int) {
	labels := metric.WithAttributes(attribute.String("op", op))
	m.BulkPages.Add(ctx, 1, labels)
	m.BulkKeys.Add(ctx, int64(keys), labels)
}
