package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// OrderMetrics records the order pipeline's counters. A nil *OrderMetrics
// records nothing.
type OrderMetrics struct {
	created       otelmetric.Int64Counter
	cancelled     otelmetric.Int64Counter
	rejected      otelmetric.Int64Counter
	catalogLookup otelmetric.Float64Histogram
}

func NewOrderMetrics(meter otelmetric.Meter) (*OrderMetrics, error) {
	created, err := meter.Int64Counter("orders.created",
		otelmetric.WithDescription("Orders persisted after reconciliation"))
	if err != nil {
		return nil, err
	}

	cancelled, err := meter.Int64Counter("orders.cancelled",
		otelmetric.WithDescription("Orders transitioned to CANCELLED"))
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("orders.rejected",
		otelmetric.WithDescription("Order creations rejected by validation or reconciliation"))
	if err != nil {
		return nil, err
	}

	catalogLookup, err := meter.Float64Histogram("catalog.lookup.duration",
		otelmetric.WithDescription("Duration of catalog menu lookups"),
		otelmetric.WithUnit("ms"),
		otelmetric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 200, 400, 800, 1600, 3200),
	)
	if err != nil {
		return nil, err
	}

	return &OrderMetrics{
		created:       created,
		cancelled:     cancelled,
		rejected:      rejected,
		catalogLookup: catalogLookup,
	}, nil
}

func (m *OrderMetrics) OrderCreated(ctx context.Context, storeID int64) {
	if m == nil {
		return
	}
	m.created.Add(ctx, 1, otelmetric.WithAttributes(attribute.Int64("store.id", storeID)))
}

func (m *OrderMetrics) OrderCancelled(ctx context.Context, storeID int64) {
	if m == nil {
		return
	}
	m.cancelled.Add(ctx, 1, otelmetric.WithAttributes(attribute.Int64("store.id", storeID)))
}

func (m *OrderMetrics) OrderRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("reason", reason)))
}

func (m *OrderMetrics) CatalogLookup(ctx context.Context, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.catalogLookup.Record(ctx, float64(d.Microseconds())/1000,
		otelmetric.WithAttributes(attribute.Bool("success", ok)))
}
