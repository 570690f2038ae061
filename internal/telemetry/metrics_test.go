package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestOrderMetrics(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))

	m, err := NewOrderMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.OrderCreated(ctx, 1)
	m.OrderCreated(ctx, 1)
	m.OrderCancelled(ctx, 1)
	m.OrderRejected(ctx, "ORDER_ITEM_PRICE_MISMATCH")
	m.CatalogLookup(ctx, 12*time.Millisecond, true)

	data := collect(t, reader)

	created, ok := data["orders.created"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, created.DataPoints, 1)
	assert.Equal(t, int64(2), created.DataPoints[0].Value)

	rejected, ok := data["orders.rejected"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, rejected.DataPoints, 1)
	reason, _ := rejected.DataPoints[0].Attributes.Value("reason")
	assert.Equal(t, "ORDER_ITEM_PRICE_MISMATCH", reason.AsString())

	lookups, ok := data["catalog.lookup.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, lookups.DataPoints, 1)
	assert.Equal(t, uint64(1), lookups.DataPoints[0].Count)
}

func TestOrderMetrics_NilIsNoop(t *testing.T) {
	var m *OrderMetrics
	assert.NotPanics(t, func() {
		m.OrderCreated(context.Background(), 1)
		m.OrderCancelled(context.Background(), 1)
		m.OrderRejected(context.Background(), "x")
		m.CatalogLookup(context.Background(), time.Millisecond, false)
	})
}
