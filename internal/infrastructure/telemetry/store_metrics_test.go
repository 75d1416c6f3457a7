package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp.Meter("test"), reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func intSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	m, ok := collectMetric(t, reader, name)
	require.True(t, ok, "metric %s not recorded", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewStoreMetrics_NilMeter(t *testing.T) {
	_, err := NewStoreMetrics(nil, nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestStoreMetrics_HandleEvents(t *testing.T) {
	meter, reader := newTestMeter(t)
	m, err := NewStoreMetrics(meter, nil)
	require.NoError(t, err)
	ctx := context.Background()
	orderID := uuid.New()

	placed := &order.OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeOrderPlaced, order.AggregateTypeOrder, orderID),
		OrderID:         orderID,
		PaymentMethod:   order.PaymentMethodUPI,
		Total:           decimal.RequireFromString("42.50"),
	}
	changed := &order.OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeOrderStatusChanged, order.AggregateTypeOrder, orderID),
		From:            order.StatusPending,
		To:              order.StatusConfirmed,
		Actor:           order.ActorAdmin,
	}
	viewed := &catalog.ProductViewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(catalog.EventTypeProductViewed, catalog.AggregateTypeProduct, uuid.New()),
		Guest:           true,
	}

	for _, evt := range []shared.DomainEvent{placed, placed, changed, viewed} {
		require.NoError(t, m.Handle(ctx, evt))
	}

	assert.Equal(t, int64(2), intSum(t, reader, "storefront_orders_placed_total"))
	assert.Equal(t, int64(1), intSum(t, reader, "storefront_order_status_transitions_total"))
	assert.Equal(t, int64(1), intSum(t, reader, "storefront_product_views_total"))

	revenue, ok := collectMetric(t, reader, "storefront_order_revenue_total")
	require.True(t, ok)
	sum := revenue.Data.(metricdata.Sum[float64])
	require.Len(t, sum.DataPoints, 1)
	assert.InDelta(t, 85.0, sum.DataPoints[0].Value, 0.001)
}

func TestStoreMetrics_IgnoresUnknownEvents(t *testing.T) {
	meter, reader := newTestMeter(t)
	m, err := NewStoreMetrics(meter, nil)
	require.NoError(t, err)

	evt := shared.NewBaseDomainEvent("something.else", "Thing", uuid.New())
	require.NoError(t, m.Handle(context.Background(), &evt))

	_, ok := collectMetric(t, reader, "storefront_orders_placed_total")
	assert.False(t, ok)
}

func TestStoreMetrics_DirectRecorders(t *testing.T) {
	meter, reader := newTestMeter(t)
	m, err := NewStoreMetrics(meter, nil)
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordCartMutation(ctx, CartOpAdd, true)
	m.RecordCartMutation(ctx, CartOpRemove, false)
	m.RecordCheckout(ctx, 120*time.Millisecond, "placed")

	assert.Equal(t, int64(2), intSum(t, reader, "storefront_cart_mutations_total"))

	hist, ok := collectMetric(t, reader, "storefront_checkout_duration_seconds")
	require.True(t, ok)
	data := hist.Data.(metricdata.Histogram[float64])
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(1), data.DataPoints[0].Count)
}

func TestStoreMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *StoreMetrics
	assert.NotPanics(t, func() {
		m.RecordCartMutation(context.Background(), CartOpClear, false)
		m.RecordCheckout(context.Background(), time.Second, "failed")
	})
}

func TestStoreMetrics_EventTypes(t *testing.T) {
	meter, _ := newTestMeter(t)
	m, err := NewStoreMetrics(meter, nil)
	require.NoError(t, err)
	assert.Contains(t, m.EventTypes(), order.EventTypeOrderPlaced)
	assert.Contains(t, m.EventTypes(), catalog.EventTypeProductViewed)
}
