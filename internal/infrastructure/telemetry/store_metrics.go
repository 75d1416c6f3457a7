package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics recorder is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Cart operations reported by RecordCartMutation.
const (
	CartOpAdd    = "add"
	CartOpUpdate = "update"
	CartOpRemove = "remove"
	CartOpClear  = "clear"
	CartOpMerge  = "merge"
)

// StoreMetrics records storefront business metrics. Order and product events
// arrive through the event bus; cart and checkout figures are recorded by
// the application services directly.
type StoreMetrics struct {
	logger *zap.Logger

	ordersPlaced      *Counter
	orderRevenue      *FloatCounter
	statusTransitions *Counter
	afterSales        *Counter
	productViews      *Counter
	cartMutations     *Counter
	checkoutDuration  *Histogram
}

// NewStoreMetrics creates the instruments on meter.
func NewStoreMetrics(meter metric.Meter, logger *zap.Logger) (*StoreMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &StoreMetrics{logger: logger}

	var err error
	if m.ordersPlaced, err = NewCounter(meter, "storefront_orders_placed_total", "Orders placed at checkout", "{order}"); err != nil {
		return nil, err
	}
	if m.orderRevenue, err = NewFloatCounter(meter, "storefront_order_revenue_total", "Gross value of placed orders", "{currency}"); err != nil {
		return nil, err
	}
	if m.statusTransitions, err = NewCounter(meter, "storefront_order_status_transitions_total", "Order lifecycle transitions", "{transition}"); err != nil {
		return nil, err
	}
	if m.afterSales, err = NewCounter(meter, "storefront_after_sales_requests_total", "Return and replacement requests", "{request}"); err != nil {
		return nil, err
	}
	if m.productViews, err = NewCounter(meter, "storefront_product_views_total", "Product detail views", "{view}"); err != nil {
		return nil, err
	}
	if m.cartMutations, err = NewCounter(meter, "storefront_cart_mutations_total", "Cart changes by operation", "{operation}"); err != nil {
		return nil, err
	}
	if m.checkoutDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "storefront_checkout_duration_seconds",
		Description: "Checkout latency including stock reservation",
		Unit:        "s",
		Boundaries:  CheckoutDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler.
func (m *StoreMetrics) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderStatusChanged,
		order.EventTypeAfterSalesRequested,
		catalog.EventTypeProductViewed,
	}
}

// Handle implements shared.EventHandler. Unknown payloads are ignored.
func (m *StoreMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderPlacedEvent:
		attr := AttrPaymentMethod.String(string(e.PaymentMethod))
		m.ordersPlaced.Inc(ctx, attr)
		m.orderRevenue.Add(ctx, e.Total.InexactFloat64(), attr)
	case *order.OrderStatusChangedEvent:
		m.statusTransitions.Inc(ctx,
			AttrStatusFrom.String(string(e.From)),
			AttrStatusTo.String(string(e.To)),
			AttrActor.String(string(e.Actor)),
		)
	case *order.AfterSalesRequestedEvent:
		m.afterSales.Inc(ctx, AttrRequestKind.String(string(e.Kind)))
	case *catalog.ProductViewedEvent:
		m.productViews.Inc(ctx, AttrGuest.Bool(e.Guest))
	default:
		m.logger.Debug("Ignoring event in store metrics", zap.String("event_type", event.EventType()))
	}
	return nil
}

// RecordCartMutation counts one cart change.
func (m *StoreMetrics) RecordCartMutation(ctx context.Context, operation string, guest bool) {
	if m == nil {
		return
	}
	m.cartMutations.Inc(ctx, AttrCartOperation.String(operation), AttrGuest.Bool(guest))
}

// RecordCheckout records checkout latency with its outcome ("placed", "replayed" or "failed").
func (m *StoreMetrics) RecordCheckout(ctx context.Context, d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.checkoutDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}
