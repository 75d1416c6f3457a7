package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderPlaced         = "order.placed"
	EventTypeOrderStatusChanged  = "order.status_changed"
	EventTypeAfterSalesRequested = "order.after_sales_requested"
	EventTypeAfterSalesDecided   = "order.after_sales_decided"
)

// OrderItemInfo is the item payload carried by order events
type OrderItemInfo struct {
	ItemID      uuid.UUID       `json:"item_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariationID *uuid.UUID      `json:"variation_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderPlacedEvent is raised at checkout
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uuid.UUID       `json:"user_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentType   PaymentType     `json:"payment_type"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItemInfo `json:"items"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	items := make([]OrderItemInfo, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemInfo{
			ItemID:      item.ID,
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		}
	}
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		PaymentMethod:   o.PaymentMethod,
		PaymentType:     o.PaymentType,
		Total:           o.Total,
		Items:           items,
	}
}

// OrderStatusChangedEvent is raised on every lifecycle transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	From        Status    `json:"from"`
	To          Status    `json:"to"`
	Actor       Actor     `json:"actor"`
	Reason      string    `json:"reason,omitempty"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from Status, actor Actor) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		From:            from,
		To:              o.Status,
		Actor:           actor,
		Reason:          o.CancelReason,
	}
}

// AfterSalesRequestedEvent is raised when a customer asks for a return or replacement
type AfterSalesRequestedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	RequestID   uuid.UUID   `json:"request_id"`
	OrderItemID uuid.UUID   `json:"order_item_id"`
	Kind        RequestKind `json:"kind"`
	Reason      string      `json:"reason"`
}

// NewAfterSalesRequestedEvent creates a new AfterSalesRequestedEvent
func NewAfterSalesRequestedEvent(o *Order, r *AfterSalesRequest) *AfterSalesRequestedEvent {
	return &AfterSalesRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAfterSalesRequested, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		RequestID:       r.ID,
		OrderItemID:     r.OrderItemID,
		Kind:            r.Kind,
		Reason:          r.Reason,
	}
}

// AfterSalesDecidedEvent is raised when an admin approves, rejects or completes a request
type AfterSalesDecidedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID     `json:"order_id"`
	RequestID   uuid.UUID     `json:"request_id"`
	OrderItemID uuid.UUID     `json:"order_item_id"`
	Kind        RequestKind   `json:"kind"`
	Status      RequestStatus `json:"status"`
	Note        string        `json:"note,omitempty"`
}

// NewAfterSalesDecidedEvent creates a new AfterSalesDecidedEvent
func NewAfterSalesDecidedEvent(o *Order, r *AfterSalesRequest) *AfterSalesDecidedEvent {
	return &AfterSalesDecidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAfterSalesDecided, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		RequestID:       r.ID,
		OrderItemID:     r.OrderItemID,
		Kind:            r.Kind,
		Status:          r.Status,
		Note:            r.AdminNote,
	}
}
