package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// CheckoutRequest represents a request to place an order from the current cart
type CheckoutRequest struct {
	Address       valueobject.AddressDTO `json:"shipping_address" binding:"required"`
	PaymentMethod string                 `json:"payment_method" binding:"omitempty,max=30"`
	PaymentType   string                 `json:"payment_type" binding:"omitempty,max=30"`
	Notes         string                 `json:"notes" binding:"max=500"`
}

// CancelOrderRequest carries the optional reason of a cancellation
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// AfterSalesInput carries the customer's reason for a return or replacement
type AfterSalesInput struct {
	Reason string `json:"reason" binding:"required,min=3,max=1000"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// DecisionRequest carries the admin note of an after-sales decision
type DecisionRequest struct {
	Note string `json:"note" binding:"max=1000"`
}

// OrderListRequest represents the query of an order listing
type OrderListRequest struct {
	Status   string     `form:"status"`
	UserID   *uuid.UUID `form:"user_id"`
	Search   string     `form:"q" binding:"max=100"`
	SortBy   string     `form:"sort_by" binding:"omitempty,oneof=created_at updated_at order_number status total"`
	SortDir  string     `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                 uuid.UUID              `json:"id"`
	OrderNumber        string                 `json:"order_number"`
	UserID             uuid.UUID              `json:"user_id"`
	Status             string                 `json:"status"`
	StatusLabel        string                 `json:"status_label"`
	NextStatuses       []string               `json:"next_statuses"`
	CanCancel          bool                   `json:"can_cancel"`
	PaymentMethod      string                 `json:"payment_method"`
	PaymentMethodLabel string                 `json:"payment_method_label"`
	PaymentType        string                 `json:"payment_type"`
	PaymentTypeLabel   string                 `json:"payment_type_label"`
	ShippingAddress    valueobject.AddressDTO `json:"shipping_address"`
	Items              []OrderItemResponse    `json:"items"`
	Requests           []AfterSalesResponse   `json:"after_sales_requests"`
	Total              decimal.Decimal        `json:"total"`
	MRPTotal           decimal.Decimal        `json:"mrp_total"`
	Savings            decimal.Decimal        `json:"savings"`
	TotalUnits         int                    `json:"total_units"`
	Notes              string                 `json:"notes,omitempty"`
	CancelReason       string                 `json:"cancel_reason,omitempty"`
	CancelledBy        string                 `json:"cancelled_by,omitempty"`
	ConfirmedAt        *time.Time             `json:"confirmed_at,omitempty"`
	ShippedAt          *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time             `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	Version            int                    `json:"version"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	VariationID    *uuid.UUID      `json:"variation_id,omitempty"`
	ProductName    string          `json:"product_name"`
	VariationLabel string          `json:"variation_label,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	UnitMRP        decimal.Decimal `json:"unit_mrp"`
	Quantity       int             `json:"quantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	IsReplaceable  bool            `json:"is_replaceable"`
	OpenRequest    *uuid.UUID      `json:"open_request_id,omitempty"`
}

// AfterSalesResponse represents a return or replacement request
type AfterSalesResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderItemID uuid.UUID  `json:"order_item_id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason"`
	AdminNote   string     `json:"admin_note,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CheckoutResult is the outcome of a checkout. Replayed is set when the order was
// placed by an earlier request with the same idempotency key.
type CheckoutResult struct {
	Order    OrderResponse
	Replayed bool
}

// Option is a selectable enum value with its display label
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// PaymentOptionsResponse lists the accepted payment methods and types
type PaymentOptionsResponse struct {
	Methods       []Option `json:"methods"`
	Types         []Option `json:"types"`
	DefaultMethod string   `json:"default_method"`
	DefaultType   string   `json:"default_type"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *order.Order) OrderResponse {
	next := o.Status.NextStatuses()
	nextStatuses := make([]string, 0, len(next))
	for _, s := range next {
		nextStatuses = append(nextStatuses, string(s))
	}

	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariationID:    item.VariationID,
			ProductName:    item.ProductName,
			VariationLabel: item.VariationLabel,
			UnitPrice:      item.UnitPrice,
			UnitMRP:        item.UnitMRP,
			Quantity:       item.Quantity,
			Subtotal:       item.Subtotal,
			IsReplaceable:  item.IsReplaceable,
		}
		if open := o.OpenRequestFor(item.ID); open != nil {
			id := open.ID
			items[i].OpenRequest = &id
		}
	}

	requests := make([]AfterSalesResponse, len(o.Requests))
	for i, r := range o.Requests {
		requests[i] = AfterSalesResponse{
			ID:          r.ID,
			OrderItemID: r.OrderItemID,
			Kind:        string(r.Kind),
			Status:      string(r.Status),
			Reason:      r.Reason,
			AdminNote:   r.AdminNote,
			DecidedAt:   r.DecidedAt,
			CompletedAt: r.CompletedAt,
			CreatedAt:   r.CreatedAt,
		}
	}

	return OrderResponse{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		UserID:             o.UserID,
		Status:             string(o.Status),
		StatusLabel:        o.Status.Label(),
		NextStatuses:       nextStatuses,
		CanCancel:          o.Status.IsCancellable(),
		PaymentMethod:      string(o.PaymentMethod),
		PaymentMethodLabel: o.PaymentMethod.Label(),
		PaymentType:        string(o.PaymentType),
		PaymentTypeLabel:   o.PaymentType.Label(),
		ShippingAddress:    o.ShippingAddress.ToDTO(),
		Items:              items,
		Requests:           requests,
		Total:              o.Total,
		MRPTotal:           o.MRPTotal,
		Savings:            o.Savings,
		TotalUnits:         o.TotalUnits(),
		Notes:              o.Notes,
		CancelReason:       o.CancelReason,
		CancelledBy:        string(o.CancelledBy),
		ConfirmedAt:        o.ConfirmedAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		Version:            o.Version,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// NewPaymentOptionsResponse lists every payment method and type with labels
func NewPaymentOptionsResponse() PaymentOptionsResponse {
	methods := order.PaymentMethodValues()
	types := order.PaymentTypeValues()
	resp := PaymentOptionsResponse{
		Methods:       make([]Option, 0, len(methods)),
		Types:         make([]Option, 0, len(types)),
		DefaultMethod: string(order.DefaultPaymentMethod()),
		DefaultType:   string(order.DefaultPaymentType()),
	}
	for _, m := range methods {
		resp.Methods = append(resp.Methods, Option{Value: string(m), Label: m.Label()})
	}
	for _, t := range types {
		resp.Types = append(resp.Types, Option{Value: string(t), Label: t.Label()})
	}
	return resp
}
