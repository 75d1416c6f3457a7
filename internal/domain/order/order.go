// Package order contains the order aggregate: checkout snapshot, lifecycle and after-sales requests.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Actor identifies who triggered a transition
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorAdmin    Actor = "admin"
)

// Item is an order line frozen at checkout time
type Item struct {
	shared.BaseEntity
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	VariationID    *uuid.UUID
	ProductName    string
	VariationLabel string
	UnitPrice      decimal.Decimal
	UnitMRP        decimal.Decimal
	Quantity       int
	Subtotal       decimal.Decimal
	IsReplaceable  bool
}

// ItemSnapshot is the product data copied into an order line
type ItemSnapshot struct {
	ProductID      uuid.UUID
	VariationID    *uuid.UUID
	ProductName    string
	VariationLabel string
	UnitPrice      valueobject.Money
	UnitMRP        valueobject.Money
	Quantity       int
	IsReplaceable  bool
}

// Order is a placed customer order
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	UserID          uuid.UUID
	Status          Status
	PaymentMethod   PaymentMethod
	PaymentType     PaymentType
	ShippingAddress valueobject.ShippingAddress
	Items           []Item
	Requests        []AfterSalesRequest
	Total           decimal.Decimal
	MRPTotal        decimal.Decimal
	Savings         decimal.Decimal
	Notes           string
	CancelReason    string
	CancelledBy     Actor
	ConfirmedAt     *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// NewOrder creates a pending order from checkout snapshots and raises OrderPlaced
func NewOrder(
	userID uuid.UUID,
	orderNumber string,
	address valueobject.ShippingAddress,
	method PaymentMethod,
	paymentType PaymentType,
	notes string,
	items []ItemSnapshot,
) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Orders require a signed-in user")
	}
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if address.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Shipping address is required")
	}
	if method == "" {
		method = DefaultPaymentMethod()
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %q", method))
	}
	if paymentType == "" {
		paymentType = method.DefaultType()
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", fmt.Sprintf("Unknown payment type %q", paymentType))
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_CART", "Cannot place an order without items")
	}
	if len(notes) > 500 {
		return nil, shared.NewDomainError("INVALID_NOTES", "Notes cannot exceed 500 characters")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		UserID:            userID,
		Status:            StatusPending,
		PaymentMethod:     method,
		PaymentType:       paymentType,
		ShippingAddress:   address,
		Items:             make([]Item, 0, len(items)),
		Requests:          make([]AfterSalesRequest, 0),
		Notes:             strings.TrimSpace(notes),
	}

	for _, s := range items {
		if err := o.addItem(s); err != nil {
			return nil, err
		}
	}
	o.recalculateTotals()

	o.AddDomainEvent(NewOrderPlacedEvent(o))

	return o, nil
}

func (o *Order) addItem(s ItemSnapshot) error {
	if s.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if s.Quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if s.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	mrp := s.UnitMRP.Amount()
	if s.UnitMRP.IsZero() || mrp.LessThan(s.UnitPrice.Amount()) {
		mrp = s.UnitPrice.Amount()
	}

	o.Items = append(o.Items, Item{
		BaseEntity:     shared.NewBaseEntity(),
		OrderID:        o.ID,
		ProductID:      s.ProductID,
		VariationID:    s.VariationID,
		ProductName:    s.ProductName,
		VariationLabel: s.VariationLabel,
		UnitPrice:      s.UnitPrice.Amount(),
		UnitMRP:        mrp,
		Quantity:       s.Quantity,
		Subtotal:       s.UnitPrice.MultiplyByInt(int64(s.Quantity)).Amount(),
		IsReplaceable:  s.IsReplaceable,
	})
	return nil
}

func (o *Order) recalculateTotals() {
	total := decimal.Zero
	mrpTotal := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
		mrpTotal = mrpTotal.Add(item.UnitMRP.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.Total = total
	o.MRPTotal = mrpTotal
	o.Savings = mrpTotal.Sub(total)
}

// Confirm accepts a pending order
func (o *Order) Confirm() error {
	return o.TransitionTo(StatusConfirmed, ActorAdmin, "")
}

// StartProcessing marks a confirmed order as being packed
func (o *Order) StartProcessing() error {
	return o.TransitionTo(StatusProcessing, ActorAdmin, "")
}

// Ship marks the order as handed to the carrier
func (o *Order) Ship() error {
	return o.TransitionTo(StatusShipped, ActorAdmin, "")
}

// Deliver marks the order as delivered
func (o *Order) Deliver() error {
	return o.TransitionTo(StatusDelivered, ActorAdmin, "")
}

// Cancel cancels the order. Only orders that have not shipped can be cancelled;
// the caller restores stock for the returned StockLines.
func (o *Order) Cancel(actor Actor, reason string) error {
	if !o.Status.IsCancellable() {
		return shared.NewDomainError("ORDER_NOT_CANCELLABLE",
			fmt.Sprintf("Order %s cannot be cancelled once it is %s", o.OrderNumber, o.Status))
	}
	return o.TransitionTo(StatusCancelled, actor, reason)
}

// TransitionTo moves the order along its lifecycle. After-sales states are entered
// only through RequestAfterSales and the request decisions.
func (o *Order) TransitionTo(target Status, actor Actor, reason string) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", target))
	}
	if target.HasOpenAfterSales() || target == StatusReturned || target == StatusReplaced {
		return shared.NewDomainError("INVALID_TRANSITION", "Return and replacement states follow after-sales requests")
	}
	if o.Status.HasOpenAfterSales() {
		return shared.NewDomainError("INVALID_TRANSITION", "Decide the open after-sales requests first")
	}
	return o.moveTo(target, actor, reason)
}

func (o *Order) moveTo(target Status, actor Actor, reason string) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot change order from %s to %s", o.Status, target))
	}

	from := o.Status
	now := time.Now()
	switch target {
	case StatusConfirmed:
		o.ConfirmedAt = &now
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	case StatusCancelled:
		o.CancelledAt = &now
		o.CancelReason = strings.TrimSpace(reason)
		o.CancelledBy = actor
	}
	o.Status = target
	o.touch()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, actor))
	return nil
}

// RequestAfterSales opens a return or replacement request for one delivered item.
// The item must be replaceable and have no pending or approved request.
func (o *Order) RequestAfterSales(itemID uuid.UUID, kind RequestKind, reason string) (*AfterSalesRequest, error) {
	item, err := o.Item(itemID)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_REQUEST_KIND", "Request kind must be return or replacement")
	}
	if o.Status != StatusDelivered && o.Status != kind.requestedStatus() {
		if o.Status.HasOpenAfterSales() {
			return nil, shared.NewDomainError("AFTER_SALES_IN_PROGRESS",
				"Another kind of after-sales request is already open for this order")
		}
		return nil, shared.NewDomainError("ORDER_NOT_DELIVERED",
			fmt.Sprintf("A %s can only be requested after delivery", kind))
	}
	if !item.IsReplaceable {
		return nil, shared.NewDomainError("ITEM_NOT_REPLACEABLE",
			fmt.Sprintf("%s is not eligible for return or replacement", item.ProductName))
	}
	if open := o.OpenRequestFor(itemID); open != nil {
		return nil, shared.NewDomainError(shared.ErrDuplicateRequest.Code,
			fmt.Sprintf("A %s request for %s is already %s", open.Kind, item.ProductName, open.Status))
	}

	req, err := newAfterSalesRequest(o.ID, itemID, kind, reason)
	if err != nil {
		return nil, err
	}

	if o.Status == StatusDelivered {
		if err := o.moveTo(kind.requestedStatus(), ActorCustomer, ""); err != nil {
			return nil, err
		}
	} else {
		o.touch()
	}
	o.Requests = append(o.Requests, *req)
	o.AddDomainEvent(NewAfterSalesRequestedEvent(o, req))

	return &o.Requests[len(o.Requests)-1], nil
}

// ApproveRequest approves a pending after-sales request
func (o *Order) ApproveRequest(requestID uuid.UUID, note string) (*AfterSalesRequest, error) {
	req, err := o.Request(requestID)
	if err != nil {
		return nil, err
	}
	if err := req.approve(note); err != nil {
		return nil, err
	}
	o.touch()
	o.AddDomainEvent(NewAfterSalesDecidedEvent(o, req))
	return req, nil
}

// RejectRequest rejects a pending request; when no request stays open the order returns to delivered
func (o *Order) RejectRequest(requestID uuid.UUID, note string) (*AfterSalesRequest, error) {
	req, err := o.Request(requestID)
	if err != nil {
		return nil, err
	}
	if err := req.reject(note); err != nil {
		return nil, err
	}
	o.AddDomainEvent(NewAfterSalesDecidedEvent(o, req))
	if err := o.settleAfterSales(req.Kind); err != nil {
		return nil, err
	}
	return req, nil
}

// CompleteRequest completes an approved request; when no request stays open the order
// moves to returned or replaced
func (o *Order) CompleteRequest(requestID uuid.UUID) (*AfterSalesRequest, error) {
	req, err := o.Request(requestID)
	if err != nil {
		return nil, err
	}
	if err := req.complete(); err != nil {
		return nil, err
	}
	o.AddDomainEvent(NewAfterSalesDecidedEvent(o, req))
	if err := o.settleAfterSales(req.Kind); err != nil {
		return nil, err
	}
	return req, nil
}

func (o *Order) settleAfterSales(kind RequestKind) error {
	completed := false
	for _, r := range o.Requests {
		if r.Status.IsOpen() {
			o.touch()
			return nil
		}
		if r.Kind == kind && r.Status == RequestStatusCompleted {
			completed = true
		}
	}
	if completed {
		return o.moveTo(kind.finalStatus(), ActorAdmin, "")
	}
	return o.moveTo(StatusDelivered, ActorAdmin, "")
}

// Item finds an order line by ID
func (o *Order) Item(itemID uuid.UUID) (*Item, error) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], nil
		}
	}
	return nil, shared.NewDomainError("ORDER_ITEM_NOT_FOUND", "Item is not part of this order")
}

// Request finds an after-sales request by ID
func (o *Order) Request(requestID uuid.UUID) (*AfterSalesRequest, error) {
	for i := range o.Requests {
		if o.Requests[i].ID == requestID {
			return &o.Requests[i], nil
		}
	}
	return nil, shared.NewDomainError("REQUEST_NOT_FOUND", "After-sales request not found")
}

// OpenRequestFor returns the pending or approved request of an item, or nil
func (o *Order) OpenRequestFor(itemID uuid.UUID) *AfterSalesRequest {
	for i := range o.Requests {
		if o.Requests[i].OrderItemID == itemID && o.Requests[i].Status.IsOpen() {
			return &o.Requests[i]
		}
	}
	return nil
}

// IsOwnedBy reports whether the order belongs to the user
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// StockLines returns the quantities reserved by the order
func (o *Order) StockLines() []catalog.StockReservation {
	lines := make([]catalog.StockReservation, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, catalog.StockReservation{
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Quantity:    item.Quantity,
		})
	}
	return lines
}

// ReturnedStockLine returns the line to restock for a completed return
func (o *Order) ReturnedStockLine(req *AfterSalesRequest) (catalog.StockReservation, bool) {
	if req.Kind != RequestKindReturn || req.Status != RequestStatusCompleted {
		return catalog.StockReservation{}, false
	}
	item, err := o.Item(req.OrderItemID)
	if err != nil {
		return catalog.StockReservation{}, false
	}
	return catalog.StockReservation{ProductID: item.ProductID, VariationID: item.VariationID, Quantity: item.Quantity}, true
}

// TotalUnits returns the number of units across all lines
func (o *Order) TotalUnits() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// TotalMoney returns the order total as Money
func (o *Order) TotalMoney() valueobject.Money {
	return valueobject.Of(o.Total)
}

// touch leaves Version alone; SaveWithLock bumps it after the version check
func (o *Order) touch() {
	o.UpdatedAt = time.Now()
}
