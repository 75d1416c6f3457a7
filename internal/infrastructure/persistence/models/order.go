package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ShippingAddressColumns is the embedded shipping address of an order.
type ShippingAddressColumns struct {
	FullName     string `gorm:"type:varchar(100);not null"`
	Phone        string `gorm:"type:varchar(30);not null"`
	AddressLine1 string `gorm:"type:varchar(255);not null"`
	AddressLine2 string `gorm:"type:varchar(255)"`
	City         string `gorm:"type:varchar(100);not null"`
	State        string `gorm:"type:varchar(100);not null"`
	PostalCode   string `gorm:"type:varchar(20);not null"`
	Country      string `gorm:"type:varchar(100);not null"`
}

func addressColumnsFromDomain(a valueobject.ShippingAddress) ShippingAddressColumns {
	dto := a.ToDTO()
	return ShippingAddressColumns{
		FullName:     dto.FullName,
		Phone:        dto.Phone,
		AddressLine1: dto.AddressLine1,
		AddressLine2: dto.AddressLine2,
		City:         dto.City,
		State:        dto.State,
		PostalCode:   dto.PostalCode,
		Country:      dto.Country,
	}
}

func (c ShippingAddressColumns) toDomain() valueobject.ShippingAddress {
	return valueobject.RestoreShippingAddress(valueobject.AddressDTO{
		FullName:     c.FullName,
		Phone:        c.Phone,
		AddressLine1: c.AddressLine1,
		AddressLine2: c.AddressLine2,
		City:         c.City,
		State:        c.State,
		PostalCode:   c.PostalCode,
		Country:      c.Country,
	})
}

// OrderModel is the persistence model for the Order aggregate.
type OrderModel struct {
	AggregateModel
	OrderNumber     string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_number"`
	UserID          uuid.UUID                `gorm:"type:uuid;not null;index"`
	Status          order.Status             `gorm:"type:varchar(30);not null;index"`
	PaymentMethod   order.PaymentMethod      `gorm:"type:varchar(30);not null"`
	PaymentType     order.PaymentType        `gorm:"type:varchar(20);not null"`
	ShippingAddress ShippingAddressColumns   `gorm:"embedded;embeddedPrefix:ship_"`
	Total           decimal.Decimal          `gorm:"type:decimal(18,2);not null;default:0"`
	MRPTotal        decimal.Decimal          `gorm:"column:mrp_total;type:decimal(18,2);not null;default:0"`
	Savings         decimal.Decimal          `gorm:"type:decimal(18,2);not null;default:0"`
	Notes           string                   `gorm:"type:varchar(500)"`
	CancelReason    string                   `gorm:"type:varchar(500)"`
	CancelledBy     order.Actor              `gorm:"type:varchar(20)"`
	ConfirmedAt     *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
	Items           []OrderItemModel         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Requests        []AfterSalesRequestModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		Status:            m.Status,
		PaymentMethod:     m.PaymentMethod,
		PaymentType:       m.PaymentType,
		ShippingAddress:   m.ShippingAddress.toDomain(),
		Items:             make([]order.Item, 0, len(m.Items)),
		Requests:          make([]order.AfterSalesRequest, 0, len(m.Requests)),
		Total:             m.Total,
		MRPTotal:          m.MRPTotal,
		Savings:           m.Savings,
		Notes:             m.Notes,
		CancelReason:      m.CancelReason,
		CancelledBy:       m.CancelledBy,
		ConfirmedAt:       m.ConfirmedAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
	}
	for i := range m.Items {
		o.Items = append(o.Items, m.Items[i].ToDomain())
	}
	for i := range m.Requests {
		o.Requests = append(o.Requests, m.Requests[i].ToDomain())
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.UserID = o.UserID
	m.Status = o.Status
	m.PaymentMethod = o.PaymentMethod
	m.PaymentType = o.PaymentType
	m.ShippingAddress = addressColumnsFromDomain(o.ShippingAddress)
	m.Total = o.Total
	m.MRPTotal = o.MRPTotal
	m.Savings = o.Savings
	m.Notes = o.Notes
	m.CancelReason = o.CancelReason
	m.CancelledBy = o.CancelledBy
	m.ConfirmedAt = o.ConfirmedAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for i := range o.Items {
		m.Items = append(m.Items, *OrderItemModelFromDomain(&o.Items[i]))
	}
	m.Requests = make([]AfterSalesRequestModel, 0, len(o.Requests))
	for i := range o.Requests {
		m.Requests = append(m.Requests, *AfterSalesRequestModelFromDomain(&o.Requests[i]))
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line snapshot.
type OrderItemModel struct {
	BaseModel
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariationID    *uuid.UUID      `gorm:"type:uuid"`
	ProductName    string          `gorm:"type:varchar(200);not null"`
	VariationLabel string          `gorm:"type:varchar(110)"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UnitMRP        decimal.Decimal `gorm:"column:unit_mrp;type:decimal(18,2);not null"`
	Quantity       int             `gorm:"not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IsReplaceable  bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain order Item.
func (m *OrderItemModel) ToDomain() order.Item {
	return order.Item{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrderID:        m.OrderID,
		ProductID:      m.ProductID,
		VariationID:    m.VariationID,
		ProductName:    m.ProductName,
		VariationLabel: m.VariationLabel,
		UnitPrice:      m.UnitPrice,
		UnitMRP:        m.UnitMRP,
		Quantity:       m.Quantity,
		Subtotal:       m.Subtotal,
		IsReplaceable:  m.IsReplaceable,
	}
}

// OrderItemModelFromDomain creates a persistence model from a domain order Item.
func OrderItemModelFromDomain(i *order.Item) *OrderItemModel {
	m := &OrderItemModel{
		OrderID:        i.OrderID,
		ProductID:      i.ProductID,
		VariationID:    i.VariationID,
		ProductName:    i.ProductName,
		VariationLabel: i.VariationLabel,
		UnitPrice:      i.UnitPrice,
		UnitMRP:        i.UnitMRP,
		Quantity:       i.Quantity,
		Subtotal:       i.Subtotal,
		IsReplaceable:  i.IsReplaceable,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}

// AfterSalesRequestModel is the persistence model for return and replacement requests.
type AfterSalesRequestModel struct {
	BaseModel
	OrderID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	OrderItemID uuid.UUID           `gorm:"type:uuid;not null;index"`
	Kind        order.RequestKind   `gorm:"type:varchar(20);not null"`
	Status      order.RequestStatus `gorm:"type:varchar(20);not null;index"`
	Reason      string              `gorm:"type:text;not null"`
	AdminNote   string              `gorm:"type:text"`
	DecidedAt   *time.Time
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (AfterSalesRequestModel) TableName() string {
	return "after_sales_requests"
}

// ToDomain converts the persistence model to a domain AfterSalesRequest.
func (m *AfterSalesRequestModel) ToDomain() order.AfterSalesRequest {
	return order.AfterSalesRequest{
		BaseEntity:  m.BaseModel.ToDomain(),
		OrderID:     m.OrderID,
		OrderItemID: m.OrderItemID,
		Kind:        m.Kind,
		Status:      m.Status,
		Reason:      m.Reason,
		AdminNote:   m.AdminNote,
		DecidedAt:   m.DecidedAt,
		CompletedAt: m.CompletedAt,
	}
}

// AfterSalesRequestModelFromDomain creates a persistence model from a domain request.
func AfterSalesRequestModelFromDomain(r *order.AfterSalesRequest) *AfterSalesRequestModel {
	m := &AfterSalesRequestModel{
		OrderID:     r.OrderID,
		OrderItemID: r.OrderItemID,
		Kind:        r.Kind,
		Status:      r.Status,
		Reason:      r.Reason,
		AdminNote:   r.AdminNote,
		DecidedAt:   r.DecidedAt,
		CompletedAt: r.CompletedAt,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
