package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated         = "ProductCreated"
	EventTypeProductUpdated         = "ProductUpdated"
	EventTypeProductPriceChanged    = "ProductPriceChanged"
	EventTypeProductApprovalChanged = "ProductApprovalChanged"
	EventTypeProductViewed          = "ProductViewed"
)

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		Name:            product.Name,
		Slug:            product.Slug,
		Price:           product.Price,
	}
}

// ProductUpdatedEvent is published when a product's descriptive fields change
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID  `json:"product_id"`
	Name       string     `json:"name"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(product *Product) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		Name:            product.Name,
		CategoryID:      product.CategoryID,
	}
}

// ProductPriceChangedEvent is published when the final price changes
type ProductPriceChangedEvent struct {
	shared.BaseDomainEvent
	ProductID     uuid.UUID       `json:"product_id"`
	OldFinalPrice decimal.Decimal `json:"old_final_price"`
	NewFinalPrice decimal.Decimal `json:"new_final_price"`
}

// NewProductPriceChangedEvent creates a new ProductPriceChangedEvent
func NewProductPriceChangedEvent(product *Product, oldFinalPrice decimal.Decimal) *ProductPriceChangedEvent {
	return &ProductPriceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductPriceChanged, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		OldFinalPrice:   oldFinalPrice,
		NewFinalPrice:   product.FinalPrice().Amount(),
	}
}

// ProductApprovalChangedEvent is published when a product is approved or hidden
type ProductApprovalChangedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID `json:"product_id"`
	IsApproved bool      `json:"is_approved"`
}

// NewProductApprovalChangedEvent creates a new ProductApprovalChangedEvent
func NewProductApprovalChangedEvent(product *Product) *ProductApprovalChangedEvent {
	return &ProductApprovalChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductApprovalChanged, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		IsApproved:      product.IsApproved,
	}
}

// ProductViewedEvent is published when a shopper opens a product detail page
type ProductViewedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID  `json:"product_id"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Guest      bool       `json:"guest"`
}

// NewProductViewedEvent creates a new ProductViewedEvent
func NewProductViewedEvent(product *Product, guest bool) *ProductViewedEvent {
	return &ProductViewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductViewed, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		CategoryID:      product.CategoryID,
		Guest:           guest,
	}
}
