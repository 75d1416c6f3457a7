package models

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
)

// CartModel is the persistence model for a shopping cart.
// Exactly one of UserID and SessionID is set.
type CartModel struct {
	AggregateModel
	UserID    *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_carts_user"`
	SessionID *string         `gorm:"type:varchar(128);uniqueIndex:idx_carts_session"`
	Items     []CartItemModel `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// ToDomain converts the persistence model to a domain Cart.
func (m *CartModel) ToDomain() *cart.Cart {
	c := &cart.Cart{
		BaseAggregateRoot: m.ToAggregateRoot(),
		UserID:            m.UserID,
		Items:             make([]cart.Item, 0, len(m.Items)),
	}
	if m.SessionID != nil {
		c.SessionID = *m.SessionID
	}
	for i := range m.Items {
		c.Items = append(c.Items, m.Items[i].ToDomain())
	}
	return c
}

// CartModelFromDomain creates a persistence model from a domain Cart.
// Guest carts keep SessionID; user carts store NULL so the unique index ignores them.
func CartModelFromDomain(c *cart.Cart) *CartModel {
	m := &CartModel{UserID: c.UserID}
	if c.SessionID != "" {
		sid := c.SessionID
		m.SessionID = &sid
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Items = make([]CartItemModel, 0, len(c.Items))
	for i := range c.Items {
		item := CartItemModelFromDomain(&c.Items[i])
		item.CartID = c.ID
		m.Items = append(m.Items, *item)
	}
	return m
}

// CartItemModel is the persistence model for one cart line.
type CartItemModel struct {
	BaseModel
	CartID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	VariationID *uuid.UUID `gorm:"type:uuid"`
	Quantity    int        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain cart Item.
func (m *CartItemModel) ToDomain() cart.Item {
	return cart.Item{
		BaseEntity:  m.BaseModel.ToDomain(),
		CartID:      m.CartID,
		ProductID:   m.ProductID,
		VariationID: m.VariationID,
		Quantity:    m.Quantity,
	}
}

// CartItemModelFromDomain creates a persistence model from a domain cart Item.
func CartItemModelFromDomain(i *cart.Item) *CartItemModel {
	m := &CartItemModel{
		CartID:      i.CartID,
		ProductID:   i.ProductID,
		VariationID: i.VariationID,
		Quantity:    i.Quantity,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}
