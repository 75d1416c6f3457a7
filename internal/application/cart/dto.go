package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
)

// AddItemRequest represents a request to put a product in the cart
type AddItemRequest struct {
	ProductID   uuid.UUID  `json:"product_id" binding:"required"`
	VariationID *uuid.UUID `json:"variation_id"`
	Quantity    int        `json:"quantity" binding:"omitempty,min=1,max=1000"`
}

// UpdateItemRequest sets the quantity of a cart line. Values below 1 are clamped to 1.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"max=1000"`
}

// CartListRequest represents the query of the admin cart listing
type CartListRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CartResponse is a priced cart
type CartResponse struct {
	ID          *uuid.UUID         `json:"id,omitempty"`
	Items       []CartItemResponse `json:"items"`
	Total       decimal.Decimal    `json:"total"`
	MRPTotal    decimal.Decimal    `json:"mrp_total"`
	Savings     decimal.Decimal    `json:"savings"`
	TotalUnits  int                `json:"total_units"`
	ItemCount   int                `json:"item_count"`
	Unavailable []uuid.UUID        `json:"unavailable_item_ids"`
	UpdatedAt   *time.Time         `json:"updated_at,omitempty"`
}

// CartItemResponse is one priced cart line
type CartItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	VariationID    *uuid.UUID      `json:"variation_id,omitempty"`
	ProductName    string          `json:"product_name"`
	ProductSlug    string          `json:"product_slug"`
	VariationLabel string          `json:"variation_label,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	UnitMRP        decimal.Decimal `json:"unit_mrp"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	MRPSubtotal    decimal.Decimal `json:"mrp_subtotal"`
	Savings        decimal.Decimal `json:"savings"`
	InStock        bool            `json:"in_stock"`
}

// AdminCartResponse is a cart with its owner, for the back office
type AdminCartResponse struct {
	CartResponse
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	IsGuest   bool       `json:"is_guest"`
	CreatedAt time.Time  `json:"created_at"`
}

func emptyCartResponse() CartResponse {
	return CartResponse{
		Items:       make([]CartItemResponse, 0),
		Total:       decimal.Zero,
		MRPTotal:    decimal.Zero,
		Savings:     decimal.Zero,
		Unavailable: make([]uuid.UUID, 0),
	}
}

// toCartResponse renders a priced cart. products must hold every product the
// summary priced.
func toCartResponse(c *cart.Cart, summary cart.Summary, products map[uuid.UUID]*catalog.Product) CartResponse {
	resp := emptyCartResponse()
	id := c.ID
	updated := c.UpdatedAt
	resp.ID = &id
	resp.UpdatedAt = &updated
	resp.Total = summary.Total.Amount()
	resp.MRPTotal = summary.MRPTotal.Amount()
	resp.Savings = summary.Savings.Amount()
	resp.TotalUnits = summary.TotalUnits
	resp.ItemCount = len(c.Items)
	resp.Unavailable = append(resp.Unavailable, summary.Unavailable...)

	for _, line := range summary.Lines {
		item := CartItemResponse{
			ID:          line.ItemID,
			ProductID:   line.ProductID,
			VariationID: line.VariationID,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.Amount(),
			UnitMRP:     line.UnitMRP.Amount(),
			Subtotal:    line.Subtotal.Amount(),
			MRPSubtotal: line.MRPSubtotal.Amount(),
			Savings:     line.Savings.Amount(),
			InStock:     line.InStock,
		}
		if p, ok := products[line.ProductID]; ok {
			item.ProductName = p.Name
			item.ProductSlug = p.Slug
			if line.VariationID != nil {
				if v, err := p.Variation(*line.VariationID); err == nil {
					item.VariationLabel = v.Label()
				}
			}
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}

func toAdminCartResponse(c *cart.Cart, priced CartResponse) AdminCartResponse {
	return AdminCartResponse{
		CartResponse: priced,
		UserID:       c.UserID,
		SessionID:    c.SessionID,
		IsGuest:      c.IsGuest(),
		CreatedAt:    c.CreatedAt,
	}
}
