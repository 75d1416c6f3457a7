package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Variation is a size/color combination of a product with its own stock
type Variation struct {
	shared.BaseEntity
	ProductID     uuid.UUID
	Size          string
	Color         string
	StockQuantity int
	InStock       bool
	PriceOverride decimal.NullDecimal

	stockSet bool
}

// NewVariation creates a variation; at least one of size or color is required
func NewVariation(productID uuid.UUID, size, color string, stock int, priceOverride *decimal.Decimal) (*Variation, error) {
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)
	if size == "" && color == "" {
		return nil, shared.NewDomainError("INVALID_VARIATION", "Variation needs a size or a color")
	}
	if len(size) > 50 || len(color) > 50 {
		return nil, shared.NewDomainError("INVALID_VARIATION", "Size and color cannot exceed 50 characters")
	}

	v := &Variation{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		Size:       size,
		Color:      color,
	}
	if err := v.SetStock(stock); err != nil {
		return nil, err
	}
	if err := v.SetPriceOverride(priceOverride); err != nil {
		return nil, err
	}
	return v, nil
}

func validateVariationValues(stock int, priceOverride *decimal.Decimal) error {
	if stock < 0 {
		return errNegativeStock
	}
	if priceOverride != nil && priceOverride.IsNegative() {
		return errNegativeOverride
	}
	return nil
}

var (
	errNegativeStock    = shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot be negative")
	errNegativeOverride = shared.NewDomainError("INVALID_PRICE", "Variation price cannot be negative")
)

// SetStock sets stock and keeps InStock consistent with it
func (v *Variation) SetStock(quantity int) error {
	if quantity < 0 {
		return errNegativeStock
	}
	v.StockQuantity = quantity
	v.InStock = quantity > 0
	v.stockSet = true
	v.Touch()
	return nil
}

// StockChanged reports whether SetStock was called since the variation was loaded
func (v *Variation) StockChanged() bool {
	return v.stockSet
}

// SetPriceOverride sets or clears the variation specific price
func (v *Variation) SetPriceOverride(price *decimal.Decimal) error {
	if price == nil {
		v.PriceOverride = decimal.NullDecimal{}
		return nil
	}
	if price.IsNegative() {
		return errNegativeOverride
	}
	v.PriceOverride = decimal.NullDecimal{Decimal: *price, Valid: true}
	return nil
}

// Label is a short human readable name, e.g. "M / Red"
func (v *Variation) Label() string {
	switch {
	case v.Size != "" && v.Color != "":
		return v.Size + " / " + v.Color
	case v.Size != "":
		return v.Size
	default:
		return v.Color
	}
}
