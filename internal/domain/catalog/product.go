package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

var hundred = decimal.NewFromInt(100)

// Product represents a sellable catalog item.
// It is the aggregate root for its variations.
type Product struct {
	shared.BaseAggregateRoot
	Name            string
	Slug            string
	Description     string
	CategoryID      *uuid.UUID
	Price           decimal.Decimal
	MRP             decimal.NullDecimal
	DiscountPercent decimal.Decimal
	TotalQuantity   int
	IsApproved      bool
	IsReplaceable   bool
	Variations      []Variation

	// stockSet marks TotalQuantity as explicitly assigned since load
	stockSet bool
}

// NewProduct creates a new, unapproved product
func NewProduct(name, description string, price decimal.Decimal) (*Product, error) {
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Slug:              Slugify(name),
		Description:       description,
		Price:             price,
		DiscountPercent:   decimal.Zero,
		Variations:        make([]Variation, 0),
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's descriptive fields
func (p *Product) Update(name, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(name)
	p.Description = description
	p.touch()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetSlug overrides the generated slug
func (p *Product) SetSlug(slug string) error {
	slug = Slugify(slug)
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Slug must contain letters or digits")
	}
	p.Slug = slug
	p.touch()
	return nil
}

// SetPricing sets price, optional MRP and discount percent.
// MRP, when present, cannot be below the price.
func (p *Product) SetPricing(price decimal.Decimal, mrp *decimal.Decimal, discountPercent decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount percent must be between 0 and 100")
	}
	newMRP := decimal.NullDecimal{}
	if mrp != nil {
		if mrp.LessThan(price) {
			return shared.NewDomainError("INVALID_MRP", "MRP cannot be lower than the price")
		}
		newMRP = decimal.NullDecimal{Decimal: *mrp, Valid: true}
	}

	oldPrice := p.FinalPrice()

	p.Price = price
	p.MRP = newMRP
	p.DiscountPercent = discountPercent
	p.touch()

	if !oldPrice.Equals(p.FinalPrice()) {
		p.AddDomainEvent(NewProductPriceChangedEvent(p, oldPrice.Amount()))
	}

	return nil
}

// SetCategory assigns or clears the product category
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.touch()
}

// SetReplaceable marks whether delivered units may be returned or replaced
func (p *Product) SetReplaceable(replaceable bool) {
	p.IsReplaceable = replaceable
	p.touch()
}

// SetStock sets on-hand stock for products without variations
func (p *Product) SetStock(quantity int) error {
	if p.HasVariations() {
		return shared.NewDomainError("STOCK_MANAGED_BY_VARIATIONS", "Stock of a product with variations is the sum of its variations")
	}
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Stock quantity cannot be negative")
	}
	p.TotalQuantity = quantity
	p.stockSet = true
	p.touch()
	return nil
}

// StockChanged reports whether SetStock was called since the product was loaded.
// Stock reserved by checkouts is only ever written with conditional updates, so
// repositories persist TotalQuantity only when this is true.
func (p *Product) StockChanged() bool {
	return p.stockSet
}

// MarkStockPersisted clears the stock change markers of the product and its variations
func (p *Product) MarkStockPersisted() {
	p.stockSet = false
	for i := range p.Variations {
		p.Variations[i].stockSet = false
	}
}

// Approve makes the product visible in the public catalog
func (p *Product) Approve() error {
	if p.IsApproved {
		return shared.NewDomainError("ALREADY_APPROVED", "Product is already approved")
	}
	p.IsApproved = true
	p.touch()
	p.AddDomainEvent(NewProductApprovalChangedEvent(p))
	return nil
}

// Unapprove hides the product from the public catalog
func (p *Product) Unapprove() error {
	if !p.IsApproved {
		return shared.NewDomainError("NOT_APPROVED", "Product is not approved")
	}
	p.IsApproved = false
	p.touch()
	p.AddDomainEvent(NewProductApprovalChangedEvent(p))
	return nil
}

// FinalPrice is the price after the product discount
func (p *Product) FinalPrice() valueobject.Money {
	return valueobject.Of(p.Price).ApplyDiscount(p.DiscountPercent)
}

// EffectiveMRP returns the MRP, falling back to the list price when absent
func (p *Product) EffectiveMRP() valueobject.Money {
	if p.MRP.Valid {
		return valueobject.Of(p.MRP.Decimal)
	}
	return valueobject.Of(p.Price)
}

// UnitPrice returns the price of one unit, honoring a variation price override
func (p *Product) UnitPrice(variationID *uuid.UUID) (valueobject.Money, error) {
	if variationID == nil {
		return p.FinalPrice(), nil
	}
	v, err := p.Variation(*variationID)
	if err != nil {
		return valueobject.Money{}, err
	}
	if v.PriceOverride.Valid {
		return valueobject.Of(v.PriceOverride.Decimal), nil
	}
	return p.FinalPrice(), nil
}

// UnitMRP returns the MRP of one unit. Without an MRP it falls back to the
// variation override or the list price. It is never below the unit price.
func (p *Product) UnitMRP(variationID *uuid.UUID) (valueobject.Money, error) {
	unit, err := p.UnitPrice(variationID)
	if err != nil {
		return valueobject.Money{}, err
	}

	mrp := p.EffectiveMRP()
	if !p.MRP.Valid && variationID != nil {
		if v, _ := p.Variation(*variationID); v != nil && v.PriceOverride.Valid {
			mrp = valueobject.Of(v.PriceOverride.Decimal)
		}
	}
	if unit.GreaterThan(mrp) {
		return unit, nil
	}
	return mrp, nil
}

// AvailableQuantity returns on-hand stock for the product or one of its variations
func (p *Product) AvailableQuantity(variationID *uuid.UUID) (int, error) {
	if variationID == nil {
		return p.TotalQuantity, nil
	}
	v, err := p.Variation(*variationID)
	if err != nil {
		return 0, err
	}
	return v.StockQuantity, nil
}

// EnsureAvailable rejects quantities above on-hand stock
func (p *Product) EnsureAvailable(variationID *uuid.UUID, quantity int) error {
	available, err := p.AvailableQuantity(variationID)
	if err != nil {
		return err
	}
	if quantity > available {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Only %d unit(s) of %s are in stock", available, p.Name))
	}
	return nil
}

// IsPurchasable reports whether customers can add the product to a cart
func (p *Product) IsPurchasable() bool {
	return p.IsApproved
}

// HasVariations returns true when the product is sold in variations
func (p *Product) HasVariations() bool {
	return len(p.Variations) > 0
}

// Variation finds a variation by ID
func (p *Product) Variation(id uuid.UUID) (*Variation, error) {
	for i := range p.Variations {
		if p.Variations[i].ID == id {
			return &p.Variations[i], nil
		}
	}
	return nil, shared.NewDomainError("VARIATION_NOT_FOUND", "Variation not found for this product")
}

// AddVariation adds a size/color combination with its own stock
func (p *Product) AddVariation(size, color string, stock int, priceOverride *decimal.Decimal) (*Variation, error) {
	for _, v := range p.Variations {
		if strings.EqualFold(v.Size, size) && strings.EqualFold(v.Color, color) {
			return nil, shared.NewDomainError("DUPLICATE_VARIATION",
				fmt.Sprintf("Variation %s/%s already exists", size, color))
		}
	}

	v, err := NewVariation(p.ID, size, color, stock, priceOverride)
	if err != nil {
		return nil, err
	}

	p.Variations = append(p.Variations, *v)
	p.recalculateStock()
	p.touch()

	return &p.Variations[len(p.Variations)-1], nil
}

// UpdateVariation changes a variation's stock and price override
func (p *Product) UpdateVariation(id uuid.UUID, stock int, priceOverride *decimal.Decimal) error {
	v, err := p.Variation(id)
	if err != nil {
		return err
	}
	if err := validateVariationValues(stock, priceOverride); err != nil {
		return err
	}
	_ = v.SetStock(stock)
	_ = v.SetPriceOverride(priceOverride)
	p.recalculateStock()
	p.touch()
	return nil
}

// RemoveVariation removes a variation.
// When the last variation is removed the product keeps the stock it had.
func (p *Product) RemoveVariation(id uuid.UUID) error {
	for i, v := range p.Variations {
		if v.ID == id {
			p.Variations = append(p.Variations[:i], p.Variations[i+1:]...)
			p.recalculateStock()
			p.touch()
			return nil
		}
	}
	return shared.NewDomainError("VARIATION_NOT_FOUND", "Variation not found for this product")
}

// recalculateStock keeps TotalQuantity equal to the sum of variation stock
func (p *Product) recalculateStock() {
	if !p.HasVariations() {
		return
	}
	total := 0
	for _, v := range p.Variations {
		total += v.StockQuantity
	}
	p.TotalQuantity = total
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

func validateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
