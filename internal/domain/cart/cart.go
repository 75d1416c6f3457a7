// Package cart holds the shopping cart aggregate and its pricing rules.
package cart

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// Item is one product (or product variation) line in a cart
type Item struct {
	shared.BaseEntity
	CartID      uuid.UUID
	ProductID   uuid.UUID
	VariationID *uuid.UUID
	Quantity    int
}

// Matches reports whether the item is for the given product and variation
func (i *Item) Matches(productID uuid.UUID, variationID *uuid.UUID) bool {
	if i.ProductID != productID {
		return false
	}
	if i.VariationID == nil || variationID == nil {
		return i.VariationID == nil && variationID == nil
	}
	return *i.VariationID == *variationID
}

// Cart is scoped to either a signed-in user or a guest session, never both
type Cart struct {
	shared.BaseAggregateRoot
	UserID    *uuid.UUID
	SessionID string
	Items     []Item
}

// NewCart creates an empty cart for the session owner
func NewCart(session shared.Session) (*Cart, error) {
	if session.IsZero() {
		return nil, shared.NewDomainError("SESSION_REQUIRED", "A user or guest session is required")
	}
	c := &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Items:             make([]Item, 0),
	}
	if session.IsAuthenticated() {
		uid := session.UserID()
		c.UserID = &uid
	} else {
		c.SessionID = session.SessionID()
	}
	return c, nil
}

// IsGuest reports whether the cart belongs to a guest session
func (c *Cart) IsGuest() bool {
	return c.UserID == nil
}

// OwnedBy reports whether the cart belongs to the session
func (c *Cart) OwnedBy(session shared.Session) bool {
	if session.IsAuthenticated() {
		return c.UserID != nil && *c.UserID == session.UserID()
	}
	return session.IsGuest() && c.UserID == nil && c.SessionID == session.SessionID()
}

// Item finds an item by ID
func (c *Cart) Item(itemID uuid.UUID) (*Item, error) {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i], nil
		}
	}
	return nil, shared.NewDomainError("CART_ITEM_NOT_FOUND", "Item is not in the cart")
}

// FindItem returns the line for a product and variation, or nil
func (c *Cart) FindItem(productID uuid.UUID, variationID *uuid.UUID) *Item {
	for i := range c.Items {
		if c.Items[i].Matches(productID, variationID) {
			return &c.Items[i]
		}
	}
	return nil
}

// AddItem adds quantity units of a product, merging with an existing line.
// The resulting line quantity must fit the on-hand stock and maxPerItem (0 means no cap);
// otherwise the cart is left untouched.
func (c *Cart) AddItem(product *catalog.Product, variationID *uuid.UUID, quantity, maxPerItem int) (*Item, error) {
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if err := checkPurchasable(product, variationID); err != nil {
		return nil, err
	}

	existing := c.FindItem(product.ID, variationID)
	target := quantity
	if existing != nil {
		target += existing.Quantity
	}
	if err := checkQuantity(product, variationID, target, maxPerItem); err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Quantity = target
		existing.Touch()
		c.touch()
		return existing, nil
	}

	c.Items = append(c.Items, Item{
		BaseEntity:  shared.NewBaseEntity(),
		CartID:      c.ID,
		ProductID:   product.ID,
		VariationID: variationID,
		Quantity:    quantity,
	})
	c.touch()
	return &c.Items[len(c.Items)-1], nil
}

// UpdateQuantity sets an item's quantity. Values below 1 are clamped to 1.
func (c *Cart) UpdateQuantity(itemID uuid.UUID, quantity int, product *catalog.Product, maxPerItem int) (*Item, error) {
	item, err := c.Item(itemID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.ID != item.ProductID {
		return nil, shared.NewDomainError("PRODUCT_MISMATCH", "Product does not match the cart item")
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > item.Quantity {
		if err := checkPurchasable(product, item.VariationID); err != nil {
			return nil, err
		}
		if err := checkQuantity(product, item.VariationID, quantity, maxPerItem); err != nil {
			return nil, err
		}
	}

	item.Quantity = quantity
	item.Touch()
	c.touch()
	return item, nil
}

// Decrement removes one unit; removing the last unit removes the item.
// It returns the remaining item, nil when the item was removed.
func (c *Cart) Decrement(itemID uuid.UUID) (*Item, error) {
	item, err := c.Item(itemID)
	if err != nil {
		return nil, err
	}
	if item.Quantity <= 1 {
		return nil, c.RemoveItem(itemID)
	}
	item.Quantity--
	item.Touch()
	c.touch()
	return item, nil
}

// RemoveItem drops a line from the cart
func (c *Cart) RemoveItem(itemID uuid.UUID) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch()
			return nil
		}
	}
	return shared.NewDomainError("CART_ITEM_NOT_FOUND", "Item is not in the cart")
}

// RemoveProduct drops every line of a product, used when it leaves the catalog
func (c *Cart) RemoveProduct(productID uuid.UUID) int {
	kept := c.Items[:0]
	removed := 0
	for _, item := range c.Items {
		if item.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	if removed > 0 {
		c.touch()
	}
	return removed
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = make([]Item, 0)
	c.touch()
}

// IsEmpty returns true if the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalUnits returns the number of units across all lines
func (c *Cart) TotalUnits() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// ProductIDs returns the distinct product IDs in the cart
func (c *Cart) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(c.Items))
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

// Merge moves the lines of a guest cart into this cart. Quantities of matching
// lines are summed and capped by stock and maxPerItem; lines whose product is
// gone or no longer purchasable are skipped.
func (c *Cart) Merge(guest *Cart, products map[uuid.UUID]*catalog.Product, maxPerItem int) int {
	merged := 0
	for _, line := range guest.Items {
		product, ok := products[line.ProductID]
		if !ok || checkPurchasable(product, line.VariationID) != nil {
			continue
		}

		existing := c.FindItem(line.ProductID, line.VariationID)
		target := line.Quantity
		if existing != nil {
			target += existing.Quantity
		}
		target = capQuantity(product, line.VariationID, target, maxPerItem)
		if target < 1 {
			continue
		}

		if existing != nil {
			existing.Quantity = target
			existing.Touch()
		} else {
			c.Items = append(c.Items, Item{
				BaseEntity:  shared.NewBaseEntity(),
				CartID:      c.ID,
				ProductID:   line.ProductID,
				VariationID: line.VariationID,
				Quantity:    target,
			})
		}
		merged++
	}
	if merged > 0 {
		c.touch()
	}
	return merged
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

func checkPurchasable(product *catalog.Product, variationID *uuid.UUID) error {
	if product == nil {
		return shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}
	if !product.IsPurchasable() {
		return shared.NewDomainError("PRODUCT_UNAVAILABLE", fmt.Sprintf("%s is not available for purchase", product.Name))
	}
	if product.HasVariations() && variationID == nil {
		return shared.NewDomainError("VARIATION_REQUIRED", fmt.Sprintf("Choose a size or color for %s", product.Name))
	}
	if variationID != nil {
		if _, err := product.Variation(*variationID); err != nil {
			return err
		}
	}
	return nil
}

func checkQuantity(product *catalog.Product, variationID *uuid.UUID, quantity, maxPerItem int) error {
	if maxPerItem > 0 && quantity > maxPerItem {
		return shared.NewDomainError("QUANTITY_LIMIT_EXCEEDED",
			fmt.Sprintf("At most %d unit(s) of one item can be ordered", maxPerItem))
	}
	return product.EnsureAvailable(variationID, quantity)
}

func capQuantity(product *catalog.Product, variationID *uuid.UUID, quantity, maxPerItem int) int {
	available, err := product.AvailableQuantity(variationID)
	if err != nil {
		return 0
	}
	if quantity > available {
		quantity = available
	}
	if maxPerItem > 0 && quantity > maxPerItem {
		quantity = maxPerItem
	}
	return quantity
}
