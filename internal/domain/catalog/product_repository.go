package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductSearch narrows a product listing.
// Zero values mean "no constraint".
type ProductSearch struct {
	shared.Filter
	CategoryIDs  []uuid.UUID
	MinPrice     *float64
	MaxPrice     *float64
	InStockOnly  bool
	ApprovedOnly bool
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product with its variations
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySlug finds a product by its unique slug
	FindBySlug(ctx context.Context, slug string) (*Product, error)

	// FindByIDs finds multiple products with their variations
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// Search lists products matching the search
	Search(ctx context.Context, search ProductSearch) ([]Product, error)

	// CountSearch counts products matching the search
	CountSearch(ctx context.Context, search ProductSearch) (int64, error)

	// Save creates or updates a product and its variations
	Save(ctx context.Context, product *Product) error

	// Delete deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsBySlug checks whether a slug is taken, optionally ignoring one product
	ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)

	// CountByCategory counts products in a category
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

// StockReservation is a single line to reserve or release
type StockReservation struct {
	ProductID   uuid.UUID
	VariationID *uuid.UUID
	Quantity    int
}

// StockRepository adjusts on-hand stock with conditional updates
type StockRepository interface {
	// Reserve decrements stock for every line or none; it fails with ErrInsufficientStock
	Reserve(ctx context.Context, lines []StockReservation) error

	// Release increments stock for every line
	Release(ctx context.Context, lines []StockReservation) error
}
