package catalog

import (
	"context"

	"github.com/google/uuid"
)

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindByID finds a category by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// FindBySlug finds a category by its unique slug
	FindBySlug(ctx context.Context, slug string) (*Category, error)

	// FindAll returns every category ordered by sort order then name.
	// The catalog is small enough to build the tree in memory.
	FindAll(ctx context.Context, activeOnly bool) ([]Category, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error

	// Delete deletes a category
	Delete(ctx context.Context, id uuid.UUID) error

	// HasChildren checks if a category has any children
	HasChildren(ctx context.Context, id uuid.UUID) (bool, error)

	// ExistsBySlug checks whether a slug is taken, optionally ignoring one category
	ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
}
