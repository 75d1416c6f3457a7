package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ListFilter narrows an order listing
type ListFilter struct {
	shared.Filter
	UserID *uuid.UUID
	Status Status
}

// Repository defines the interface for order persistence
type Repository interface {
	// FindByID finds an order with items and after-sales requests
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByOrderNumber finds an order by its number
	FindByOrderNumber(ctx context.Context, number string) (*Order, error)

	// FindAll lists orders matching the filter, newest first by default
	FindAll(ctx context.Context, filter ListFilter) ([]Order, error)

	// Count counts orders matching the filter
	Count(ctx context.Context, filter ListFilter) (int64, error)

	// Save creates or updates an order with its items and requests
	Save(ctx context.Context, order *Order) error

	// SaveWithLock saves only if the stored version equals order.Version and then
	// increments it; otherwise it returns shared.ErrConcurrencyConflict
	SaveWithLock(ctx context.Context, order *Order) error

	// ExistsByOrderNumber checks whether an order number is taken
	ExistsByOrderNumber(ctx context.Context, number string) (bool, error)

	// CountOpenByUser counts orders of a user that are not in a terminal state
	CountOpenByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
