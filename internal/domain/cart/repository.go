package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Repository defines the interface for cart persistence
type Repository interface {
	// FindBySession returns the session owner's cart or shared.ErrNotFound
	FindBySession(ctx context.Context, session shared.Session) (*Cart, error)

	// FindByID finds a cart with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)

	// FindAll lists carts of every owner with their items
	FindAll(ctx context.Context, filter shared.Filter) ([]Cart, error)

	// Count counts carts of every owner
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a cart; the stored item set is replaced by cart.Items
	Save(ctx context.Context, cart *Cart) error

	// Delete deletes a cart and its items
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteStaleGuest deletes guest carts not updated since before
	DeleteStaleGuest(ctx context.Context, before time.Time) (int64, error)
}
