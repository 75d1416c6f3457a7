package catalog

import (
	"context"

	"github.com/google/uuid"
)

// MediaRepository persists product media
type MediaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductMedia, error)

	// FindByProduct returns non-deleted media ordered by sort order
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]ProductMedia, error)

	// FindActiveByProducts returns active media for several products keyed by product ID
	FindActiveByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]ProductMedia, error)

	// CountByProduct counts non-deleted media of a product
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)

	Save(ctx context.Context, media *ProductMedia) error
	SaveBatch(ctx context.Context, media []*ProductMedia) error

	// Delete removes the record permanently
	Delete(ctx context.Context, id uuid.UUID) error
}
