package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMediaRepository implements catalog.MediaRepository using GORM
type GormMediaRepository struct {
	db *gorm.DB
}

// NewGormMediaRepository creates a new GormMediaRepository
func NewGormMediaRepository(db *gorm.DB) *GormMediaRepository {
	return &GormMediaRepository{db: db}
}

// FindByID finds a media record by ID
func (r *GormMediaRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ProductMedia, error) {
	var model models.ProductMediaModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByProduct returns non-deleted media ordered by sort order
func (r *GormMediaRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.ProductMedia, error) {
	var rows []models.ProductMediaModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND status <> ?", productID, catalog.MediaStatusDeleted).
		Order("sort_order ASC").Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	media := make([]catalog.ProductMedia, len(rows))
	for i := range rows {
		media[i] = *rows[i].ToDomain()
	}
	return media, nil
}

// FindActiveByProducts returns active media keyed by product ID
func (r *GormMediaRepository) FindActiveByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]catalog.ProductMedia, error) {
	result := make(map[uuid.UUID][]catalog.ProductMedia, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	var rows []models.ProductMediaModel
	if err := r.db.WithContext(ctx).
		Where("product_id IN ? AND status = ?", productIDs, catalog.MediaStatusActive).
		Order("sort_order ASC").Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ProductID] = append(result[rows[i].ProductID], *rows[i].ToDomain())
	}
	return result, nil
}

// CountByProduct counts non-deleted media of a product
func (r *GormMediaRepository) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductMediaModel{}).
		Where("product_id = ? AND status <> ?", productID, catalog.MediaStatusDeleted).
		Count(&count).Error
	return count, err
}

// Save creates or updates a media record
func (r *GormMediaRepository) Save(ctx context.Context, media *catalog.ProductMedia) error {
	return r.db.WithContext(ctx).Save(models.ProductMediaModelFromDomain(media)).Error
}

// SaveBatch saves several records in one transaction, used for reordering and primary swaps
func (r *GormMediaRepository) SaveBatch(ctx context.Context, media []*catalog.ProductMedia) error {
	if len(media) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range media {
			if err := tx.Save(models.ProductMediaModelFromDomain(m)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the record permanently
func (r *GormMediaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductMediaModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ catalog.MediaRepository = (*GormMediaRepository)(nil)
