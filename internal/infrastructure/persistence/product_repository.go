package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) withVariations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Variations", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

// FindByID finds a product with its variations
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withVariations(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindBySlug finds a product by its unique slug
func (r *GormProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.withVariations(ctx).First(&model, "slug = ?", slug).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple products; unknown IDs are skipped
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.withVariations(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

func (r *GormProductRepository) applySearch(db *gorm.DB, s catalog.ProductSearch) *gorm.DB {
	if s.Search != "" {
		pattern := likePattern(s.Search)
		db = db.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if len(s.CategoryIDs) > 0 {
		db = db.Where("category_id IN ?", s.CategoryIDs)
	}
	if s.MinPrice != nil {
		db = db.Where(finalPriceExpr+" >= ?", *s.MinPrice)
	}
	if s.MaxPrice != nil {
		db = db.Where(finalPriceExpr+" <= ?", *s.MaxPrice)
	}
	if s.InStockOnly {
		db = db.Where("total_quantity > 0")
	}
	if s.ApprovedOnly {
		db = db.Where("is_approved = ?", true)
	}
	return db
}

// Search lists products matching the search
func (r *GormProductRepository) Search(ctx context.Context, s catalog.ProductSearch) ([]catalog.Product, error) {
	var rows []models.ProductModel
	query := r.applySearch(r.withVariations(ctx).Model(&models.ProductModel{}), s)
	query = query.Order(orderClause(s.OrderBy, s.OrderDir, ProductSortFields, "created_at")).Order("id")
	if err := paginate(query, s.Filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// CountSearch counts products matching the search
func (r *GormProductRepository) CountSearch(ctx context.Context, s catalog.ProductSearch) (int64, error) {
	var count int64
	err := r.applySearch(r.db.WithContext(ctx).Model(&models.ProductModel{}), s).Count(&count).Error
	return count, err
}

// Save creates or updates a product and replaces its variation set.
// On update, stock columns are written only when they were set explicitly; other
// stock movement goes through GormStockRepository so a stale snapshot never
// overwrites a reservation made after it was loaded.
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.ProductModel{}).Where("id = ?", model.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
				return err
			}
			if len(model.Variations) == 0 {
				return nil
			}
			return tx.Create(&model.Variations).Error
		}

		columns := map[string]any{
			"name":             model.Name,
			"slug":             model.Slug,
			"description":      model.Description,
			"category_id":      model.CategoryID,
			"price":            model.Price,
			"mrp":              model.MRP,
			"discount_percent": model.DiscountPercent,
			"is_approved":      model.IsApproved,
			"is_replaceable":   model.IsReplaceable,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		}
		if product.StockChanged() && !product.HasVariations() {
			columns["total_quantity"] = model.TotalQuantity
		}
		if err := tx.Model(&models.ProductModel{}).Where("id = ?", model.ID).Updates(columns).Error; err != nil {
			return err
		}

		if err := saveVariations(tx, product, model); err != nil {
			return err
		}
		if !product.HasVariations() {
			return nil
		}
		return tx.Model(&models.ProductModel{}).Where("id = ?", model.ID).
			Update("total_quantity", gorm.Expr(
				"(SELECT COALESCE(SUM(stock_quantity), 0) FROM product_variations WHERE product_id = ?)", model.ID)).Error
	})
	if err != nil {
		return err
	}
	product.MarkStockPersisted()
	return nil
}

// saveVariations deletes removed variations and upserts the rest. Variations
// whose stock was not set keep the stored stock.
func saveVariations(tx *gorm.DB, product *catalog.Product, model *models.ProductModel) error {
	keep := make([]uuid.UUID, 0, len(model.Variations))
	stocked := make([]models.ProductVariationModel, 0)
	described := make([]models.ProductVariationModel, 0)
	for i := range model.Variations {
		keep = append(keep, model.Variations[i].ID)
		if product.Variations[i].StockChanged() {
			stocked = append(stocked, model.Variations[i])
		} else {
			described = append(described, model.Variations[i])
		}
	}

	stale := tx.Where("product_id = ?", model.ID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.ProductVariationModel{}).Error; err != nil {
		return err
	}

	byID := []clause.Column{{Name: "id"}}
	if len(stocked) > 0 {
		if err := tx.Clauses(clause.OnConflict{Columns: byID, UpdateAll: true}).Create(&stocked).Error; err != nil {
			return err
		}
	}
	if len(described) > 0 {
		return tx.Clauses(clause.OnConflict{
			Columns:   byID,
			DoUpdates: clause.AssignmentColumns([]string{"size", "color", "price_override", "updated_at"}),
		}).Create(&described).Error
	}
	return nil
}

// Delete deletes a product; variations go with it
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductVariationModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ProductModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ExistsBySlug checks whether a slug is taken, optionally ignoring one product
func (r *GormProductRepository) ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByCategory counts products in a category
func (r *GormProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

func toProducts(rows []models.ProductModel) []catalog.Product {
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products
}

// GormStockRepository adjusts stock with conditional UPDATEs so concurrent
// checkouts can never drive a quantity below zero.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// Reserve decrements stock for every line or none
func (r *GormStockRepository) Reserve(ctx context.Context, lines []catalog.StockReservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, line := range lines {
			if line.Quantity <= 0 {
				return shared.NewDomainError("INVALID_QUANTITY", "Reserved quantity must be positive")
			}
			if line.VariationID != nil {
				res := tx.Model(&models.ProductVariationModel{}).
					Where("id = ? AND product_id = ? AND stock_quantity >= ?", *line.VariationID, line.ProductID, line.Quantity).
					Updates(map[string]any{
						"stock_quantity": gorm.Expr("stock_quantity - ?", line.Quantity),
						"in_stock":       gorm.Expr("stock_quantity - ? > 0", line.Quantity),
						"updated_at":     now,
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return shared.ErrInsufficientStock
				}
			}
			res := tx.Model(&models.ProductModel{}).
				Where("id = ? AND total_quantity >= ?", line.ProductID, line.Quantity).
				Updates(map[string]any{
					"total_quantity": gorm.Expr("total_quantity - ?", line.Quantity),
					"updated_at":     now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return shared.ErrInsufficientStock
			}
		}
		return nil
	})
}

// Release increments stock for every line. Missing products are skipped.
func (r *GormStockRepository) Release(ctx context.Context, lines []catalog.StockReservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, line := range lines {
			if line.Quantity <= 0 {
				continue
			}
			if line.VariationID != nil {
				if err := tx.Model(&models.ProductVariationModel{}).
					Where("id = ? AND product_id = ?", *line.VariationID, line.ProductID).
					Updates(map[string]any{
						"stock_quantity": gorm.Expr("stock_quantity + ?", line.Quantity),
						"in_stock":       true,
						"updated_at":     now,
					}).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&models.ProductModel{}).
				Where("id = ?", line.ProductID).
				Updates(map[string]any{
					"total_quantity": gorm.Expr("total_quantity + ?", line.Quantity),
					"updated_at":     now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var (
	_ catalog.ProductRepository = (*GormProductRepository)(nil)
	_ catalog.StockRepository   = (*GormStockRepository)(nil)
)
