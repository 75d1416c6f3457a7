package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements cart.Repository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	})
}

// FindBySession returns the session owner's cart
func (r *GormCartRepository) FindBySession(ctx context.Context, session shared.Session) (*cart.Cart, error) {
	query := r.withItems(ctx)
	switch {
	case session.IsAuthenticated():
		query = query.Where("user_id = ?", session.UserID())
	case session.IsGuest():
		query = query.Where("user_id IS NULL AND session_id = ?", session.SessionID())
	default:
		return nil, shared.ErrNotFound
	}
	var model models.CartModel
	if err := query.Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds a cart with its items
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	var model models.CartModel
	if err := r.withItems(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func applyCartFilter(db *gorm.DB, filter shared.Filter) *gorm.DB {
	switch filter.Filters["owner"] {
	case "user":
		db = db.Where("user_id IS NOT NULL")
	case "guest":
		db = db.Where("user_id IS NULL")
	}
	return db
}

// FindAll lists carts of every owner with their items
func (r *GormCartRepository) FindAll(ctx context.Context, filter shared.Filter) ([]cart.Cart, error) {
	var rows []models.CartModel
	query := applyCartFilter(r.withItems(ctx), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, CartSortFields, "updated_at"))
	if err := paginate(query, filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	carts := make([]cart.Cart, len(rows))
	for i := range rows {
		carts[i] = *rows[i].ToDomain()
	}
	return carts, nil
}

// Count counts carts of every owner
func (r *GormCartRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := applyCartFilter(r.db.WithContext(ctx).Model(&models.CartModel{}), filter).Count(&count).Error
	return count, err
}

// Save creates or updates a cart; the stored item set is replaced by cart.Items
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	model := models.CartModelFromDomain(c)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		keep := make([]uuid.UUID, 0, len(model.Items))
		for _, item := range model.Items {
			keep = append(keep, item.ID)
		}
		stale := tx.Where("cart_id = ?", model.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := stale.Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model.Items).Error
	})
}

// Delete deletes a cart and its items
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.CartModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// DeleteStaleGuest deletes guest carts not updated since before
func (r *GormCartRepository) DeleteStaleGuest(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.CartModel{}).Select("id").Where("user_id IS NULL AND updated_at < ?", before)
		if err := tx.Where("cart_id IN (?)", stale).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("user_id IS NULL AND updated_at < ?", before).Delete(&models.CartModel{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

var _ cart.Repository = (*GormCartRepository)(nil)
