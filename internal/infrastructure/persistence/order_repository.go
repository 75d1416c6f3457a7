package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withChildren(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Requests", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") })
}

// FindByID finds an order with items and after-sales requests
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	if err := r.withChildren(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds an order by its number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, number string) (*order.Order, error) {
	var model models.OrderModel
	if err := r.withChildren(ctx).First(&model, "order_number = ?", number).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func applyOrderFilter(db *gorm.DB, filter order.ListFilter) *gorm.DB {
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		db = db.Where("LOWER(order_number) LIKE ? ESCAPE '\\'", likePattern(filter.Search))
	}
	return db
}

// FindAll lists orders matching the filter, newest first by default
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	var rows []models.OrderModel
	query := applyOrderFilter(r.withChildren(ctx).Model(&models.OrderModel{}), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at")).
		Order("id DESC")
	if err := paginate(query, filter.Filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter order.ListFilter) (int64, error) {
	var count int64
	err := applyOrderFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).Count(&count).Error
	return count, err
}

// Save creates or updates an order with its items and requests
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return duplicate(err)
		}
		return r.saveChildren(tx, model)
	})
}

// saveChildren upserts lines and requests. Order lines are immutable after checkout,
// so existing rows are left untouched.
func (r *GormOrderRepository) saveChildren(tx *gorm.DB, model *models.OrderModel) error {
	if len(model.Items) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Items).Error; err != nil {
			return err
		}
	}
	if len(model.Requests) > 0 {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model.Requests).Error; err != nil {
			return err
		}
	}
	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.OrderModel
		if err := tx.Select("id", "version").Take(&stored, "id = ?", o.ID).Error; err != nil {
			return notFound(err)
		}
		if stored.Version != o.Version {
			return shared.ErrConcurrencyConflict
		}

		expected := o.Version
		model := models.OrderModelFromDomain(o)
		model.Version = expected + 1
		model.UpdatedAt = time.Now()

		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, expected).
			Updates(map[string]any{
				"status":        model.Status,
				"cancel_reason": model.CancelReason,
				"cancelled_by":  model.CancelledBy,
				"confirmed_at":  model.ConfirmedAt,
				"shipped_at":    model.ShippedAt,
				"delivered_at":  model.DeliveredAt,
				"cancelled_at":  model.CancelledAt,
				"notes":         model.Notes,
				"version":       model.Version,
				"updated_at":    model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		if err := r.saveChildren(tx, model); err != nil {
			return err
		}

		o.Version = model.Version
		o.UpdatedAt = model.UpdatedAt
		return nil
	})
}

// ExistsByOrderNumber checks whether an order number is taken
func (r *GormOrderRepository) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountOpenByUser counts orders of a user that are not in a terminal state
func (r *GormOrderRepository) CountOpenByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	terminal := make([]order.Status, 0)
	for _, s := range order.StatusValues() {
		if s.IsTerminal() {
			terminal = append(terminal, s)
		}
	}
	var count int64
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("user_id = ?", userID)
	if len(terminal) > 0 {
		query = query.Where("status NOT IN ?", terminal)
	}
	err := query.Count(&count).Error
	return count, err
}

var _ order.Repository = (*GormOrderRepository)(nil)
