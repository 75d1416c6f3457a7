package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRecentlyViewedRepository implements catalog.RecentlyViewedRepository using GORM
type GormRecentlyViewedRepository struct {
	db *gorm.DB
}

// NewGormRecentlyViewedRepository creates a new GormRecentlyViewedRepository
func NewGormRecentlyViewedRepository(db *gorm.DB) *GormRecentlyViewedRepository {
	return &GormRecentlyViewedRepository{db: db}
}

// owned scopes a query to the session owner; user entries never match a guest and vice versa
func owned(db *gorm.DB, session shared.Session) *gorm.DB {
	if session.IsAuthenticated() {
		return db.Where("user_id = ?", session.UserID())
	}
	return db.Where("user_id IS NULL AND session_id = ?", session.SessionID())
}

func ownerOf(entry *catalog.RecentlyViewed) shared.Session {
	if entry.UserID != nil {
		return shared.Authenticated(*entry.UserID)
	}
	s, _ := shared.Guest(entry.SessionID)
	return s
}

// Record inserts the entry or bumps ViewedAt of the existing one for the same owner and product
func (r *GormRecentlyViewedRepository) Record(ctx context.Context, entry *catalog.RecentlyViewed) error {
	session := ownerOf(entry)
	if session.IsZero() {
		return shared.NewDomainError("SESSION_REQUIRED", "A user or guest session is required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RecentlyViewedModel
		err := owned(tx, session).Where("product_id = ?", entry.ProductID).Take(&existing).Error
		switch {
		case err == nil:
			entry.ID = existing.ID
			entry.CreatedAt = existing.CreatedAt
			return tx.Model(&existing).Updates(map[string]any{
				"viewed_at":  entry.ViewedAt,
				"updated_at": entry.ViewedAt,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(models.RecentlyViewedModelFromDomain(entry)).Error
		default:
			return err
		}
	})
}

// Prune keeps only the newest keep entries of the owner
func (r *GormRecentlyViewedRepository) Prune(ctx context.Context, session shared.Session, keep int) error {
	if keep < 0 {
		keep = 0
	}
	var stale []uuid.UUID
	if err := owned(r.db.WithContext(ctx).Model(&models.RecentlyViewedModel{}), session).
		Order("viewed_at DESC").Order("id DESC").
		Offset(keep).Limit(1000).
		Pluck("id", &stale).Error; err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", stale).Delete(&models.RecentlyViewedModel{}).Error
}

// FindBySession lists the owner's entries, newest first
func (r *GormRecentlyViewedRepository) FindBySession(ctx context.Context, session shared.Session, filter shared.Filter) ([]catalog.RecentlyViewed, error) {
	var rows []models.RecentlyViewedModel
	query := owned(r.db.WithContext(ctx), session).Order("viewed_at DESC").Order("id DESC")
	if err := paginate(query, filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecentlyViewed(rows), nil
}

// CountBySession counts the owner's entries
func (r *GormRecentlyViewedRepository) CountBySession(ctx context.Context, session shared.Session) (int64, error) {
	var count int64
	err := owned(r.db.WithContext(ctx).Model(&models.RecentlyViewedModel{}), session).Count(&count).Error
	return count, err
}

// Remove deletes the owner's entry for one product
func (r *GormRecentlyViewedRepository) Remove(ctx context.Context, session shared.Session, productID uuid.UUID) error {
	result := owned(r.db.WithContext(ctx), session).Where("product_id = ?", productID).Delete(&models.RecentlyViewedModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Clear deletes all of the owner's entries
func (r *GormRecentlyViewedRepository) Clear(ctx context.Context, session shared.Session) error {
	return owned(r.db.WithContext(ctx), session).Delete(&models.RecentlyViewedModel{}).Error
}

// MergeGuest moves guest entries to the user, keeping the newest view per product
func (r *GormRecentlyViewedRepository) MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error {
	guest, err := shared.Guest(sessionID)
	if err != nil {
		return err
	}
	user := shared.Authenticated(userID)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var guestRows []models.RecentlyViewedModel
		if err := owned(tx, guest).Find(&guestRows).Error; err != nil {
			return err
		}
		for i := range guestRows {
			g := guestRows[i]
			var mine models.RecentlyViewedModel
			err := owned(tx, user).Where("product_id = ?", g.ProductID).Take(&mine).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil {
				if g.ViewedAt.After(mine.ViewedAt) {
					if err := tx.Model(&mine).Update("viewed_at", g.ViewedAt).Error; err != nil {
						return err
					}
				}
				if err := tx.Delete(&models.RecentlyViewedModel{}, "id = ?", g.ID).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&models.RecentlyViewedModel{}).Where("id = ?", g.ID).
				Updates(map[string]any{"user_id": userID, "session_id": ""}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindAll lists entries of every owner
func (r *GormRecentlyViewedRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.RecentlyViewed, error) {
	var rows []models.RecentlyViewedModel
	query := r.db.WithContext(ctx).Order(orderClause(filter.OrderBy, filter.OrderDir, RecentlyViewedSortFields, "viewed_at"))
	if err := paginate(query, filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecentlyViewed(rows), nil
}

// Count counts entries of every owner
func (r *GormRecentlyViewedRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RecentlyViewedModel{}).Count(&count).Error
	return count, err
}

// DeleteByID deletes one entry
func (r *GormRecentlyViewedRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.RecentlyViewedModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteViewedBefore deletes entries last viewed before the cutoff
func (r *GormRecentlyViewedRepository) DeleteViewedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("viewed_at < ?", before).Delete(&models.RecentlyViewedModel{})
	return result.RowsAffected, result.Error
}

func toRecentlyViewed(rows []models.RecentlyViewedModel) []catalog.RecentlyViewed {
	entries := make([]catalog.RecentlyViewed, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries
}

var _ catalog.RecentlyViewedRepository = (*GormRecentlyViewedRepository)(nil)
