package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultRecentlyViewedLimit is how many entries are kept per owner when not configured
const DefaultRecentlyViewedLimit = 20

// RecentlyViewed records that a user or guest looked at a product.
// There is one entry per owner and product; viewing again moves it to the front.
type RecentlyViewed struct {
	shared.BaseEntity
	UserID    *uuid.UUID
	SessionID string
	ProductID uuid.UUID
	ViewedAt  time.Time
}

// NewRecentlyViewed creates an entry for the session owner
func NewRecentlyViewed(session shared.Session, productID uuid.UUID) (*RecentlyViewed, error) {
	if session.IsZero() {
		return nil, shared.NewDomainError("SESSION_REQUIRED", "A user or guest session is required")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID cannot be empty")
	}

	rv := &RecentlyViewed{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		ViewedAt:   time.Now(),
	}
	if session.IsAuthenticated() {
		uid := session.UserID()
		rv.UserID = &uid
	} else {
		rv.SessionID = session.SessionID()
	}
	return rv, nil
}

// OwnedBy reports whether the entry belongs to the session
func (r *RecentlyViewed) OwnedBy(session shared.Session) bool {
	if session.IsAuthenticated() {
		return r.UserID != nil && *r.UserID == session.UserID()
	}
	return session.IsGuest() && r.UserID == nil && r.SessionID == session.SessionID()
}

// RecentlyViewedRepository persists recently viewed entries
type RecentlyViewedRepository interface {
	// Record inserts the entry or bumps ViewedAt of the existing one for the same owner and product
	Record(ctx context.Context, entry *RecentlyViewed) error

	// Prune keeps only the newest keep entries of the owner
	Prune(ctx context.Context, session shared.Session, keep int) error

	// FindBySession lists the owner's entries, newest first
	FindBySession(ctx context.Context, session shared.Session, filter shared.Filter) ([]RecentlyViewed, error)

	// CountBySession counts the owner's entries
	CountBySession(ctx context.Context, session shared.Session) (int64, error)

	// Remove deletes the owner's entry for one product
	Remove(ctx context.Context, session shared.Session, productID uuid.UUID) error

	// Clear deletes all of the owner's entries
	Clear(ctx context.Context, session shared.Session) error

	// MergeGuest moves guest entries to the user, keeping the newest view per product
	MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error

	// FindAll lists entries of every owner
	FindAll(ctx context.Context, filter shared.Filter) ([]RecentlyViewed, error)

	// Count counts entries of every owner
	Count(ctx context.Context) (int64, error)

	// DeleteByID deletes one entry
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// DeleteViewedBefore deletes entries of every owner last viewed before the cutoff
	DeleteViewedBefore(ctx context.Context, before time.Time) (int64, error)
}
