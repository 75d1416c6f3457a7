package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RecentlyViewedService tracks the products a user or guest looked at
type RecentlyViewedService struct {
	repo        catalog.RecentlyViewedRepository
	productRepo catalog.ProductRepository
	limit       int
	logger      *zap.Logger
}

// NewRecentlyViewedService creates a new RecentlyViewedService.
// limit caps the entries kept per owner; values below 1 use the default.
func NewRecentlyViewedService(
	repo catalog.RecentlyViewedRepository,
	productRepo catalog.ProductRepository,
	limit int,
	logger *zap.Logger,
) *RecentlyViewedService {
	if limit < 1 {
		limit = catalog.DefaultRecentlyViewedLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecentlyViewedService{
		repo:        repo,
		productRepo: productRepo,
		limit:       limit,
		logger:      logger,
	}
}

// Record moves the product to the front of the owner's list and drops the oldest entries over the cap
func (s *RecentlyViewedService) Record(ctx context.Context, session shared.Session, productID uuid.UUID) error {
	entry, err := catalog.NewRecentlyViewed(session, productID)
	if err != nil {
		return err
	}
	if err := s.repo.Record(ctx, entry); err != nil {
		return err
	}
	return s.repo.Prune(ctx, session, s.limit)
}

// List returns the owner's entries newest first, with product details.
// Products that were deleted or unapproved since the view are left out of the details.
func (s *RecentlyViewedService) List(ctx context.Context, session shared.Session, filter shared.Filter) (shared.Paginated[RecentlyViewedResponse], error) {
	if session.IsZero() {
		return shared.Paginated[RecentlyViewedResponse]{}, shared.NewDomainError("SESSION_REQUIRED", "A user or guest session is required")
	}
	filter = s.clamp(filter)

	entries, err := s.repo.FindBySession(ctx, session, filter)
	if err != nil {
		return shared.Paginated[RecentlyViewedResponse]{}, err
	}
	total, err := s.repo.CountBySession(ctx, session)
	if err != nil {
		return shared.Paginated[RecentlyViewedResponse]{}, err
	}

	products, err := s.products(ctx, entries)
	if err != nil {
		return shared.Paginated[RecentlyViewedResponse]{}, err
	}

	items := make([]RecentlyViewedResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		item := RecentlyViewedResponse{ID: e.ID, ProductID: e.ProductID, ViewedAt: e.ViewedAt}
		if p, ok := products[e.ProductID]; ok && p.IsPurchasable() {
			resp := ToProductResponse(p)
			item.Product = &resp
		}
		items = append(items, item)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func (s *RecentlyViewedService) products(ctx context.Context, entries []catalog.RecentlyViewed) (map[uuid.UUID]*catalog.Product, error) {
	result := make(map[uuid.UUID]*catalog.Product, len(entries))
	if len(entries) == 0 {
		return result, nil
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for i := range entries {
		ids = append(ids, entries[i].ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

// Remove deletes one product from the owner's list
func (s *RecentlyViewedService) Remove(ctx context.Context, session shared.Session, productID uuid.UUID) error {
	if session.IsZero() {
		return shared.NewDomainError("SESSION_REQUIRED", "A user or guest session is required")
	}
	return s.repo.Remove(ctx, session, productID)
}

// Clear empties the owner's list
func (s *RecentlyViewedService) Clear(ctx context.Context, session shared.Session) error {
	if session.IsZero() {
		return shared.NewDomainError("SESSION_REQUIRED", "A user or guest session is required")
	}
	return s.repo.Clear(ctx, session)
}

// MergeGuest moves a guest's history to the user who just logged in
func (s *RecentlyViewedService) MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if sessionID == "" {
		return nil
	}
	if err := s.repo.MergeGuest(ctx, sessionID, userID); err != nil {
		return err
	}
	return s.repo.Prune(ctx, shared.Authenticated(userID), s.limit)
}

// AdminList lists entries of every owner
func (s *RecentlyViewedService) AdminList(ctx context.Context, filter shared.Filter) (shared.Paginated[AdminRecentlyViewedResponse], error) {
	filter = s.clamp(filter)
	entries, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[AdminRecentlyViewedResponse]{}, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return shared.Paginated[AdminRecentlyViewedResponse]{}, err
	}

	items := make([]AdminRecentlyViewedResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		items = append(items, AdminRecentlyViewedResponse{
			RecentlyViewedResponse: RecentlyViewedResponse{ID: e.ID, ProductID: e.ProductID, ViewedAt: e.ViewedAt},
			UserID:                 e.UserID,
			SessionID:              e.SessionID,
		})
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// AdminDelete deletes a single entry
func (s *RecentlyViewedService) AdminDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Recently viewed entry not found")
		}
		return err
	}
	return nil
}

func (s *RecentlyViewedService) clamp(filter shared.Filter) shared.Filter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = s.limit
	}
	return filter
}
