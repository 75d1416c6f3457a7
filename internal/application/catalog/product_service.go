package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductCache caches rendered product responses.
// It is satisfied by the redis and in-memory JSON caches.
type ProductCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ViewRecorder records that the session looked at a product
type ViewRecorder interface {
	Record(ctx context.Context, session shared.Session, productID uuid.UUID) error
}

// MediaLister returns active media of products, with download URLs
type MediaLister interface {
	ActiveMedia(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]MediaResponse, error)
}

// ProductServiceOption configures optional collaborators of ProductService
type ProductServiceOption func(*ProductService)

// DefaultProductCacheTTL is used when WithProductCache gets a non-positive TTL
const DefaultProductCacheTTL = 5 * time.Minute

// WithProductCache enables caching of single product lookups
func WithProductCache(cache ProductCache, ttl time.Duration) ProductServiceOption {
	if ttl <= 0 {
		ttl = DefaultProductCacheTTL
	}
	return func(s *ProductService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithViewRecorder records recently viewed products on public lookups
func WithViewRecorder(recorder ViewRecorder) ProductServiceOption {
	return func(s *ProductService) {
		s.views = recorder
	}
}

// WithMediaLister attaches gallery media to product responses
func WithMediaLister(lister MediaLister) ProductServiceOption {
	return func(s *ProductService) {
		s.media = lister
	}
}

// ProductService handles product browsing and administration
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	publisher    shared.EventPublisher
	cache        ProductCache
	cacheTTL     time.Duration
	views        ViewRecorder
	media        MediaLister
	logger       *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...ProductServiceOption,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func productCacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

// Search lists approved products for the storefront
func (s *ProductService) Search(ctx context.Context, req ProductSearchRequest) (shared.Paginated[ProductResponse], error) {
	return s.search(ctx, req, true)
}

// AdminSearch lists products regardless of approval
func (s *ProductService) AdminSearch(ctx context.Context, req ProductSearchRequest) (shared.Paginated[ProductResponse], error) {
	return s.search(ctx, req, false)
}

func (s *ProductService) search(ctx context.Context, req ProductSearchRequest, approvedOnly bool) (shared.Paginated[ProductResponse], error) {
	filter := shared.DefaultFilter()
	filter.Search = strings.TrimSpace(req.Query)
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.SortBy != "" {
		filter.OrderBy = req.SortBy
	}
	if req.SortDir != "" {
		filter.OrderDir = req.SortDir
	}

	search := catalog.ProductSearch{
		Filter:       filter,
		MinPrice:     req.MinPrice,
		MaxPrice:     req.MaxPrice,
		InStockOnly:  req.InStockOnly,
		ApprovedOnly: approvedOnly,
	}

	if req.CategoryID != nil {
		ids, err := s.categoryWithDescendants(ctx, *req.CategoryID)
		if err != nil {
			return shared.Paginated[ProductResponse]{}, err
		}
		search.CategoryIDs = ids
	}

	products, err := s.productRepo.Search(ctx, search)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	total, err := s.productRepo.CountSearch(ctx, search)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	items := make([]ProductResponse, 0, len(products))
	ids := make([]uuid.UUID, 0, len(products))
	for i := range products {
		items = append(items, ToProductResponse(&products[i]))
		ids = append(ids, products[i].ID)
	}
	s.attachMedia(ctx, items, ids)

	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// categoryWithDescendants resolves a category filter to the category and everything below it
func (s *ProductService) categoryWithDescendants(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	categories, err := s.categoryRepo.FindAll(ctx, false)
	if err != nil {
		return nil, err
	}
	roots, err := catalog.BuildHierarchy(categories)
	if err != nil {
		return nil, err
	}
	node, err := catalog.FindNode(roots, categoryID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
	}
	return catalog.DescendantIDs(node)
}

// GetByID returns an approved product and records the view for the session.
// A zero session skips view tracking.
func (s *ProductService) GetByID(ctx context.Context, session shared.Session, id uuid.UUID) (*ProductResponse, error) {
	resp, err := s.cachedProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !resp.IsApproved {
		return nil, shared.NewDomainError("NOT_FOUND", "Product not found")
	}
	s.recordView(ctx, session, resp)
	return resp, nil
}

// GetBySlug returns an approved product by slug and records the view
func (s *ProductService) GetBySlug(ctx context.Context, session shared.Session, slug string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Product not found")
		}
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, shared.NewDomainError("NOT_FOUND", "Product not found")
	}
	resp := s.render(ctx, product)
	s.recordView(ctx, session, &resp)
	return &resp, nil
}

// AdminGetByID returns any product, approved or not
func (s *ProductService) AdminGetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.render(ctx, product)
	return &resp, nil
}

func (s *ProductService) cachedProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	if s.cache != nil {
		var cached ProductResponse
		hit, err := s.cache.Get(ctx, productCacheKey(id), &cached)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.String("product_id", id.String()), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.render(ctx, product)

	if s.cache != nil {
		if err := s.cache.Set(ctx, productCacheKey(id), resp, s.cacheTTL); err != nil {
			s.logger.Warn("Product cache write failed", zap.String("product_id", id.String()), zap.Error(err))
		}
	}
	return &resp, nil
}

func (s *ProductService) recordView(ctx context.Context, session shared.Session, resp *ProductResponse) {
	if session.IsZero() {
		return
	}
	if s.views != nil {
		if err := s.views.Record(ctx, session, resp.ID); err != nil {
			s.logger.Warn("Failed to record recently viewed product",
				zap.String("product_id", resp.ID.String()),
				zap.String("owner", session.OwnerKey()),
				zap.Error(err))
		}
	}

	viewed := &catalog.Product{Name: resp.Name, CategoryID: resp.CategoryID}
	viewed.ID = resp.ID
	s.publish(ctx, catalog.NewProductViewedEvent(viewed, session.IsGuest()))
}

// Create creates a new unapproved product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.Name, req.Description, req.Price)
	if err != nil {
		return nil, err
	}
	if req.Slug != "" {
		if err := product.SetSlug(req.Slug); err != nil {
			return nil, err
		}
	}
	if err := s.ensureSlugAvailable(ctx, product.Slug, nil); err != nil {
		return nil, err
	}

	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	product.SetCategory(req.CategoryID)
	product.SetReplaceable(req.IsReplaceable)

	if req.MRP != nil || req.DiscountPercent != nil {
		discount := decimal.Zero
		if req.DiscountPercent != nil {
			discount = *req.DiscountPercent
		}
		if err := product.SetPricing(req.Price, req.MRP, discount); err != nil {
			return nil, err
		}
	}

	for _, v := range req.Variations {
		if _, err := product.AddVariation(v.Size, v.Color, v.Stock, v.PriceOverride); err != nil {
			return nil, err
		}
	}
	if len(req.Variations) == 0 {
		if err := product.SetStock(req.Stock); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product.PopDomainEvents()...)

	resp := ToProductResponse(product)
	return &resp, nil
}

// Update applies a partial update to a product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil {
		name, description := product.Name, product.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := product.Update(name, description); err != nil {
			return nil, err
		}
	}

	if req.Slug != nil {
		if err := product.SetSlug(*req.Slug); err != nil {
			return nil, err
		}
		if err := s.ensureSlugAvailable(ctx, product.Slug, &product.ID); err != nil {
			return nil, err
		}
	}

	switch {
	case req.ClearCategory:
		product.SetCategory(nil)
	case req.CategoryID != nil:
		if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.SetCategory(req.CategoryID)
	}

	if req.Price != nil || req.MRP != nil || req.ClearMRP || req.DiscountPercent != nil {
		price := product.Price
		if req.Price != nil {
			price = *req.Price
		}
		var mrp *decimal.Decimal
		if product.MRP.Valid {
			current := product.MRP.Decimal
			mrp = &current
		}
		if req.ClearMRP {
			mrp = nil
		} else if req.MRP != nil {
			mrp = req.MRP
		}
		discount := product.DiscountPercent
		if req.DiscountPercent != nil {
			discount = *req.DiscountPercent
		}
		if err := product.SetPricing(price, mrp, discount); err != nil {
			return nil, err
		}
	}

	if req.Stock != nil {
		if err := product.SetStock(*req.Stock); err != nil {
			return nil, err
		}
	}
	if req.IsReplaceable != nil {
		product.SetReplaceable(*req.IsReplaceable)
	}

	return s.save(ctx, product)
}

// Delete deletes a product
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Approve makes a product visible in the storefront
func (s *ProductService) Approve(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, (*catalog.Product).Approve)
}

// Unapprove hides a product from the storefront
func (s *ProductService) Unapprove(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, (*catalog.Product).Unapprove)
}

// AddVariation adds a size/color variation
func (s *ProductService) AddVariation(ctx context.Context, id uuid.UUID, req VariationRequest) (*ProductResponse, error) {
	return s.mutate(ctx, id, func(p *catalog.Product) error {
		_, err := p.AddVariation(req.Size, req.Color, req.Stock, req.PriceOverride)
		return err
	})
}

// UpdateVariation changes a variation's stock and price override
func (s *ProductService) UpdateVariation(ctx context.Context, id, variationID uuid.UUID, req UpdateVariationRequest) (*ProductResponse, error) {
	return s.mutate(ctx, id, func(p *catalog.Product) error {
		return p.UpdateVariation(variationID, req.Stock, req.PriceOverride)
	})
}

// RemoveVariation removes a variation
func (s *ProductService) RemoveVariation(ctx context.Context, id, variationID uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, id, func(p *catalog.Product) error {
		return p.RemoveVariation(variationID)
	})
}

func (s *ProductService) mutate(ctx context.Context, id uuid.UUID, fn func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(product); err != nil {
		return nil, err
	}
	return s.save(ctx, product)
}

func (s *ProductService) save(ctx context.Context, product *catalog.Product) (*ProductResponse, error) {
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx, product.ID)
	s.publish(ctx, product.PopDomainEvents()...)

	resp := s.render(ctx, product)
	return &resp, nil
}

func (s *ProductService) find(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Product not found")
		}
		return nil, err
	}
	return product, nil
}

func (s *ProductService) render(ctx context.Context, product *catalog.Product) ProductResponse {
	resp := ToProductResponse(product)
	items := []ProductResponse{resp}
	s.attachMedia(ctx, items, []uuid.UUID{product.ID})
	return items[0]
}

func (s *ProductService) attachMedia(ctx context.Context, items []ProductResponse, ids []uuid.UUID) {
	if s.media == nil || len(ids) == 0 {
		return
	}
	media, err := s.media.ActiveMedia(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load product media", zap.Int("products", len(ids)), zap.Error(err))
		return
	}
	for i := range items {
		items[i].Media = media[items[i].ID]
	}
}

func (s *ProductService) ensureSlugAvailable(ctx context.Context, slug string, excludeID *uuid.UUID) error {
	exists, err := s.productRepo.ExistsBySlug(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Product slug %q is already in use", slug))
	}
	return nil
}

func (s *ProductService) ensureCategory(ctx context.Context, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return err
	}
	return nil
}

func (s *ProductService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, productCacheKey(id)); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.String("product_id", id.String()), zap.Error(err))
	}
}

// publish is best effort: the change is already committed
func (s *ProductService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish product events", zap.Int("events", len(events)), zap.Error(err))
	}
}
