package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultMaxQuantityPerItem caps one cart line when no limit is configured
const DefaultMaxQuantityPerItem = 10

// ServiceConfig holds cart rules
type ServiceConfig struct {
	MaxQuantityPerItem int
}

// CartService manages the session owner's cart
type CartService struct {
	cartRepo    cart.Repository
	productRepo catalog.ProductRepository
	txScope     apporder.TransactionScope
	metrics     *telemetry.StoreMetrics
	maxPerItem  int
	logger      *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(
	cartRepo cart.Repository,
	productRepo catalog.ProductRepository,
	txScope apporder.TransactionScope,
	config ServiceConfig,
	logger *zap.Logger,
) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxQuantityPerItem <= 0 {
		config.MaxQuantityPerItem = DefaultMaxQuantityPerItem
	}
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		txScope:     txScope,
		maxPerItem:  config.MaxQuantityPerItem,
		logger:      logger,
	}
}

// SetStoreMetrics sets the metrics recorder for cart mutations
func (s *CartService) SetStoreMetrics(m *telemetry.StoreMetrics) {
	s.metrics = m
}

// Get returns the priced cart of the session. A session without a cart gets an empty one.
func (s *CartService) Get(ctx context.Context, session shared.Session) (*CartResponse, error) {
	if session.IsZero() {
		return nil, sessionRequired()
	}
	c, err := s.cartRepo.FindBySession(ctx, session)
	if errors.Is(err, shared.ErrNotFound) {
		resp := emptyCartResponse()
		return &resp, nil
	}
	if err != nil {
		return nil, err
	}
	return s.price(ctx, c)
}

// AddItem adds quantity units of a product; an existing line is increased
func (s *CartService) AddItem(ctx context.Context, session shared.Session, req AddItemRequest) (*CartResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "add_item",
		telemetry.WithAttribute("product.id", req.ProductID.String()))
	defer span.End()

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	c, err := s.loadOrCreate(ctx, session)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.WrapDomainError("PRODUCT_NOT_FOUND", "Product not found", err)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := c.AddItem(product, req.VariationID, quantity, s.maxPerItem); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordCartMutation(ctx, telemetry.CartOpAdd, session.IsGuest())
	s.logger.Debug("Cart item added",
		zap.String("owner", session.OwnerKey()),
		zap.String("product_id", req.ProductID.String()),
		zap.Int("quantity", quantity),
	)
	return s.price(ctx, c)
}

// UpdateItem sets the quantity of a line. Increases are checked against stock.
func (s *CartService) UpdateItem(ctx context.Context, session shared.Session, itemID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	c, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	item, err := c.Item(itemID)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.WrapDomainError("PRODUCT_NOT_FOUND", "Product not found", err)
		}
		return nil, err
	}
	if _, err := c.UpdateQuantity(itemID, req.Quantity, product, s.maxPerItem); err != nil {
		return nil, err
	}
	return s.save(ctx, session, c, telemetry.CartOpUpdate)
}

// DecrementItem removes one unit; the last unit removes the line
func (s *CartService) DecrementItem(ctx context.Context, session shared.Session, itemID uuid.UUID) (*CartResponse, error) {
	c, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if _, err := c.Decrement(itemID); err != nil {
		return nil, err
	}
	return s.save(ctx, session, c, telemetry.CartOpUpdate)
}

// RemoveItem drops a line from the cart
func (s *CartService) RemoveItem(ctx context.Context, session shared.Session, itemID uuid.UUID) (*CartResponse, error) {
	c, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(itemID); err != nil {
		return nil, err
	}
	return s.save(ctx, session, c, telemetry.CartOpRemove)
}

// Clear empties the cart. Clearing a session without a cart is a no-op.
func (s *CartService) Clear(ctx context.Context, session shared.Session) error {
	if session.IsZero() {
		return sessionRequired()
	}
	c, err := s.cartRepo.FindBySession(ctx, session)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	c.Clear()
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return err
	}
	s.metrics.RecordCartMutation(ctx, telemetry.CartOpClear, session.IsGuest())
	return nil
}

// MergeGuest moves the guest session's cart into the user's cart after sign-in.
// Quantities of matching lines are summed and capped by stock; the guest cart is
// deleted. It returns the number of merged lines.
func (s *CartService) MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) (int, error) {
	if sessionID == "" || userID == uuid.Nil {
		return 0, nil
	}
	guestSession, err := shared.Guest(sessionID)
	if err != nil {
		return 0, nil
	}

	merged := 0
	err = s.txScope.Execute(ctx, func(repos apporder.TransactionalRepositories) error {
		guest, err := repos.Carts().FindBySession(ctx, guestSession)
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		userSession := shared.Authenticated(userID)
		target, err := repos.Carts().FindBySession(ctx, userSession)
		if errors.Is(err, shared.ErrNotFound) {
			target, err = cart.NewCart(userSession)
		}
		if err != nil {
			return err
		}

		products, err := repos.Products().FindByIDs(ctx, guest.ProductIDs())
		if err != nil {
			return err
		}
		merged = target.Merge(guest, indexProducts(products), s.maxPerItem)
		if merged > 0 {
			if err := repos.Carts().Save(ctx, target); err != nil {
				return err
			}
		}
		return repos.Carts().Delete(ctx, guest.ID)
	})
	if err != nil {
		return 0, err
	}

	if merged > 0 {
		s.metrics.RecordCartMutation(ctx, telemetry.CartOpMerge, false)
		s.logger.Info("Guest cart merged",
			zap.String("user_id", userID.String()),
			zap.Int("lines", merged),
		)
	}
	return merged, nil
}

// AdminList lists carts of every owner
func (s *CartService) AdminList(ctx context.Context, req CartListRequest) (shared.Paginated[AdminCartResponse], error) {
	filter := shared.DefaultFilter()
	filter.OrderBy = "updated_at"
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}

	carts, err := s.cartRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[AdminCartResponse]{}, err
	}
	total, err := s.cartRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[AdminCartResponse]{}, err
	}

	ids := make([]uuid.UUID, 0)
	for i := range carts {
		ids = append(ids, carts[i].ProductIDs()...)
	}
	products, err := s.products(ctx, ids)
	if err != nil {
		return shared.Paginated[AdminCartResponse]{}, err
	}

	items := make([]AdminCartResponse, 0, len(carts))
	for i := range carts {
		priced, err := render(&carts[i], products)
		if err != nil {
			return shared.Paginated[AdminCartResponse]{}, err
		}
		items = append(items, toAdminCartResponse(&carts[i], priced))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// AdminGet returns any cart by ID
func (s *CartService) AdminGet(ctx context.Context, id uuid.UUID) (*AdminCartResponse, error) {
	c, err := s.cartRepo.FindByID(ctx, id)
	if err != nil {
		return nil, cartNotFound(err)
	}
	priced, err := s.price(ctx, c)
	if err != nil {
		return nil, err
	}
	resp := toAdminCartResponse(c, *priced)
	return &resp, nil
}

// AdminDelete deletes a cart and its items
func (s *CartService) AdminDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.cartRepo.Delete(ctx, id); err != nil {
		return cartNotFound(err)
	}
	s.logger.Info("Cart deleted by admin", zap.String("cart_id", id.String()))
	return nil
}

func (s *CartService) load(ctx context.Context, session shared.Session) (*cart.Cart, error) {
	if session.IsZero() {
		return nil, sessionRequired()
	}
	c, err := s.cartRepo.FindBySession(ctx, session)
	if err != nil {
		return nil, cartNotFound(err)
	}
	return c, nil
}

func (s *CartService) loadOrCreate(ctx context.Context, session shared.Session) (*cart.Cart, error) {
	if session.IsZero() {
		return nil, sessionRequired()
	}
	c, err := s.cartRepo.FindBySession(ctx, session)
	if errors.Is(err, shared.ErrNotFound) {
		return cart.NewCart(session)
	}
	return c, err
}

func (s *CartService) save(ctx context.Context, session shared.Session, c *cart.Cart, op string) (*CartResponse, error) {
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.RecordCartMutation(ctx, op, session.IsGuest())
	return s.price(ctx, c)
}

func (s *CartService) price(ctx context.Context, c *cart.Cart) (*CartResponse, error) {
	products, err := s.products(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	resp, err := render(c, products)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *CartService) products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*catalog.Product{}, nil
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return indexProducts(products), nil
}

func render(c *cart.Cart, products map[uuid.UUID]*catalog.Product) (CartResponse, error) {
	summary, err := c.Price(products)
	if err != nil {
		return CartResponse{}, err
	}
	return toCartResponse(c, summary, products), nil
}

func indexProducts(products []catalog.Product) map[uuid.UUID]*catalog.Product {
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID
}

func sessionRequired() error {
	return shared.NewDomainError("SESSION_REQUIRED", "A user or guest session is required")
}

func cartNotFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.WrapDomainError(shared.ErrNotFound.Code, "Cart not found", err)
	}
	return err
}
