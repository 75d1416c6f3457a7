package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Checkout outcomes reported to StoreMetrics.RecordCheckout
const (
	checkoutPlaced   = "placed"
	checkoutReplayed = "replayed"
	checkoutFailed   = "failed"
)

// orderNumberAttempts bounds the retries when a generated number collides
const orderNumberAttempts = 5

// DefaultIdempotencyTTL is how long a checkout idempotency key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// ServiceConfig holds order service settings
type ServiceConfig struct {
	IdempotencyTTL time.Duration
}

// OrderService handles checkout and the customer's own orders
type OrderService struct {
	orderRepo   order.Repository
	txScope     TransactionScope
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	metrics     *telemetry.StoreMetrics
	config      ServiceConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderService creates a new OrderService. idempotency may be nil, in which
// case Idempotency-Key headers are ignored.
func NewOrderService(
	orderRepo order.Repository,
	txScope TransactionScope,
	idempotency shared.IdempotencyStore,
	publisher shared.EventPublisher,
	config ServiceConfig,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = DefaultIdempotencyTTL
	}
	return &OrderService{
		orderRepo:   orderRepo,
		txScope:     txScope,
		idempotency: idempotency,
		publisher:   publisher,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// SetStoreMetrics sets the metrics recorder for checkout latency
func (s *OrderService) SetStoreMetrics(m *telemetry.StoreMetrics) {
	s.metrics = m
}

// Checkout places an order from the user's cart. Stock is reserved and the cart
// cleared in the same transaction as the order insert. A non-empty
// idempotencyKey makes retries of the same request return the first order.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, idempotencyKey string, req CheckoutRequest) (*CheckoutResult, error) {
	start := s.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "checkout",
		telemetry.WithAttribute("user.id", userID.String()))
	defer span.End()

	result, outcome, err := s.checkout(ctx, userID, strings.TrimSpace(idempotencyKey), req)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	s.metrics.RecordCheckout(ctx, time.Since(start), outcome)
	return result, err
}

func (s *OrderService) checkout(ctx context.Context, userID uuid.UUID, idempotencyKey string, req CheckoutRequest) (*CheckoutResult, string, error) {
	if userID == uuid.Nil {
		return nil, checkoutFailed, shared.ErrUnauthorized
	}
	address, err := valueobject.NewShippingAddress(req.Address)
	if err != nil {
		return nil, checkoutFailed, shared.NewDomainError("INVALID_ADDRESS", err.Error())
	}
	method, paymentType, err := parsePayment(req.PaymentMethod, req.PaymentType)
	if err != nil {
		return nil, checkoutFailed, err
	}

	key, replay, err := s.claimKey(ctx, userID, idempotencyKey)
	if err != nil {
		return nil, checkoutFailed, err
	}
	if replay != nil {
		return replay, checkoutReplayed, nil
	}

	var placed *order.Order
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.Carts().FindBySession(ctx, shared.Authenticated(userID))
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("EMPTY_CART", "Your cart is empty")
		}
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return shared.NewDomainError("EMPTY_CART", "Your cart is empty")
		}

		products, err := repos.Products().FindByIDs(ctx, c.ProductIDs())
		if err != nil {
			return err
		}
		snapshots, err := snapshotCart(c, indexProducts(products))
		if err != nil {
			return err
		}

		number, err := s.nextOrderNumber(ctx, repos.Orders())
		if err != nil {
			return err
		}
		o, err := order.NewOrder(userID, number, address, method, paymentType, req.Notes, snapshots)
		if err != nil {
			return err
		}

		if err := repos.Stock().Reserve(ctx, o.StockLines()); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}

		c.Clear()
		if err := repos.Carts().Save(ctx, c); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		s.releaseKey(ctx, key)
		s.logger.Info("Checkout rejected", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, checkoutFailed, err
	}

	publishOrderEvents(ctx, s.publisher, s.logger, placed)
	s.completeKey(ctx, key, placed.ID)

	s.logger.Info("Order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("order_number", placed.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.String("total", placed.Total.StringFixed(2)),
	)
	return &CheckoutResult{Order: ToOrderResponse(placed)}, checkoutPlaced, nil
}

// claimKey acquires the idempotency key. It returns a replayed result when the key
// already completed and DUPLICATE_REQUEST while the first request is in flight.
// An unavailable store degrades to a checkout without deduplication.
func (s *OrderService) claimKey(ctx context.Context, userID uuid.UUID, idempotencyKey string) (string, *CheckoutResult, error) {
	if idempotencyKey == "" || s.idempotency == nil {
		return "", nil, nil
	}
	key := fmt.Sprintf("checkout:%s:%s", userID, idempotencyKey)

	stored, acquired, err := s.idempotency.Acquire(ctx, key, s.config.IdempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency store unavailable, checking out without deduplication",
			zap.String("key", key), zap.Error(err))
		return "", nil, nil
	}
	if acquired {
		return key, nil, nil
	}
	if stored == "" {
		return "", nil, shared.NewDomainError(shared.ErrDuplicateRequest.Code,
			"A checkout with this idempotency key is already in progress")
	}

	orderID, err := uuid.Parse(stored)
	if err != nil {
		return "", nil, fmt.Errorf("corrupt idempotency result for %s: %w", key, err)
	}
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return "", nil, err
	}
	if !o.IsOwnedBy(userID) {
		return "", nil, shared.ErrForbidden
	}
	return "", &CheckoutResult{Order: ToOrderResponse(o), Replayed: true}, nil
}

func (s *OrderService) completeKey(ctx context.Context, key string, orderID uuid.UUID) {
	if key == "" {
		return
	}
	if err := s.idempotency.Complete(ctx, key, orderID.String(), s.config.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency result", zap.String("key", key), zap.Error(err))
	}
}

func (s *OrderService) releaseKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *OrderService) nextOrderNumber(ctx context.Context, repo order.Repository) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		number := order.GenerateNumber(s.now())
		taken, err := repo.ExistsByOrderNumber(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", shared.NewDomainError("ORDER_NUMBER_UNAVAILABLE", "Could not allocate an order number, please retry")
}

// ListMine lists the user's orders, newest first
func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, req OrderListRequest) (shared.Paginated[OrderResponse], error) {
	req.UserID = &userID
	return listOrders(ctx, s.orderRepo, req)
}

// GetMine returns one of the user's orders. Orders of other users are reported as not found.
func (s *OrderService) GetMine(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.findOwned(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Cancel cancels the user's order and restores its reserved stock
func (s *OrderService) Cancel(ctx context.Context, userID, orderID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	var cancelled *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := s.findOwned(ctx, repos.Orders(), userID, orderID)
		if err != nil {
			return err
		}
		if err := o.Cancel(order.ActorCustomer, req.Reason); err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		if err := repos.Stock().Release(ctx, o.StockLines()); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishOrderEvents(ctx, s.publisher, s.logger, cancelled)
	s.logger.Info("Order cancelled by customer",
		zap.String("order_id", cancelled.ID.String()),
		zap.String("user_id", userID.String()),
	)
	resp := ToOrderResponse(cancelled)
	return &resp, nil
}

// RequestReturn opens a return request for one delivered item
func (s *OrderService) RequestReturn(ctx context.Context, userID, orderID, itemID uuid.UUID, req AfterSalesInput) (*OrderResponse, error) {
	return s.requestAfterSales(ctx, userID, orderID, itemID, order.RequestKindReturn, req.Reason)
}

// RequestReplacement opens a replacement request for one delivered item
func (s *OrderService) RequestReplacement(ctx context.Context, userID, orderID, itemID uuid.UUID, req AfterSalesInput) (*OrderResponse, error) {
	return s.requestAfterSales(ctx, userID, orderID, itemID, order.RequestKindReplacement, req.Reason)
}

func (s *OrderService) requestAfterSales(ctx context.Context, userID, orderID, itemID uuid.UUID, kind order.RequestKind, reason string) (*OrderResponse, error) {
	o, err := s.findOwned(ctx, s.orderRepo, userID, orderID)
	if err != nil {
		return nil, err
	}
	req, err := o.RequestAfterSales(itemID, kind, reason)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	publishOrderEvents(ctx, s.publisher, s.logger, o)
	s.logger.Info("After-sales request opened",
		zap.String("order_id", o.ID.String()),
		zap.String("request_id", req.ID.String()),
		zap.String("kind", string(kind)),
	)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// PaymentOptions lists payment methods and types with their labels
func (s *OrderService) PaymentOptions() PaymentOptionsResponse {
	return NewPaymentOptionsResponse()
}

func (s *OrderService) findOwned(ctx context.Context, repo order.Repository, userID, orderID uuid.UUID) (*order.Order, error) {
	o, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	if !o.IsOwnedBy(userID) {
		return nil, shared.WrapDomainError(shared.ErrNotFound.Code, "Order not found", shared.ErrNotFound)
	}
	return o, nil
}

// parsePayment resolves the requested method and type. Empty values are left
// for NewOrder to default.
func parsePayment(methodValue, typeValue string) (order.PaymentMethod, order.PaymentType, error) {
	var method order.PaymentMethod
	if methodValue != "" {
		m, ok := order.PaymentMethodFromValue(methodValue)
		if !ok {
			return "", "", shared.NewDomainError("INVALID_PAYMENT_METHOD",
				fmt.Sprintf("Unknown payment method %q", methodValue))
		}
		method = m
	}
	var paymentType order.PaymentType
	if typeValue != "" {
		t, ok := order.PaymentTypeFromValue(typeValue)
		if !ok {
			return "", "", shared.NewDomainError("INVALID_PAYMENT_TYPE",
				fmt.Sprintf("Unknown payment type %q", typeValue))
		}
		paymentType = t
	}
	return method, paymentType, nil
}

func indexProducts(products []catalog.Product) map[uuid.UUID]*catalog.Product {
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID
}

// snapshotCart freezes name, price, MRP, variation and replaceability of every
// cart line. The stock repository re-checks quantities when reserving.
func snapshotCart(c *cart.Cart, products map[uuid.UUID]*catalog.Product) ([]order.ItemSnapshot, error) {
	snapshots := make([]order.ItemSnapshot, 0, len(c.Items))
	for _, item := range c.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsPurchasable() {
			return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE",
				"A product in your cart is no longer available, please remove it and retry")
		}
		if err := product.EnsureAvailable(item.VariationID, item.Quantity); err != nil {
			return nil, err
		}
		unitPrice, err := product.UnitPrice(item.VariationID)
		if err != nil {
			return nil, err
		}
		unitMRP, err := product.UnitMRP(item.VariationID)
		if err != nil {
			return nil, err
		}
		label := ""
		if item.VariationID != nil {
			v, err := product.Variation(*item.VariationID)
			if err != nil {
				return nil, err
			}
			label = v.Label()
		}
		snapshots = append(snapshots, order.ItemSnapshot{
			ProductID:      product.ID,
			VariationID:    item.VariationID,
			ProductName:    product.Name,
			VariationLabel: label,
			UnitPrice:      unitPrice,
			UnitMRP:        unitMRP,
			Quantity:       item.Quantity,
			IsReplaceable:  product.IsReplaceable,
		})
	}
	return snapshots, nil
}

func listOrders(ctx context.Context, repo order.Repository, req OrderListRequest) (shared.Paginated[OrderResponse], error) {
	filter := order.ListFilter{Filter: shared.DefaultFilter(), UserID: req.UserID}
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
	filter.Search = strings.TrimSpace(req.Search)
	if req.Status != "" {
		status := order.Status(req.Status)
		if !status.IsValid() {
			return shared.Paginated[OrderResponse]{}, shared.NewDomainError("INVALID_STATUS",
				fmt.Sprintf("Unknown order status %q", req.Status))
		}
		filter.Status = status
	}

	orders, err := repo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	return shared.NewPaginated(ToOrderResponses(orders), total, filter.Page, filter.PageSize), nil
}

// publishOrderEvents publishes the order's pending events after the write committed.
// Failures are logged; the order is already persisted.
func publishOrderEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, o *order.Order) {
	events := o.PopDomainEvents()
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish order events",
			zap.String("order_id", o.ID.String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

func notFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.WrapDomainError(shared.ErrNotFound.Code, "Order not found", err)
	}
	return err
}
