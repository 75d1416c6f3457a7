package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// storefront wires the shopper-facing handlers over an in-memory sqlite database
type storefront struct {
	router   *gin.Engine
	jwt      *auth.JWTService
	products *catalogapp.ProductService
	users    *persistence.GormUserRepository
}

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	productRepo := persistence.NewGormProductRepository(db)
	categoryRepo := persistence.NewGormCategoryRepository(db)
	txScope := persistence.NewGormTransactionScope(db)
	idempotency := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idempotency.Close() })

	products := catalogapp.NewProductService(productRepo, categoryRepo, nil, nil)
	carts := cartapp.NewCartService(persistence.NewGormCartRepository(db), productRepo, txScope, cartapp.ServiceConfig{}, nil)
	orders := orderapp.NewOrderService(persistence.NewGormOrderRepository(db), txScope, idempotency, nil, orderapp.ServiceConfig{}, nil)

	s := &storefront{
		jwt:      auth.NewJWTService(testJWTConfig()),
		products: products,
		users:    persistence.NewGormUserRepository(db),
	}
	jwtCfg := middleware.JWTMiddlewareConfig{JWTService: s.jwt, TokenBlacklist: auth.NewInMemoryTokenBlacklist()}

	productHandler := NewProductHandler(products)
	cartHandler := NewCartHandler(carts)
	orderHandler := NewOrderHandler(orders)

	s.router = gin.New()
	api := s.router.Group("/api/v1")
	catalog := api.Group("/catalog", middleware.OptionalAuth(jwtCfg))
	catalog.GET("/products", productHandler.List)
	catalog.GET("/products/:id", productHandler.GetByID)

	cart := api.Group("/cart", middleware.OptionalAuth(jwtCfg))
	cart.GET("", cartHandler.Get)
	cart.DELETE("", cartHandler.Clear)
	cart.POST("/items", cartHandler.AddItem)
	cart.PUT("/items/:itemId", cartHandler.UpdateItem)
	cart.POST("/items/:itemId/decrement", cartHandler.DecrementItem)
	cart.DELETE("/items/:itemId", cartHandler.RemoveItem)

	api.GET("/orders/payment-options", orderHandler.PaymentOptions)
	orderGroup := api.Group("/orders", middleware.RequireAuth(jwtCfg))
	orderGroup.POST("", orderHandler.Checkout)
	orderGroup.GET("", orderHandler.List)
	orderGroup.GET("/:id", orderHandler.Get)
	orderGroup.POST("/:id/cancel", orderHandler.Cancel)
	return s
}

func (s *storefront) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *storefront) createProduct(t *testing.T, name string, price int64, stock int, approve bool) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	p, err := s.products.Create(ctx, catalogapp.CreateProductRequest{
		Name:  name,
		Price: decimal.NewFromInt(price),
		Stock: stock,
	})
	require.NoError(t, err)
	if approve {
		_, err = s.products.Approve(ctx, p.ID)
		require.NoError(t, err)
	}
	return p.ID
}

func (s *storefront) signIn(t *testing.T, email string) map[string]string {
	t.Helper()
	user, err := identity.NewUser("Shopper", email, testPassword)
	require.NoError(t, err)
	require.NoError(t, s.users.Create(context.Background(), user))

	pair, err := s.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID, Email: user.Email, Role: string(user.Role),
	})
	require.NoError(t, err)
	return bearer(pair.AccessToken)
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.True(t, resp.Success, w.Body.String())
	return resp.Data
}

func testAddress() valueobject.AddressDTO {
	return valueobject.AddressDTO{
		FullName:     "Asha Rao",
		Phone:        "+91 98765 43210",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		PostalCode:   "560001",
	}
}

func TestCatalog_HidesUnapprovedProducts(t *testing.T) {
	s := newStorefront(t)
	approved := s.createProduct(t, "Linen Shirt", 1200, 5, true)
	hidden := s.createProduct(t, "Draft Shirt", 900, 5, false)

	w := s.do(t, http.MethodGet, "/api/v1/catalog/products/"+approved.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, approved, decodeData[catalogapp.ProductResponse](t, w).ID)

	w = s.do(t, http.MethodGet, "/api/v1/catalog/products/"+hidden.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/catalog/products/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/catalog/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decodeData[[]catalogapp.ProductResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, approved, list[0].ID)
}

func TestCart_GuestSession(t *testing.T) {
	s := newStorefront(t)
	productID := s.createProduct(t, "Cotton Tee", 500, 3, true)
	guest := map[string]string{middleware.SessionHeader: "guest-cart-1"}

	t.Run("requires a session", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/cart", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ERR_SESSION_REQUIRED", errorCode(t, w))
	})

	t.Run("empty cart for a new guest", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/cart", nil, guest)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Empty(t, decodeData[cartapp.CartResponse](t, w).Items)
	})

	var itemID uuid.UUID
	t.Run("add merges quantities of the same product", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/cart/items", cartapp.AddItemRequest{ProductID: productID, Quantity: 1}, guest)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w = s.do(t, http.MethodPost, "/api/v1/cart/items", cartapp.AddItemRequest{ProductID: productID, Quantity: 1}, guest)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		c := decodeData[cartapp.CartResponse](t, w)
		require.Len(t, c.Items, 1)
		assert.Equal(t, 2, c.Items[0].Quantity)
		assert.True(t, decimal.NewFromInt(1000).Equal(c.Total))
		itemID = c.Items[0].ID
	})

	t.Run("adding beyond stock is rejected", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/cart/items", cartapp.AddItemRequest{ProductID: productID, Quantity: 2}, guest)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("carts are isolated per session", func(t *testing.T) {
		other := map[string]string{middleware.SessionHeader: "guest-cart-2"}
		w := s.do(t, http.MethodGet, "/api/v1/cart", nil, other)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decodeData[cartapp.CartResponse](t, w).Items)

		w = s.do(t, http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), nil, other)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("decrement removes one unit", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/cart/items/"+itemID.String()+"/decrement", nil, guest)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		c := decodeData[cartapp.CartResponse](t, w)
		require.Len(t, c.Items, 1)
		assert.Equal(t, 1, c.Items[0].Quantity)
	})

	t.Run("clear empties the cart", func(t *testing.T) {
		w := s.do(t, http.MethodDelete, "/api/v1/cart", nil, guest)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = s.do(t, http.MethodGet, "/api/v1/cart", nil, guest)
		assert.Empty(t, decodeData[cartapp.CartResponse](t, w).Items)
	})
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	s := newStorefront(t)
	productID := s.createProduct(t, "Denim Jacket", 2500, 4, true)
	headers := s.signIn(t, "buyer@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/cart/items", cartapp.AddItemRequest{ProductID: productID, Quantity: 2}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	checkout := orderapp.CheckoutRequest{Address: testAddress(), PaymentMethod: "UPI"}
	headers[IdempotencyKeyHeader] = "checkout-attempt-1"

	w = s.do(t, http.MethodPost, "/api/v1/orders", checkout, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decodeData[orderapp.OrderResponse](t, w)
	assert.Equal(t, "pending", placed.Status)
	assert.True(t, decimal.NewFromInt(5000).Equal(placed.Total))
	assert.Empty(t, w.Header().Get(IdempotentReplayedHeader))

	w = s.do(t, http.MethodPost, "/api/v1/orders", checkout, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "true", w.Header().Get(IdempotentReplayedHeader))
	assert.Equal(t, placed.ID, decodeData[orderapp.OrderResponse](t, w).ID)

	delete(headers, IdempotencyKeyHeader)

	w = s.do(t, http.MethodGet, "/api/v1/cart", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeData[cartapp.CartResponse](t, w).Items)

	w = s.do(t, http.MethodPost, "/api/v1/orders", checkout, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "a second checkout without a key sees the empty cart")
	assert.Equal(t, "EMPTY_CART", errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/v1/orders", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData[[]orderapp.OrderResponse](t, w), 1)

	w = s.do(t, http.MethodPost, "/api/v1/orders/"+placed.ID.String()+"/cancel", map[string]string{"reason": "Changed my mind"}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decodeData[orderapp.OrderResponse](t, w).Status)

	w = s.do(t, http.MethodGet, "/api/v1/catalog/products/"+productID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decodeData[catalogapp.ProductResponse](t, w).TotalQuantity, "cancelling releases reserved stock")
}

func TestOrders_RequireSignIn(t *testing.T) {
	s := newStorefront(t)

	w := s.do(t, http.MethodPost, "/api/v1/orders", orderapp.CheckoutRequest{Address: testAddress()},
		map[string]string{middleware.SessionHeader: "guest-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/orders/payment-options", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeData[orderapp.PaymentOptionsResponse](t, w).Methods)
}

func TestOrders_OtherUsersOrderIsNotFound(t *testing.T) {
	s := newStorefront(t)
	productID := s.createProduct(t, "Wool Scarf", 800, 2, true)
	owner := s.signIn(t, "owner@example.com")
	stranger := s.signIn(t, "stranger@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/cart/items", cartapp.AddItemRequest{ProductID: productID, Quantity: 1}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/v1/orders", orderapp.CheckoutRequest{Address: testAddress()}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decodeData[orderapp.OrderResponse](t, w)

	w = s.do(t, http.MethodGet, "/api/v1/orders/"+placed.ID.String(), nil, stranger)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/orders/"+placed.ID.String(), nil, owner)
	assert.Equal(t, http.StatusOK, w.Code)
}
