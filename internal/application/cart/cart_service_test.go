package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected a domain error, got %v", err)
	return de.Code
}

// newProduct returns an approved product priced 100 with MRP 120
func newProduct(t *testing.T, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Cotton Tee", "", decimal.NewFromInt(100))
	require.NoError(t, err)
	mrp := decimal.NewFromInt(120)
	require.NoError(t, p.SetPricing(decimal.NewFromInt(100), &mrp, decimal.Zero))
	require.NoError(t, p.SetStock(stock))
	require.NoError(t, p.Approve())
	p.PopDomainEvents()
	return p
}

type fixture struct {
	carts    *MockCartRepository
	products *MockProductRepository
	svc      *CartService
	guest    shared.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	guest, err := shared.Guest("guest-7f3a")
	require.NoError(t, err)
	f := &fixture{
		carts:    new(MockCartRepository),
		products: new(MockProductRepository),
		guest:    guest,
	}
	f.svc = NewCartService(f.carts, f.products, &txScope{carts: f.carts, products: f.products}, ServiceConfig{}, nil)
	return f
}

func (f *fixture) withProduct(p *catalog.Product) {
	f.products.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]catalog.Product{*p}, nil)
}

func TestCartService_GetWithoutCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.carts.On("FindBySession", ctx, f.guest).Return(nil, shared.ErrNotFound)

	resp, err := f.svc.Get(ctx, f.guest)
	require.NoError(t, err)
	assert.Nil(t, resp.ID)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Total.IsZero())

	_, err = f.svc.Get(ctx, shared.Session{})
	require.Error(t, err)
	assert.Equal(t, "SESSION_REQUIRED", domainCode(t, err))
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("creates guest cart and prices it", func(t *testing.T) {
		f := newFixture(t)
		p := newProduct(t, 10)
		f.withProduct(p)
		f.carts.On("FindBySession", mock.Anything, f.guest).Return(nil, shared.ErrNotFound)
		var saved *cart.Cart
		f.carts.On("Save", mock.Anything, mock.AnythingOfType("*cart.Cart")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*cart.Cart) }).
			Return(nil)

		resp, err := f.svc.AddItem(ctx, f.guest, AddItemRequest{ProductID: p.ID, Quantity: 2})
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, "guest-7f3a", saved.SessionID)
		assert.Nil(t, saved.UserID)

		require.Len(t, resp.Items, 1)
		assert.Equal(t, "Cotton Tee", resp.Items[0].ProductName)
		assert.True(t, resp.Items[0].Subtotal.Equal(decimal.NewFromInt(200)))
		assert.True(t, resp.Total.Equal(decimal.NewFromInt(200)))
		assert.True(t, resp.MRPTotal.Equal(decimal.NewFromInt(240)))
		assert.True(t, resp.Savings.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, 2, resp.TotalUnits)
	})

	t.Run("quantity above stock leaves cart unchanged", func(t *testing.T) {
		f := newFixture(t)
		p := newProduct(t, 3)
		f.withProduct(p)
		existing, err := cart.NewCart(f.guest)
		require.NoError(t, err)
		f.carts.On("FindBySession", mock.Anything, f.guest).Return(existing, nil)

		_, err = f.svc.AddItem(ctx, f.guest, AddItemRequest{ProductID: p.ID, Quantity: 5})
		require.Error(t, err)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainCode(t, err))
		assert.True(t, existing.IsEmpty())
		f.carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.carts.On("FindBySession", mock.Anything, f.guest).Return(nil, shared.ErrNotFound)
		f.products.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := f.svc.AddItem(ctx, f.guest, AddItemRequest{ProductID: id, Quantity: 1})
		require.Error(t, err)
		assert.Equal(t, "PRODUCT_NOT_FOUND", domainCode(t, err))
	})
}

func TestCartService_UpdateAndDecrement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := newProduct(t, 10)
	f.withProduct(p)

	c, err := cart.NewCart(f.guest)
	require.NoError(t, err)
	item, err := c.AddItem(p, nil, 3, 10)
	require.NoError(t, err)
	itemID := item.ID
	f.carts.On("FindBySession", ctx, f.guest).Return(c, nil)
	f.carts.On("Save", ctx, c).Return(nil)

	resp, err := f.svc.UpdateItem(ctx, f.guest, itemID, UpdateItemRequest{Quantity: 0})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Items[0].Quantity)

	resp, err = f.svc.DecrementItem(ctx, f.guest, itemID)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	_, err = f.svc.RemoveItem(ctx, f.guest, itemID)
	require.Error(t, err)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", domainCode(t, err))
}

func TestCartService_Clear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.carts.On("FindBySession", ctx, f.guest).Return(nil, shared.ErrNotFound)

	require.NoError(t, f.svc.Clear(ctx, f.guest))
	f.carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartService_MergeGuest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := newProduct(t, 20)
	f.products.On("FindByIDs", ctx, []uuid.UUID{p.ID}).Return([]catalog.Product{*p}, nil)

	guestCart, err := cart.NewCart(f.guest)
	require.NoError(t, err)
	_, err = guestCart.AddItem(p, nil, 4, 10)
	require.NoError(t, err)

	userID := uuid.New()
	userCart, err := cart.NewCart(shared.Authenticated(userID))
	require.NoError(t, err)
	_, err = userCart.AddItem(p, nil, 8, 10)
	require.NoError(t, err)

	f.carts.On("FindBySession", ctx, f.guest).Return(guestCart, nil)
	f.carts.On("FindBySession", ctx, shared.Authenticated(userID)).Return(userCart, nil)
	f.carts.On("Save", ctx, userCart).Return(nil)
	f.carts.On("Delete", ctx, guestCart.ID).Return(nil)

	merged, err := f.svc.MergeGuest(ctx, "guest-7f3a", userID)
	require.NoError(t, err)
	assert.Equal(t, 1, merged)
	require.Len(t, userCart.Items, 1)
	assert.Equal(t, DefaultMaxQuantityPerItem, userCart.Items[0].Quantity)
	f.carts.AssertCalled(t, "Delete", ctx, guestCart.ID)

	t.Run("no guest session", func(t *testing.T) {
		merged, err := f.svc.MergeGuest(ctx, "", userID)
		require.NoError(t, err)
		assert.Zero(t, merged)
	})
}

func TestCartService_AdminGetNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := uuid.New()
	f.carts.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

	_, err := f.svc.AdminGet(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
