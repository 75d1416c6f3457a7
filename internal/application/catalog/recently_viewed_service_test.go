package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecentlyViewedService_RecordPrunesToLimit(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRecentlyViewedRepository)
	svc := NewRecentlyViewedService(repo, new(MockProductRepository), 5, nil)

	session := shared.Authenticated(uuid.New())
	productID := uuid.New()
	repo.On("Record", ctx, mock.MatchedBy(func(e *catalog.RecentlyViewed) bool {
		return e.ProductID == productID && e.UserID != nil && *e.UserID == session.UserID()
	})).Return(nil)
	repo.On("Prune", ctx, session, 5).Return(nil)

	require.NoError(t, svc.Record(ctx, session, productID))
	repo.AssertExpectations(t)
}

func TestRecentlyViewedService_RecordRequiresSession(t *testing.T) {
	svc := NewRecentlyViewedService(new(MockRecentlyViewedRepository), new(MockProductRepository), 0, nil)
	err := svc.Record(context.Background(), shared.Session{}, uuid.New())
	require.Error(t, err)
	assert.Equal(t, "SESSION_REQUIRED", domainCode(t, err))
	assert.Equal(t, catalog.DefaultRecentlyViewedLimit, svc.limit)
}

func TestRecentlyViewedService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRecentlyViewedRepository)
	products := new(MockProductRepository)
	svc := NewRecentlyViewedService(repo, products, 20, nil)

	guest, err := shared.Guest("guest-42")
	require.NoError(t, err)

	live := newTestProduct(t, "Live", 10, true)
	hidden := newTestProduct(t, "Hidden", 10, false)
	now := time.Now()
	entries := []catalog.RecentlyViewed{
		{ProductID: live.ID, SessionID: "guest-42", ViewedAt: now},
		{ProductID: hidden.ID, SessionID: "guest-42", ViewedAt: now.Add(-time.Minute)},
	}
	filter := shared.Filter{Page: 1, PageSize: 20}
	repo.On("FindBySession", ctx, guest, filter).Return(entries, nil)
	repo.On("CountBySession", ctx, guest).Return(int64(2), nil)
	products.On("FindByIDs", ctx, []uuid.UUID{live.ID, hidden.ID}).Return([]catalog.Product{*live, *hidden}, nil)

	page, err := svc.List(ctx, guest, shared.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.Items[0].Product)
	assert.Equal(t, "Live", page.Items[0].Product.Name)
	assert.Nil(t, page.Items[1].Product)
	assert.Equal(t, int64(2), page.Total)
}

func TestRecentlyViewedService_MergeGuest(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRecentlyViewedRepository)
	svc := NewRecentlyViewedService(repo, new(MockProductRepository), 10, nil)

	userID := uuid.New()
	repo.On("MergeGuest", ctx, "guest-1", userID).Return(nil)
	repo.On("Prune", ctx, shared.Authenticated(userID), 10).Return(nil)

	require.NoError(t, svc.MergeGuest(ctx, "guest-1", userID))
	require.NoError(t, svc.MergeGuest(ctx, "", userID))
	repo.AssertNumberOfCalls(t, "MergeGuest", 1)
}

func TestRecentlyViewedService_AdminDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRecentlyViewedRepository)
	svc := NewRecentlyViewedService(repo, new(MockProductRepository), 10, nil)
	id := uuid.New()
	repo.On("DeleteByID", ctx, id).Return(shared.ErrNotFound)

	err := svc.AdminDelete(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
