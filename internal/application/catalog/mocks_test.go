package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Search(ctx context.Context, search catalog.ProductSearch) ([]catalog.Product, error) {
	args := m.Called(ctx, search)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) CountSearch(ctx context.Context, search catalog.ProductSearch) (int64, error) {
	args := m.Called(ctx, search)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCategoryRepository is a mock implementation of catalog.CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindAll(ctx context.Context, activeOnly bool) ([]catalog.Category, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) Save(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryRepository) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

// MockMediaRepository is a mock implementation of catalog.MediaRepository
type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ProductMedia, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductMedia), args.Error(1)
}

func (m *MockMediaRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.ProductMedia, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]catalog.ProductMedia), args.Error(1)
}

func (m *MockMediaRepository) FindActiveByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]catalog.ProductMedia, error) {
	args := m.Called(ctx, productIDs)
	return args.Get(0).(map[uuid.UUID][]catalog.ProductMedia), args.Error(1)
}

func (m *MockMediaRepository) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMediaRepository) Save(ctx context.Context, media *catalog.ProductMedia) error {
	args := m.Called(ctx, media)
	return args.Error(0)
}

func (m *MockMediaRepository) SaveBatch(ctx context.Context, media []*catalog.ProductMedia) error {
	args := m.Called(ctx, media)
	return args.Error(0)
}

func (m *MockMediaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRecentlyViewedRepository is a mock implementation of catalog.RecentlyViewedRepository
type MockRecentlyViewedRepository struct {
	mock.Mock
}

func (m *MockRecentlyViewedRepository) Record(ctx context.Context, entry *catalog.RecentlyViewed) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRecentlyViewedRepository) Prune(ctx context.Context, session shared.Session, keep int) error {
	args := m.Called(ctx, session, keep)
	return args.Error(0)
}

func (m *MockRecentlyViewedRepository) FindBySession(ctx context.Context, session shared.Session, filter shared.Filter) ([]catalog.RecentlyViewed, error) {
	args := m.Called(ctx, session, filter)
	return args.Get(0).([]catalog.RecentlyViewed), args.Error(1)
}

func (m *MockRecentlyViewedRepository) CountBySession(ctx context.Context, session shared.Session) (int64, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecentlyViewedRepository) Remove(ctx context.Context, session shared.Session, productID uuid.UUID) error {
	args := m.Called(ctx, session, productID)
	return args.Error(0)
}

func (m *MockRecentlyViewedRepository) Clear(ctx context.Context, session shared.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRecentlyViewedRepository) MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *MockRecentlyViewedRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.RecentlyViewed, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.RecentlyViewed), args.Error(1)
}

func (m *MockRecentlyViewedRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecentlyViewedRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecentlyViewedRepository) DeleteViewedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockObjectStorage is a mock implementation of ObjectStorageService
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

// capturePublisher records published events
type capturePublisher struct {
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}
