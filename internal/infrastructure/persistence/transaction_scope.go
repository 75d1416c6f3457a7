package persistence

import (
	"context"

	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"gorm.io/gorm"
)

// GormTransactionScope runs a unit of work inside a GORM transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a transaction. The transaction is rolled back when fn
// returns an error and committed otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apporder.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Stock() catalog.StockRepository {
	return NewGormStockRepository(r.tx)
}

func (r *gormTransactionalRepositories) Carts() cart.Repository {
	return NewGormCartRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

var (
	_ apporder.TransactionScope          = (*GormTransactionScope)(nil)
	_ apporder.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
