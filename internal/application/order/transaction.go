package order

import (
	"context"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
)

// TransactionalRepositories exposes repositories bound to one transaction
type TransactionalRepositories interface {
	Orders() order.Repository
	Stock() catalog.StockRepository
	Carts() cart.Repository
	Products() catalog.ProductRepository
}

// TransactionScope runs fn atomically. Any error returned by fn rolls back
// every write made through the provided repositories.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
