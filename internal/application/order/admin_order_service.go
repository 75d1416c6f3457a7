package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AdminOrderService handles back-office order management
type AdminOrderService struct {
	orderRepo order.Repository
	txScope   TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewAdminOrderService creates a new AdminOrderService
func NewAdminOrderService(
	orderRepo order.Repository,
	txScope TransactionScope,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *AdminOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminOrderService{
		orderRepo: orderRepo,
		txScope:   txScope,
		publisher: publisher,
		logger:    logger,
	}
}

// List lists orders of every customer
func (s *AdminOrderService) List(ctx context.Context, req OrderListRequest) (shared.Paginated[OrderResponse], error) {
	return listOrders(ctx, s.orderRepo, req)
}

// Get returns any order by ID
func (s *AdminOrderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateStatus moves an order along its lifecycle. Cancelling restores the reserved stock.
func (s *AdminOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	target := order.Status(req.Status)
	if !target.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", req.Status))
	}

	var from order.Status
	updated, err := s.mutate(ctx, orderID, func(repos TransactionalRepositories, o *order.Order) error {
		from = o.Status
		if target == order.StatusCancelled {
			if err := o.Cancel(order.ActorAdmin, req.Reason); err != nil {
				return err
			}
			if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
				return err
			}
			return repos.Stock().Release(ctx, o.StockLines())
		}
		if err := o.TransitionTo(target, order.ActorAdmin, req.Reason); err != nil {
			return err
		}
		return repos.Orders().SaveWithLock(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	return updated, nil
}

// ApproveRequest approves a pending return or replacement request
func (s *AdminOrderService) ApproveRequest(ctx context.Context, orderID, requestID uuid.UUID, req DecisionRequest) (*OrderResponse, error) {
	return s.decide(ctx, orderID, requestID, "approved", func(o *order.Order) (*order.AfterSalesRequest, error) {
		return o.ApproveRequest(requestID, req.Note)
	})
}

// RejectRequest rejects a pending request. Rejecting the last open request moves
// the order back to delivered.
func (s *AdminOrderService) RejectRequest(ctx context.Context, orderID, requestID uuid.UUID, req DecisionRequest) (*OrderResponse, error) {
	return s.decide(ctx, orderID, requestID, "rejected", func(o *order.Order) (*order.AfterSalesRequest, error) {
		return o.RejectRequest(requestID, req.Note)
	})
}

// CompleteRequest completes an approved request. A completed return puts the
// item back in stock.
func (s *AdminOrderService) CompleteRequest(ctx context.Context, orderID, requestID uuid.UUID) (*OrderResponse, error) {
	return s.decide(ctx, orderID, requestID, "completed", func(o *order.Order) (*order.AfterSalesRequest, error) {
		return o.CompleteRequest(requestID)
	})
}

func (s *AdminOrderService) decide(
	ctx context.Context,
	orderID, requestID uuid.UUID,
	decision string,
	apply func(o *order.Order) (*order.AfterSalesRequest, error),
) (*OrderResponse, error) {
	updated, err := s.mutate(ctx, orderID, func(repos TransactionalRepositories, o *order.Order) error {
		r, err := apply(o)
		if err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		if line, ok := o.ReturnedStockLine(r); ok {
			return repos.Stock().Release(ctx, []catalog.StockReservation{line})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("After-sales request decided",
		zap.String("order_id", orderID.String()),
		zap.String("request_id", requestID.String()),
		zap.String("decision", decision),
		zap.String("order_status", updated.Status),
	)
	return updated, nil
}

// mutate loads the order inside a transaction, applies fn and publishes the
// resulting events once the transaction committed.
func (s *AdminOrderService) mutate(
	ctx context.Context,
	orderID uuid.UUID,
	fn func(repos TransactionalRepositories, o *order.Order) error,
) (*OrderResponse, error) {
	var changed *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return notFound(err)
		}
		if err := fn(repos, o); err != nil {
			return err
		}
		changed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishOrderEvents(ctx, s.publisher, s.logger, changed)
	resp := ToOrderResponse(changed)
	return &resp, nil
}
