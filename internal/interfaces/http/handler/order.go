package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// Idempotency headers of checkout
const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength  = 255
)

// OrderHandler handles the customer's orders
type OrderHandler struct {
	BaseHandler
	orderService *orderapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Checkout godoc
// @Summary      Place an order
// @Description  Places an order from the signed-in user's cart. Retrying with the same Idempotency-Key returns the first order with the Idempotent-Replayed header.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client generated key, unique per checkout attempt"
// @Param        request body orderapp.CheckoutRequest true "Shipping address and payment"
// @Success      201 {object} dto.Response{data=orderapp.OrderResponse}
// @Success      200 {object} dto.Response{data=orderapp.OrderResponse} "Replayed"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Idempotency-Key is too long")
		return
	}
	var req orderapp.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.Checkout(c.Request.Context(), userID, key, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header(IdempotentReplayedHeader, "true")
		h.Success(c, result.Order)
		return
	}
	h.Created(c, result.Order)
}

// List godoc
// @Summary      List my orders
// @Tags         orders
// @Produce      json
// @Param        status query string false "Order status"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]orderapp.OrderResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	var req orderapp.OrderListRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.orderService.ListMine(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(&h.BaseHandler, c, result)
}

// Get godoc
// @Summary      Get my order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetMine(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// Cancel godoc
// @Summary      Cancel my order
// @Description  Only pending and confirmed orders can be cancelled. Reserved stock is released.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body orderapp.CancelOrderRequest false "Reason"
// @Success      200 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.CancelOrderRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	o, err := h.orderService.Cancel(c.Request.Context(), userID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// RequestReturn godoc
// @Summary      Request a return
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        itemId path string true "Order item ID"
// @Param        request body orderapp.AfterSalesInput true "Reason"
// @Success      201 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/items/{itemId}/return [post]
func (h *OrderHandler) RequestReturn(c *gin.Context) {
	h.afterSales(c, h.orderService.RequestReturn)
}

// RequestReplacement godoc
// @Summary      Request a replacement
// @Description  Only items marked replaceable qualify
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        itemId path string true "Order item ID"
// @Param        request body orderapp.AfterSalesInput true "Reason"
// @Success      201 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/items/{itemId}/replacement [post]
func (h *OrderHandler) RequestReplacement(c *gin.Context) {
	h.afterSales(c, h.orderService.RequestReplacement)
}

type afterSalesFunc func(ctx context.Context, userID, orderID, itemID uuid.UUID, req orderapp.AfterSalesInput) (*orderapp.OrderResponse, error)

func (h *OrderHandler) afterSales(c *gin.Context, request afterSalesFunc) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "itemId")
	if !ok {
		return
	}
	var req orderapp.AfterSalesInput
	if !h.bindJSON(c, &req) {
		return
	}

	o, err := request(c.Request.Context(), userID, orderID, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, o)
}

// PaymentOptions godoc
// @Summary      Payment options
// @Description  Accepted payment methods and types with display labels
// @Tags         orders
// @Produce      json
// @Success      200 {object} dto.Response{data=orderapp.PaymentOptionsResponse}
// @Router       /orders/payment-options [get]
func (h *OrderHandler) PaymentOptions(c *gin.Context) {
	h.Success(c, h.orderService.PaymentOptions())
}
