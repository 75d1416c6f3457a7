package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/storefront/backend/internal/application/order"
)

// AdminOrderHandler handles order management for administrators
type AdminOrderHandler struct {
	BaseHandler
	orderService *orderapp.AdminOrderService
}

// NewAdminOrderHandler creates a new AdminOrderHandler
func NewAdminOrderHandler(orderService *orderapp.AdminOrderService) *AdminOrderHandler {
	return &AdminOrderHandler{orderService: orderService}
}

// List godoc
// @Summary      List orders (admin)
// @Tags         admin-orders
// @Produce      json
// @Param        status query string false "Order status"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]orderapp.OrderResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /admin/orders [get]
func (h *AdminOrderHandler) List(c *gin.Context) {
	var req orderapp.OrderListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	result, err := h.orderService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(&h.BaseHandler, c, result)
}

// Get shows any order with its after-sales requests
func (h *AdminOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.orderService.Get(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// UpdateStatus godoc
// @Summary      Move an order along its lifecycle
// @Description  Transitions outside the order state machine are rejected. Cancelling releases reserved stock.
// @Tags         admin-orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body orderapp.UpdateStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=orderapp.OrderResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/orders/{id}/status [put]
func (h *AdminOrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req orderapp.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	o, err := h.orderService.UpdateStatus(c.Request.Context(), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

// ApproveRequest approves a pending return or replacement
func (h *AdminOrderHandler) ApproveRequest(c *gin.Context) {
	h.decide(c, h.orderService.ApproveRequest)
}

// RejectRequest rejects a pending return or replacement
func (h *AdminOrderHandler) RejectRequest(c *gin.Context) {
	h.decide(c, h.orderService.RejectRequest)
}

// CompleteRequest closes an approved request. Completed returns restock the item.
func (h *AdminOrderHandler) CompleteRequest(c *gin.Context) {
	orderID, requestID, ok := h.requestIDs(c)
	if !ok {
		return
	}
	o, err := h.orderService.CompleteRequest(c.Request.Context(), orderID, requestID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

type decisionFunc func(ctx context.Context, orderID, requestID uuid.UUID, req orderapp.DecisionRequest) (*orderapp.OrderResponse, error)

func (h *AdminOrderHandler) decide(c *gin.Context, decide decisionFunc) {
	orderID, requestID, ok := h.requestIDs(c)
	if !ok {
		return
	}
	var req orderapp.DecisionRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	o, err := decide(c.Request.Context(), orderID, requestID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, o)
}

func (h *AdminOrderHandler) requestIDs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	requestID, ok := h.uuidParam(c, "requestId")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return orderID, requestID, true
}
