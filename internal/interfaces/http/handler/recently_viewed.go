package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// RecentlyViewedHandler serves the shopper's browsing history
type RecentlyViewedHandler struct {
	BaseHandler
	service *catalogapp.RecentlyViewedService
}

// NewRecentlyViewedHandler creates a new RecentlyViewedHandler
func NewRecentlyViewedHandler(service *catalogapp.RecentlyViewedService) *RecentlyViewedHandler {
	return &RecentlyViewedHandler{service: service}
}

// List godoc
// @Summary      Recently viewed products
// @Description  The session's history, newest first
// @Tags         recently-viewed
// @Produce      json
// @Param        X-Session-ID header string false "Guest session"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]catalogapp.RecentlyViewedResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /recently-viewed [get]
func (h *RecentlyViewedHandler) List(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), session, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(&h.BaseHandler, c, result)
}

// Remove godoc
// @Summary      Remove a product from the history
// @Tags         recently-viewed
// @Param        productId path string true "Product ID"
// @Success      204
// @Router       /recently-viewed/{productId} [delete]
func (h *RecentlyViewedHandler) Remove(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "productId")
	if !ok {
		return
	}

	if err := h.service.Remove(c.Request.Context(), session, productID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Clear godoc
// @Summary      Clear the history
// @Tags         recently-viewed
// @Success      204
// @Router       /recently-viewed [delete]
func (h *RecentlyViewedHandler) Clear(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	if err := h.service.Clear(c.Request.Context(), session); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AdminList lists the history entries of every shopper
func (h *RecentlyViewedHandler) AdminList(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	result, err := h.service.AdminList(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(&h.BaseHandler, c, result)
}

// AdminDelete deletes a single history entry
func (h *RecentlyViewedHandler) AdminDelete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.AdminDelete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *RecentlyViewedHandler) filter(c *gin.Context) (shared.Filter, bool) {
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return shared.Filter{}, false
	}
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	return filter, true
}
