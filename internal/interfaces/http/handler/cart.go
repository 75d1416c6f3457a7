package handler

import (
	"github.com/gin-gonic/gin"
	cartapp "github.com/storefront/backend/internal/application/cart"
)

// CartHandler handles the shopping cart of guests and signed-in users
type CartHandler struct {
	BaseHandler
	cartService *cartapp.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *cartapp.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// Get godoc
// @Summary      Get cart
// @Description  The session's cart with live prices, MRP totals and savings
// @Tags         cart
// @Produce      json
// @Param        X-Session-ID header string false "Guest session"
// @Success      200 {object} dto.Response{data=cartapp.CartResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	cart, err := h.cartService.Get(c.Request.Context(), session)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// AddItem godoc
// @Summary      Add to cart
// @Description  Adds units of a product or variation. An existing line is increased; the result may not exceed stock.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string false "Guest session"
// @Param        request body cartapp.AddItemRequest true "Item"
// @Success      200 {object} dto.Response{data=cartapp.CartResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	var req cartapp.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), session, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// UpdateItem godoc
// @Summary      Set item quantity
// @Description  Quantities below one are clamped to one
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        itemId path string true "Cart item ID"
// @Param        request body cartapp.UpdateItemRequest true "Quantity"
// @Success      200 {object} dto.Response{data=cartapp.CartResponse}
// @Router       /cart/items/{itemId} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "itemId")
	if !ok {
		return
	}
	var req cartapp.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cart, err := h.cartService.UpdateItem(c.Request.Context(), session, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// DecrementItem godoc
// @Summary      Remove one unit
// @Description  Removing the last unit removes the line
// @Tags         cart
// @Produce      json
// @Param        itemId path string true "Cart item ID"
// @Success      200 {object} dto.Response{data=cartapp.CartResponse}
// @Router       /cart/items/{itemId}/decrement [post]
func (h *CartHandler) DecrementItem(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "itemId")
	if !ok {
		return
	}

	cart, err := h.cartService.DecrementItem(c.Request.Context(), session, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// RemoveItem godoc
// @Summary      Remove a cart line
// @Tags         cart
// @Produce      json
// @Param        itemId path string true "Cart item ID"
// @Success      200 {object} dto.Response{data=cartapp.CartResponse}
// @Router       /cart/items/{itemId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "itemId")
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), session, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// Clear godoc
// @Summary      Empty the cart
// @Tags         cart
// @Success      204
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	session, ok := h.requireSession(c)
	if !ok {
		return
	}
	if err := h.cartService.Clear(c.Request.Context(), session); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AdminList lists carts of every owner, most recently updated first
func (h *CartHandler) AdminList(c *gin.Context) {
	var req cartapp.CartListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	result, err := h.cartService.AdminList(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(&h.BaseHandler, c, result)
}

// AdminGet shows any cart
func (h *CartHandler) AdminGet(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	cart, err := h.cartService.AdminGet(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cart)
}

// AdminDelete deletes a cart
func (h *CartHandler) AdminDelete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.cartService.AdminDelete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
