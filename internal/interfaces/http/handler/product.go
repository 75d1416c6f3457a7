package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// ProductHandler handles product-related API endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// List godoc
// @Summary      List products
// @Description  Search approved products by name, category subtree, final price range and stock
// @Tags         catalog
// @Produce      json
// @Param        q query string false "Search text"
// @Param        category_id query string false "Category ID, includes subcategories"
// @Param        min_price query number false "Minimum final price"
// @Param        max_price query number false "Maximum final price"
// @Param        in_stock query bool false "Only products in stock"
// @Param        sort_by query string false "created_at, price or name"
// @Param        sort_dir query string false "asc or desc"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]catalogapp.ProductResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /catalog/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var req catalogapp.ProductSearchRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.productService.Search(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(&h.BaseHandler, c, result)
}

// GetByID godoc
// @Summary      Get product
// @Description  Show an approved product. The view is recorded for the caller's session.
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /catalog/products/{id} [get]
func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetByID(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// GetBySlug godoc
// @Summary      Get product by slug
// @Tags         catalog
// @Produce      json
// @Param        slug path string true "Product slug"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /catalog/products/slug/{slug} [get]
func (h *ProductHandler) GetBySlug(c *gin.Context) {
	product, err := h.productService.GetBySlug(c.Request.Context(), middleware.GetSession(c), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// AdminList godoc
// @Summary      List products (admin)
// @Description  Search every product, approved or not
// @Tags         admin-products
// @Produce      json
// @Success      200 {object} dto.Response{data=[]catalogapp.ProductResponse,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /admin/products [get]
func (h *ProductHandler) AdminList(c *gin.Context) {
	var req catalogapp.ProductSearchRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.productService.AdminSearch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(&h.BaseHandler, c, result)
}

// AdminGet godoc
// @Summary      Get product (admin)
// @Tags         admin-products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/products/{id} [get]
func (h *ProductHandler) AdminGet(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.AdminGetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Create godoc
// @Summary      Create a new product
// @Description  New products start unapproved and are hidden from the storefront
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateProductRequest true "Product creation request"
// @Success      201 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update godoc
// @Summary      Update a product
// @Tags         admin-products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID"
// @Param        request body catalogapp.UpdateProductRequest true "Product update request"
// @Success      200 {object} dto.Response{data=catalogapp.ProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete godoc
// @Summary      Delete a product
// @Tags         admin-products
// @Param        id path string true "Product ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Approve publishes a product on the storefront
func (h *ProductHandler) Approve(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Approve(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Unapprove hides a product from the storefront
func (h *ProductHandler) Unapprove(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Unapprove(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// AddVariation adds a size/color variation
func (h *ProductHandler) AddVariation(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.VariationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.AddVariation(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// UpdateVariation changes a variation's stock and price override
func (h *ProductHandler) UpdateVariation(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	variationID, ok := h.uuidParam(c, "variationId")
	if !ok {
		return
	}
	var req catalogapp.UpdateVariationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateVariation(c.Request.Context(), id, variationID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// RemoveVariation deletes a variation
func (h *ProductHandler) RemoveVariation(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	variationID, ok := h.uuidParam(c, "variationId")
	if !ok {
		return
	}

	product, err := h.productService.RemoveVariation(c.Request.Context(), id, variationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
