package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

// CategoryHandler handles category-related API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *catalogapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *catalogapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// Tree godoc
// @Summary      Category tree
// @Description  Active categories as a nested tree. flat=true returns a flat list instead.
// @Tags         catalog
// @Produce      json
// @Param        flat query bool false "Return a flat list"
// @Success      200 {object} dto.Response{data=[]catalog.CategoryNode}
// @Router       /catalog/categories [get]
func (h *CategoryHandler) Tree(c *gin.Context) {
	if c.Query("flat") == "true" {
		categories, err := h.categoryService.List(c.Request.Context())
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, categories)
		return
	}

	tree, err := h.categoryService.GetTree(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// GetByID godoc
// @Summary      Get category
// @Description  Show an active category with the number of its descendants
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Category ID"
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /catalog/categories/{id} [get]
func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// GetBySlug godoc
// @Summary      Get category by slug
// @Tags         catalog
// @Produce      json
// @Param        slug path string true "Category slug"
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /catalog/categories/slug/{slug} [get]
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.categoryService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// AdminTree returns every category, inactive ones included
func (h *CategoryHandler) AdminTree(c *gin.Context) {
	tree, err := h.categoryService.AdminGetTree(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// AdminGet shows a category regardless of its active flag
func (h *CategoryHandler) AdminGet(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.AdminGetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Create godoc
// @Summary      Create category
// @Tags         admin-categories
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateCategoryRequest true "Category"
// @Success      201 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req catalogapp.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, category)
}

// Update godoc
// @Summary      Update category
// @Description  Rename, move or deactivate a category. Moves that would create a cycle are rejected.
// @Tags         admin-categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID"
// @Param        request body catalogapp.UpdateCategoryRequest true "Changes"
// @Success      200 {object} dto.Response{data=catalogapp.CategoryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Delete removes a category without children or products
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
