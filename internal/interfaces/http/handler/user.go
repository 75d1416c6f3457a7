package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/application/identity"
)

// UserHandler handles user management HTTP requests
type UserHandler struct {
	BaseHandler
	userService *identity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *identity.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// UserListQuery represents the query of the admin user listing
type UserListQuery struct {
	Keyword  string `form:"q" binding:"max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=active locked deactivated"`
	Role     string `form:"role" binding:"omitempty,oneof=customer admin"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
	SortBy   string `form:"sort_by"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// AdminUpdateUserRequest represents an admin's changes to an account
type AdminUpdateUserRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=1,max=100"`
	Phone  *string `json:"phone" binding:"omitempty,max=20"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Role   *string `json:"role" binding:"omitempty,oneof=customer admin"`
	Status *string `json:"status" binding:"omitempty,oneof=active locked deactivated"`
}

// List godoc
// @Summary      List users
// @Tags         admin-users
// @Produce      json
// @Param        q query string false "Name or email"
// @Param        status query string false "active, locked or deactivated"
// @Param        role query string false "customer or admin"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]identity.UserInfo,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var q UserListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.userService.List(c.Request.Context(), identity.UserListInput{
		Keyword:  q.Keyword,
		Status:   q.Status,
		Role:     q.Role,
		Page:     q.Page,
		PageSize: q.PageSize,
		SortBy:   q.SortBy,
		SortDir:  q.SortDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writePage(&h.BaseHandler, c, *result)
}

// Get shows an account
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Update godoc
// @Summary      Update a user
// @Description  Change profile fields, role or status. Admins cannot demote or lock themselves, and the last active admin stays an admin.
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body AdminUpdateUserRequest true "Changes"
// @Success      200 {object} dto.Response{data=identity.UserInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req AdminUpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), actorID, id, identity.AdminUpdateUserInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Role:   req.Role,
		Status: req.Status,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Delete removes an account. Admins cannot delete themselves.
func (h *UserHandler) Delete(c *gin.Context) {
	actorID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), actorID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
