package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RequestIDHeader is the header carrying the request ID
const RequestIDHeader = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// HandleError converts domain errors to HTTP responses. Anything else is
// logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.DomainErrorStatus(code), code, domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled error",
		zap.String("request_id", getRequestID(c)),
		zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// bindJSON binds the request body; it writes the error response and returns
// false when the body is malformed or fails validation.
func (h *BaseHandler) bindJSON(c *gin.Context, obj any) bool {
	return h.bind(c, c.ShouldBindJSON(obj), "Invalid request body")
}

// bindQuery binds query parameters the same way bindJSON binds the body
func (h *BaseHandler) bindQuery(c *gin.Context, obj any) bool {
	return h.bind(c, c.ShouldBindQuery(obj), "Invalid query parameters")
}

func (h *BaseHandler) bind(c *gin.Context, err error, message string) bool {
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, verrs)
		return false
	}
	h.BadRequest(c, message)
	return false
}

// requireSession returns the guest or signed-in session of the request.
// Requests carrying neither get a 400.
func (h *BaseHandler) requireSession(c *gin.Context) (shared.Session, bool) {
	session := middleware.GetSession(c)
	if session.IsZero() {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeSessionRequired,
			"Send a bearer token or an "+middleware.SessionHeader+" header")
		return session, false
	}
	return session, true
}

// requireUserID returns the signed-in user's ID or writes a 401
func (h *BaseHandler) requireUserID(c *gin.Context) (uuid.UUID, bool) {
	session := middleware.GetSession(c)
	if !session.IsAuthenticated() {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	return session.UserID(), true
}

// optionalUserID returns the signed-in user's ID, or nil
func optionalUserID(c *gin.Context) *uuid.UUID {
	session := middleware.GetSession(c)
	if !session.IsAuthenticated() {
		return nil
	}
	id := session.UserID()
	return &id
}

// uuidParam parses a UUID path parameter or writes a 400
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// writePage writes a paginated result
func writePage[T any](h *BaseHandler, c *gin.Context, p shared.Paginated[T]) {
	h.SuccessWithMeta(c, p.Items, p.Total, p.Page, p.PageSize)
}
