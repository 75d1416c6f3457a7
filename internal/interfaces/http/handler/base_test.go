package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	c.Request = r
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context",
			setup: func(c *gin.Context) {
				c.Set(logger.GinRequestIDKey, "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(RequestIDHeader, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set(logger.GinRequestIDKey, "ctx-id")
				c.Request.Header.Set(RequestIDHeader, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/", "")
			tt.setup(c)
			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestBaseHandlerResponses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		h.Success(c, gin.H{"name": "shirt"})
		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		assert.Nil(t, resp.Meta)
	})

	t.Run("created", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/", "")
		h.Created(c, gin.H{"id": "1"})
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, decodeResponse(t, w).Success)
	})

	t.Run("no content", func(t *testing.T) {
		c, w := newTestContext(http.MethodDelete, "/", "")
		h.NoContent(c)
		c.Writer.WriteHeaderNow()
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("error carries the request id", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		c.Set(logger.GinRequestIDKey, "req-42")
		h.NotFound(c, "Product not found")
		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "req-42", resp.Error.RequestID)
	})
}

func TestWritePage(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/", "")

	writePage(h, c, shared.NewPaginated([]string{"a", "b"}, 7, 2, 2))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(7), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 2, resp.Meta.PageSize)
	assert.Equal(t, 4, resp.Meta.TotalPages)
	assert.Equal(t, []any{"a", "b"}, resp.Data)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, dto.ErrCodeForbidden},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"concurrency conflict", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"insufficient stock", shared.ErrInsufficientStock, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock},
		{"duplicate after-sales request", shared.ErrDuplicateRequest, http.StatusConflict, dto.ErrCodeDuplicateRequest},
		{"named not found", shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found"), http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"named invalid", shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive"), http.StatusBadRequest, "INVALID_QUANTITY"},
		{"mapped conflict", shared.NewDomainError("EMAIL_EXISTS", "Taken"), http.StatusConflict, "EMAIL_EXISTS"},
		{"business rule", shared.NewDomainError("CART_EMPTY", "Cart is empty"), http.StatusUnprocessableEntity, "CART_EMPTY"},
		{"wrapped", fmt.Errorf("checkout: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(http.MethodGet, "/", "")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}

func TestBaseHandlerHandleError_Unexpected(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/", "")
	c.Set(logger.GinLoggerKey, zap.New(core))

	h.HandleError(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	assert.Equal(t, 1, logs.FilterMessage("Unhandled error").Len())
}

func TestBaseHandlerHandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/", "")
	h.HandleError(c, nil)
	assert.Empty(t, w.Body.String())
}

type bindTarget struct {
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Note     string `json:"note" binding:"max=5"`
}

func TestBaseHandlerBindJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOK  bool
		wantErr string
	}{
		{"valid", `{"quantity":2}`, true, ""},
		{"fails validation", `{"quantity":0}`, false, dto.ErrCodeValidation},
		{"too long", `{"quantity":1,"note":"toolong"}`, false, dto.ErrCodeValidation},
		{"malformed", `{"quantity":`, false, dto.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(http.MethodPost, "/", tt.body)

			var target bindTarget
			ok := h.bindJSON(c, &target)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				return
			}
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantErr, decodeResponse(t, w).Error.Code)
		})
	}
}

func TestBaseHandlerSessionHelpers(t *testing.T) {
	userID := uuid.New()
	authenticated := shared.Authenticated(userID)
	guest, err := shared.Guest("guest-1")
	require.NoError(t, err)

	t.Run("requireSession rejects requests without a session", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext(http.MethodGet, "/", "")
		_, ok := h.requireSession(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeSessionRequired, decodeResponse(t, w).Error.Code)
	})

	t.Run("requireSession accepts guests", func(t *testing.T) {
		h := &BaseHandler{}
		c, _ := newTestContext(http.MethodGet, "/", "")
		c.Set(middleware.SessionKey, guest)
		session, ok := h.requireSession(c)
		assert.True(t, ok)
		assert.Equal(t, "guest:guest-1", session.OwnerKey())
	})

	t.Run("requireUserID rejects guests", func(t *testing.T) {
		h := &BaseHandler{}
		c, w := newTestContext(http.MethodGet, "/", "")
		c.Set(middleware.SessionKey, guest)
		_, ok := h.requireUserID(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("requireUserID returns the signed-in user", func(t *testing.T) {
		h := &BaseHandler{}
		c, _ := newTestContext(http.MethodGet, "/", "")
		c.Set(middleware.SessionKey, authenticated)
		id, ok := h.requireUserID(c)
		assert.True(t, ok)
		assert.Equal(t, userID, id)
		assert.Equal(t, &userID, optionalUserID(c))
	})

	t.Run("optionalUserID is nil for guests", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/", "")
		c.Set(middleware.SessionKey, guest)
		assert.Nil(t, optionalUserID(c))
	})
}

func TestBaseHandlerUUIDParam(t *testing.T) {
	h := &BaseHandler{}
	id := uuid.New()

	c, _ := newTestContext(http.MethodGet, "/", "")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := h.uuidParam(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	c, w := newTestContext(http.MethodGet, "/", "")
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	_, ok = h.uuidParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
}
