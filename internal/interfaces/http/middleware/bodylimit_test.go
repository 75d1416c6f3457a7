package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cartRouter mounts an add-to-cart handler behind BodyLimit
func cartRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(nil), BodyLimit(limit))
	router.POST("/api/v1/cart/items", func(c *gin.Context) {
		var req struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"product_id": req.ProductID, "quantity": req.Quantity})
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	const addItem = `{"product_id":"8f14e45f-ceea-467f-a0e6-c1a1d2b3c4d5","quantity":2}`

	t.Run("add to cart within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(addItem))
		req.Header.Set("Content-Type", "application/json")
		cartRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"quantity":2`)
	})

	t.Run("declared oversize body is rejected before the handler", func(t *testing.T) {
		body := `{"product_id":"` + strings.Repeat("x", 200) + `","quantity":1}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", "checkout-413")
		cartRouter(64).ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		errInfo := decodeError(t, w)
		assert.Equal(t, "REQUEST_TOO_LARGE", errInfo.Code)
		assert.Equal(t, "checkout-413", errInfo.RequestID)
	})

	t.Run("chunked body is cut off at the limit", func(t *testing.T) {
		body := `{"product_id":"` + strings.Repeat("x", 200) + `","quantity":1}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", io.NopCloser(strings.NewReader(body)))
		req.ContentLength = -1
		req.Header.Set("Content-Type", "application/json")
		cartRouter(64).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "request body too large")
	})

	t.Run("zero limit disables the check", func(t *testing.T) {
		body := `{"product_id":"` + strings.Repeat("x", 4096) + `","quantity":1}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		cartRouter(0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})
}
