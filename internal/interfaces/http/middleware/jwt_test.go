package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-characters",
		RefreshSecret:          "test-refresh-secret-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "storefront-test",
	}
}

func issueToken(t *testing.T, svc *auth.JWTService, userID uuid.UUID, role string) *auth.TokenPair {
	t.Helper()
	pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: userID,
		Email:  "shopper@example.com",
		Role:   role,
	})
	require.NoError(t, err)
	return pair
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func sessionRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.GET("/whoami", func(c *gin.Context) {
		s := GetSession(c)
		c.JSON(http.StatusOK, gin.H{
			"kind":    string(s.Kind()),
			"owner":   s.OwnerKey(),
			"user_id": GetJWTUserID(c),
		})
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	svc := auth.NewJWTService(testJWTConfig())
	blacklist := auth.NewInMemoryTokenBlacklist()
	cfg := JWTMiddlewareConfig{JWTService: svc, TokenBlacklist: blacklist, Logger: zap.NewNop()}
	router := sessionRouter(RequireAuth(cfg))

	t.Run("valid token", func(t *testing.T) {
		userID := uuid.New()
		pair := issueToken(t, svc, userID, "customer")

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, string(shared.SessionAuthenticated), body["kind"])
		assert.Equal(t, userID.String(), body["user_id"])
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, decodeError(t, w).Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expiredCfg := testJWTConfig()
		expiredCfg.AccessTokenExpiration = -time.Minute
		pair := issueToken(t, auth.NewJWTService(expiredCfg), uuid.New(), "customer")

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenExpired, decodeError(t, w).Code)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		pair := issueToken(t, svc, uuid.New(), "customer")

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, decodeError(t, w).Code)
	})

	t.Run("revoked jti", func(t *testing.T) {
		pair := issueToken(t, svc, uuid.New(), "customer")
		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		require.NoError(t, blacklist.Revoke(context.Background(), claims.ID, time.Minute))

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeError(t, w).Code)
	})

	t.Run("user revoked", func(t *testing.T) {
		userID := uuid.New()
		pair := issueToken(t, svc, userID, "customer")
		require.NoError(t, blacklist.RevokeUser(context.Background(), userID.String(), time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeError(t, w).Code)
	})

	t.Run("works without blacklist", func(t *testing.T) {
		r := sessionRouter(RequireAuth(JWTMiddlewareConfig{JWTService: svc}))
		pair := issueToken(t, svc, uuid.New(), "customer")

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	svc := auth.NewJWTService(testJWTConfig())
	cfg := JWTMiddlewareConfig{JWTService: svc, TokenBlacklist: auth.NewInMemoryTokenBlacklist()}
	router := sessionRouter(OptionalAuth(cfg))

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantKind   string
		wantOwner  string
	}{
		{
			name:       "guest session header",
			headers:    map[string]string{SessionHeader: "guest-abc"},
			wantStatus: http.StatusOK,
			wantKind:   string(shared.SessionGuest),
			wantOwner:  "guest:guest-abc",
		},
		{
			name:       "no credentials",
			wantStatus: http.StatusOK,
			wantKind:   "",
		},
		{
			name:       "invalid bearer is rejected rather than downgraded",
			headers:    map[string]string{"Authorization": "Bearer not-a-jwt", SessionHeader: "guest-abc"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "session id too long",
			headers:    map[string]string{SessionHeader: strings.Repeat("x", 129)},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body["kind"])
			if tt.wantOwner != "" {
				assert.Equal(t, tt.wantOwner, body["owner"])
			}
		})
	}

	t.Run("bearer wins over session header", func(t *testing.T) {
		userID := uuid.New()
		pair := issueToken(t, svc, userID, "customer")

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		req.Header.Set(SessionHeader, "guest-abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, string(shared.SessionAuthenticated), body["kind"])
		assert.Equal(t, userID.String(), body["user_id"])
	})
}

func TestRequireAdmin(t *testing.T) {
	svc := auth.NewJWTService(testJWTConfig())
	cfg := JWTMiddlewareConfig{JWTService: svc}

	router := gin.New()
	router.GET("/admin", RequireAuth(cfg), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/no-auth", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	t.Run("admin passes", func(t *testing.T) {
		pair := issueToken(t, svc, uuid.New(), "admin")
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("customer is forbidden", func(t *testing.T) {
		pair := issueToken(t, svc, uuid.New(), "customer")
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, w).Code)
	})

	t.Run("missing claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/no-auth", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetSession_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.True(t, GetSession(c).IsZero())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
}
