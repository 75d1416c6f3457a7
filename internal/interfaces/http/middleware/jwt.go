package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Gin context keys and headers for authentication
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	JWTRoleKey    = "jwt_role"
	SessionKey    = "session"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	SessionHeader = "X-Session-ID"
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional for checking revoked tokens
	TokenBlacklist auth.TokenBlacklist
	// Logger for middleware logging
	Logger *zap.Logger
}

// RequireAuth rejects requests without a valid, unrevoked bearer token
func RequireAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			handleAuthError(c, cfg, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}
		if !authenticate(c, cfg, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves the shopper's session. A bearer token must be valid when
// sent; without one the X-Session-ID header identifies a guest. Requests with
// neither continue without a session and the handler decides.
func OptionalAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if !authenticate(c, cfg, token) {
				return
			}
			c.Next()
			return
		}

		sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sessionID == "" {
			c.Next()
			return
		}
		session, err := shared.Guest(sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithRequestID("INVALID_SESSION", "Invalid guest session id", getRequestID(c)))
			return
		}

		c.Set(SessionKey, session)
		c.Set(logger.GinSessionIDKey, sessionID)
		ctx, _ := logger.WithSessionID(c.Request.Context(), logger.FromContext(c.Request.Context()), sessionID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin role.
// It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", getRequestID(c)))
			return
		}
		if !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Admin access required", getRequestID(c)))
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// authenticate validates the token and stores claims and session in the context.
// It aborts the request and returns false on failure.
func authenticate(c *gin.Context, cfg JWTMiddlewareConfig, token string) bool {
	claims, err := cfg.JWTService.ValidateAccessToken(token)
	if err != nil {
		handleAuthError(c, cfg, err, "Token validation failed")
		return false
	}

	if cfg.TokenBlacklist != nil {
		ctx := c.Request.Context()

		revoked, err := cfg.TokenBlacklist.IsRevoked(ctx, claims.ID)
		if err == nil && !revoked {
			revoked, err = cfg.TokenBlacklist.IsUserRevoked(ctx, claims.UserID, claims.GetIssuedAtTime())
		}
		if err != nil {
			// Fail open: a blacklist outage must not sign everyone out
			if cfg.Logger != nil {
				cfg.Logger.Error("Failed to check token blacklist",
					zap.String("jti", claims.ID),
					zap.Error(err))
			}
		} else if revoked {
			handleAuthError(c, cfg, auth.ErrTokenBlacklisted, "Token has been revoked")
			return false
		}
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		handleAuthError(c, cfg, auth.ErrInvalidClaims, "Invalid user id claim")
		return false
	}

	c.Set(JWTClaimsKey, claims)
	c.Set(JWTUserIDKey, claims.UserID)
	c.Set(JWTRoleKey, claims.Role)
	c.Set(SessionKey, shared.Authenticated(userID))

	ctx := c.Request.Context()
	ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
	c.Request = c.Request.WithContext(ctx)

	if cfg.Logger != nil {
		cfg.Logger.Debug("JWT authentication successful",
			zap.String("user_id", claims.UserID),
			zap.String("role", claims.Role),
		)
	}
	return true
}

// handleAuthError handles authentication errors
func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	errorCode := "UNAUTHORIZED"
	errorMessage := "Authentication required"

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		errorCode = "TOKEN_EXPIRED"
		errorMessage = "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingUserID):
		errorCode = "INVALID_TOKEN"
		errorMessage = "Invalid token"
	case errors.Is(err, auth.ErrInvalidTokenType):
		errorCode = "INVALID_TOKEN"
		errorMessage = "Invalid token type"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		errorCode = "INVALID_TOKEN"
		errorMessage = "Token is not yet valid"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		errorCode = "TOKEN_REVOKED"
		errorMessage = "Token has been revoked"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(errorCode, errorMessage, getRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	if userID, exists := c.Get(JWTUserIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// GetSession returns the session resolved for the request; the zero Session when none
func GetSession(c *gin.Context) shared.Session {
	if v, exists := c.Get(SessionKey); exists {
		if s, ok := v.(shared.Session); ok {
			return s
		}
	}
	return shared.Session{}
}
