package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register godoc
// @Summary      Customer sign-up
// @Description  Create a customer account and sign in. A guest cart and history sent via X-Session-ID move to the new account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string false "Guest session to merge"
// @Param        request body RegisterRequest true "Account details"
// @Success      201 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), identity.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		SessionID: guestSessionHeader(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toLoginResponse(result))
}

// Login godoc
// @Summary      User login
// @Description  Authenticate with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Session-ID header string false "Guest session to merge"
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		SessionID: guestSessionHeader(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLoginResponse(result))
}

// RefreshToken godoc
// @Summary      Refresh access token
// @Description  Exchange a refresh token for a new token pair. The old refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} dto.Response{data=RefreshTokenResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), identity.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RefreshTokenResponse{
		Token: TokenResponse{
			AccessToken:           result.AccessToken,
			RefreshToken:          result.RefreshToken,
			AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
			TokenType:             result.TokenType,
		},
	})
}

// Logout godoc
// @Summary      User logout
// @Description  Revoke the current access token and, when sent, the refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      200 {object} dto.Response{data=MessageResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid user ID in token")
		return
	}

	// The body is optional
	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}

	_ = h.authService.Logout(c.Request.Context(), identity.LogoutInput{
		UserID:       userID,
		TokenJTI:     claims.ID,
		TokenTTL:     claims.GetRemainingTTL(),
		RefreshToken: req.RefreshToken,
	})

	h.Success(c, MessageResponse{Message: "Logged out successfully"})
}

// GetCurrentUser godoc
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.UserInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}

// UpdateCurrentUser godoc
// @Summary      Update current user
// @Description  Change name, phone, email or password. A password change signs out every session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Profile changes"
// @Success      200 {object} dto.Response{data=UpdateProfileResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/me [put]
func (h *AuthHandler) UpdateCurrentUser(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.UpdateCurrentUser(c.Request.Context(), userID, identity.UpdateProfileInput{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, UpdateProfileResponse{
		User:           result.User,
		ReauthRequired: result.ReauthRequired,
	})
}

// guestSessionHeader returns the guest session to merge on sign-in. The auth
// routes do not run the session resolver, so the header is read directly.
func guestSessionHeader(c *gin.Context) string {
	session, err := shared.Guest(strings.TrimSpace(c.GetHeader(middleware.SessionHeader)))
	if err != nil {
		return ""
	}
	return session.SessionID()
}
