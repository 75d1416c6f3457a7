package handler

import (
	"time"

	"github.com/storefront/backend/internal/application/identity"
)

// =====================
// Auth Request DTOs
// =====================

// RegisterRequest represents the request body for customer sign-up
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest changes the signed-in user's account.
// NewPassword requires CurrentPassword.
type UpdateProfileRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=100"`
	Phone           *string `json:"phone" binding:"omitempty,max=20"`
	Email           *string `json:"email" binding:"omitempty,email,max=254"`
	CurrentPassword string  `json:"current_password" binding:"required_with=NewPassword,max=128"`
	NewPassword     string  `json:"new_password" binding:"omitempty,min=8,max=128"`
}

// =====================
// Auth Response DTOs
// =====================

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LoginResponse represents the response body for login and registration
type LoginResponse struct {
	Token TokenResponse     `json:"token"`
	User  identity.UserInfo `json:"user"`
}

// RefreshTokenResponse represents the response body for successful token refresh
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

// UpdateProfileResponse is the updated account. ReauthRequired tells the client
// to sign in again after a password change.
type UpdateProfileResponse struct {
	User           identity.UserInfo `json:"user"`
	ReauthRequired bool              `json:"reauth_required"`
}

// MessageResponse carries a human readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

func toLoginResponse(r *identity.LoginResult) LoginResponse {
	return LoginResponse{
		Token: TokenResponse{
			AccessToken:           r.AccessToken,
			RefreshToken:          r.RefreshToken,
			AccessTokenExpiresAt:  r.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: r.RefreshTokenExpiresAt,
			TokenType:             r.TokenType,
		},
		User: r.User,
	}
}
