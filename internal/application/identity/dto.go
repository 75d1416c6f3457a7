package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
)

// RegisterInput contains the input for customer sign-up
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	IP        string
	SessionID string // Guest session whose cart and history move to the new account
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email     string
	Password  string
	IP        string // Client IP for login tracking
	SessionID string // Guest session to merge, optional
}

// LoginResult contains the tokens and the signed-in user
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// UserInfo is the public view of an account
type UserInfo struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LogoutInput identifies the tokens to revoke
type LogoutInput struct {
	UserID       uuid.UUID
	TokenJTI     string        // jti of the access token
	TokenTTL     time.Duration // remaining lifetime of the access token
	RefreshToken string        // optional; revoked as well when valid
}

// UpdateProfileInput changes the signed-in user's own account.
// Changing the password requires the current one.
type UpdateProfileInput struct {
	Name            *string
	Phone           *string
	Email           *string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfileResult is the updated account. ReauthRequired is set when the
// password changed and every issued token was revoked.
type UpdateProfileResult struct {
	User           UserInfo
	ReauthRequired bool
}

// UserListInput contains the admin user listing query
type UserListInput struct {
	Keyword  string
	Status   string
	Role     string
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
}

// AdminUpdateUserInput contains an admin's changes to an account
type AdminUpdateUserInput struct {
	Name   *string
	Phone  *string
	Email  *string
	Role   *string
	Status *string
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        string(u.Role),
		Status:      string(u.Status),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
