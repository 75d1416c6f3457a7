package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// GuestMergeFunc moves guest session data (cart, recently viewed) to a user
type GuestMergeFunc func(ctx context.Context, sessionID string, userID uuid.UUID) error

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	publisher  shared.EventPublisher
	config     AuthServiceConfig
	mergers    map[string]GuestMergeFunc
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service. blacklist may be nil,
// in which case logout only ends the session client side.
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	publisher shared.EventPublisher,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		publisher:  publisher,
		config:     config,
		mergers:    make(map[string]GuestMergeFunc),
		logger:     logger,
	}
}

// OnGuestSignIn registers fn to run when a visitor with a guest session signs in
func (s *AuthService) OnGuestSignIn(name string, fn GuestMergeFunc) {
	s.mergers[name] = fn
}

// Register creates a customer account and signs it in
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, identity.NormalizeEmail(input.Email))
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "An account with this email already exists")
	}

	user, err := identity.NewUser(input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	user.RecordLoginSuccess(input.IP)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("EMAIL_EXISTS", "An account with this email already exists")
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create account")
	}
	s.publish(ctx, user)

	s.logger.Info("Customer registered", zap.String("user_id", user.ID.String()))

	s.mergeGuest(ctx, input.SessionID, user.ID)
	return s.issue(user)
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := identity.NormalizeEmail(input.Email)
	s.logger.Info("Login attempt", zap.String("email", email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("User not found during login", zap.String("email", email))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if !user.CanLogin() {
		if user.IsDeactivated() {
			s.logger.Warn("Login attempt for deactivated account", zap.String("email", email))
			return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
		}
		s.logger.Warn("Login attempt for locked account", zap.String("email", email))
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later or contact support")
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}
		s.publish(ctx, user)

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("email", email),
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}

		s.logger.Warn("Invalid password attempt",
			zap.String("email", email),
			zap.Int("failed_attempts", user.FailedAttempts))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	user.RecordLoginSuccess(input.IP)
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}
	result.User = toUserInfo(user)

	s.mergeGuest(ctx, input.SessionID, user.ID)

	s.logger.Info("User logged in successfully",
		zap.String("email", email),
		zap.String("user_id", user.ID.String()))

	return result, nil
}

// RefreshToken exchanges a valid refresh token for a new pair. The old refresh
// token is revoked so it cannot be replayed.
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("User not found during token refresh", zap.String("user_id", userID.String()))
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	if !user.CanLogin() {
		s.logger.Warn("Token refresh for inactive user", zap.String("user_id", userID.String()))
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.revoke(ctx, claims.ID, claims.GetRemainingTTL())

	s.logger.Info("Token refreshed successfully", zap.String("user_id", userID.String()))

	return &RefreshTokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}

// Logout revokes the access token and, when given, the refresh token.
// It is best effort: revocation failures are logged and never returned.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	s.logger.Info("User logout", zap.String("user_id", input.UserID.String()))

	if input.TokenJTI != "" {
		s.revoke(ctx, input.TokenJTI, input.TokenTTL)
	}
	if input.RefreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
		if err == nil && claims.UserID == input.UserID.String() {
			s.revoke(ctx, claims.ID, claims.GetRemainingTTL())
		}
	}
	return nil
}

// GetCurrentUser retrieves the signed-in user's account
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	info := toUserInfo(user)
	return &info, nil
}

// UpdateCurrentUser changes the signed-in user's profile, email or password
func (s *AuthService) UpdateCurrentUser(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UpdateProfileResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if input.Name != nil || input.Phone != nil {
		name, phone := user.Name, user.Phone
		if input.Name != nil {
			name = *input.Name
		}
		if input.Phone != nil {
			phone = *input.Phone
		}
		if err := user.UpdateProfile(name, phone); err != nil {
			return nil, err
		}
	}
	if input.Email != nil {
		if err := s.changeEmail(ctx, user, *input.Email); err != nil {
			return nil, err
		}
	}

	passwordChanged := false
	if input.NewPassword != "" {
		if err := user.ChangePassword(input.CurrentPassword, input.NewPassword); err != nil {
			return nil, err
		}
		passwordChanged = true
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		s.logger.Error("Failed to update user profile", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update account")
	}
	s.publish(ctx, user)

	if passwordChanged {
		s.revokeUser(ctx, user.ID)
		s.logger.Info("User password changed", zap.String("user_id", user.ID.String()))
	}

	return &UpdateProfileResult{User: toUserInfo(user), ReauthRequired: passwordChanged}, nil
}

func (s *AuthService) changeEmail(ctx context.Context, user *identity.User, email string) error {
	email = identity.NormalizeEmail(email)
	if email == user.Email {
		return nil
	}
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("EMAIL_EXISTS", "An account with this email already exists")
	}
	return user.SetEmail(email)
}

func (s *AuthService) issue(user *identity.User) (*LoginResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  toUserInfo(user),
	}, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil {
		return nil
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err == nil && !revoked {
		revoked, err = s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.GetIssuedAtTime())
	}
	if err != nil {
		s.logger.Error("Failed to check token revocation", zap.Error(err))
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
	if revoked {
		return shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	}
	return nil
}

func (s *AuthService) revoke(ctx context.Context, jti string, ttl time.Duration) {
	if s.blacklist == nil || jti == "" {
		return
	}
	if err := s.blacklist.Revoke(ctx, jti, ttl); err != nil {
		s.logger.Warn("Failed to revoke token", zap.String("jti", jti), zap.Error(err))
	}
}

func (s *AuthService) revokeUser(ctx context.Context, userID uuid.UUID) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.RevokeUser(ctx, userID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Warn("Failed to revoke user tokens", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// mergeGuest runs the registered guest mergers. A failing merger is logged and
// does not fail the sign-in.
func (s *AuthService) mergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) {
	if sessionID == "" {
		return
	}
	for name, fn := range s.mergers {
		if err := fn(ctx, sessionID, userID); err != nil {
			s.logger.Warn("Failed to merge guest session",
				zap.String("merger", name),
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
}

func (s *AuthService) publish(ctx context.Context, user *identity.User) {
	events := user.PopDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish user events", zap.Error(err))
	}
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrMissingUserID):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
}
