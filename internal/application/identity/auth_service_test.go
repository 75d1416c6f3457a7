package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role identity.Role) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

const testPassword = "Secret123"

func newJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret-at-least-32-bytes!",
		RefreshSecret:          "test-refresh-secret-at-least-32-bytes",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "storefront-test",
	})
}

func newTestUser(t *testing.T, email string) *identity.User {
	t.Helper()
	user, err := identity.NewUser("Test Customer", email, testPassword)
	require.NoError(t, err)
	user.PopDomainEvents()
	return user
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected a domain error, got %v", err)
	return de.Code
}

type authFixture struct {
	repo      *MockUserRepository
	publisher *MockEventPublisher
	blacklist *auth.InMemoryTokenBlacklist
	jwt       *auth.JWTService
	svc       *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		repo:      new(MockUserRepository),
		publisher: new(MockEventPublisher),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		jwt:       newJWTService(),
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.svc = NewAuthService(f.repo, f.jwt, f.blacklist, f.publisher, DefaultAuthServiceConfig(), nil)
	return f
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates customer and merges guest session", func(t *testing.T) {
		f := newAuthFixture()
		f.repo.On("ExistsByEmail", ctx, "new@example.com").Return(false, nil)
		f.repo.On("Create", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

		var mergedSession string
		var mergedUser uuid.UUID
		f.svc.OnGuestSignIn("cart", func(_ context.Context, sessionID string, userID uuid.UUID) error {
			mergedSession, mergedUser = sessionID, userID
			return nil
		})

		result, err := f.svc.Register(ctx, RegisterInput{
			Name:      "New Customer",
			Email:     " New@Example.com ",
			Password:  testPassword,
			SessionID: "guest-1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, "Bearer", result.TokenType)
		assert.Equal(t, "new@example.com", result.User.Email)
		assert.Equal(t, string(identity.RoleCustomer), result.User.Role)
		assert.Equal(t, "guest-1", mergedSession)
		assert.Equal(t, result.User.ID, mergedUser)
		f.publisher.AssertCalled(t, "Publish", ctx, mock.Anything)
	})

	t.Run("email already registered", func(t *testing.T) {
		f := newAuthFixture()
		f.repo.On("ExistsByEmail", ctx, "taken@example.com").Return(true, nil)

		_, err := f.svc.Register(ctx, RegisterInput{Name: "X", Email: "taken@example.com", Password: testPassword})
		require.Error(t, err)
		assert.Equal(t, "EMAIL_EXISTS", domainCode(t, err))
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("weak password", func(t *testing.T) {
		f := newAuthFixture()
		f.repo.On("ExistsByEmail", ctx, "weak@example.com").Return(false, nil)

		_, err := f.svc.Register(ctx, RegisterInput{Name: "X", Email: "weak@example.com", Password: "short"})
		require.Error(t, err)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login", func(t *testing.T) {
		f := newAuthFixture()
		user := newTestUser(t, "shopper@example.com")
		f.repo.On("FindByEmail", ctx, "shopper@example.com").Return(user, nil)
		f.repo.On("Update", ctx, user).Return(nil)

		result, err := f.svc.Login(ctx, LoginInput{Email: "Shopper@example.com", Password: testPassword, IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, user.ID, result.User.ID)
		assert.Equal(t, "10.0.0.1", user.LastLoginIP)
		require.NotNil(t, result.User.LastLoginAt)

		claims, err := f.jwt.ValidateAccessToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture()
		f.repo.On("FindByEmail", ctx, "nobody@example.com").Return(nil, shared.ErrNotFound)

		_, err := f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: testPassword})
		require.Error(t, err)
		assert.Equal(t, "INVALID_CREDENTIALS", domainCode(t, err))
	})

	t.Run("wrong password counts failures then locks", func(t *testing.T) {
		f := newAuthFixture()
		f.svc = NewAuthService(f.repo, f.jwt, f.blacklist, f.publisher, AuthServiceConfig{MaxLoginAttempts: 2, LockDuration: time.Minute}, nil)
		user := newTestUser(t, "shopper@example.com")
		f.repo.On("FindByEmail", ctx, "shopper@example.com").Return(user, nil)
		f.repo.On("Update", ctx, user).Return(nil)

		_, err := f.svc.Login(ctx, LoginInput{Email: "shopper@example.com", Password: "Wrong1234"})
		assert.Equal(t, "INVALID_CREDENTIALS", domainCode(t, err))
		assert.Equal(t, 1, user.FailedAttempts)

		_, err = f.svc.Login(ctx, LoginInput{Email: "shopper@example.com", Password: "Wrong1234"})
		assert.Equal(t, "ACCOUNT_LOCKED", domainCode(t, err))
		assert.True(t, user.IsLocked())

		_, err = f.svc.Login(ctx, LoginInput{Email: "shopper@example.com", Password: testPassword})
		assert.Equal(t, "ACCOUNT_LOCKED", domainCode(t, err))
	})

	t.Run("deactivated account", func(t *testing.T) {
		f := newAuthFixture()
		user := newTestUser(t, "gone@example.com")
		require.NoError(t, user.Deactivate())
		f.repo.On("FindByEmail", ctx, "gone@example.com").Return(user, nil)

		_, err := f.svc.Login(ctx, LoginInput{Email: "gone@example.com", Password: testPassword})
		assert.Equal(t, "ACCOUNT_DEACTIVATED", domainCode(t, err))
	})

	t.Run("failing merger does not fail login", func(t *testing.T) {
		f := newAuthFixture()
		user := newTestUser(t, "shopper@example.com")
		f.repo.On("FindByEmail", ctx, "shopper@example.com").Return(user, nil)
		f.repo.On("Update", ctx, user).Return(nil)
		f.svc.OnGuestSignIn("cart", func(context.Context, string, uuid.UUID) error {
			return errors.New("cart store down")
		})

		_, err := f.svc.Login(ctx, LoginInput{Email: "shopper@example.com", Password: testPassword, SessionID: "guest-9"})
		require.NoError(t, err)
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := newTestUser(t, "shopper@example.com")
	f.repo.On("FindByID", ctx, user.ID).Return(user, nil)

	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Email: user.Email, Role: string(user.Role)})
	require.NoError(t, err)

	refreshed, err := f.svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)

	t.Run("old refresh token cannot be replayed", func(t *testing.T) {
		_, err := f.svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: pair.RefreshToken})
		require.Error(t, err)
		assert.Equal(t, "TOKEN_REVOKED", domainCode(t, err))
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := f.svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: pair.AccessToken})
		require.Error(t, err)
		assert.Equal(t, "TOKEN_INVALID", domainCode(t, err))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: "not-a-jwt"})
		require.Error(t, err)
		assert.Equal(t, "TOKEN_INVALID", domainCode(t, err))
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := newTestUser(t, "shopper@example.com")

	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Email: user.Email, Role: string(user.Role)})
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, LogoutInput{
		UserID:       user.ID,
		TokenJTI:     claims.ID,
		TokenTTL:     claims.GetRemainingTTL(),
		RefreshToken: pair.RefreshToken,
	}))

	revoked, err := f.blacklist.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: pair.RefreshToken})
	assert.Equal(t, "TOKEN_REVOKED", domainCode(t, err))

	t.Run("without blacklist", func(t *testing.T) {
		svc := NewAuthService(f.repo, f.jwt, nil, nil, DefaultAuthServiceConfig(), nil)
		assert.NoError(t, svc.Logout(ctx, LogoutInput{UserID: user.ID, TokenJTI: claims.ID, TokenTTL: time.Minute}))
	})
}

func TestAuthService_UpdateCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("profile and email", func(t *testing.T) {
		f := newAuthFixture()
		user := newTestUser(t, "shopper@example.com")
		f.repo.On("FindByID", ctx, user.ID).Return(user, nil)
		f.repo.On("ExistsByEmail", ctx, "moved@example.com").Return(false, nil)
		f.repo.On("Update", ctx, user).Return(nil)

		name, email := "Renamed", "Moved@Example.com"
		result, err := f.svc.UpdateCurrentUser(ctx, user.ID, UpdateProfileInput{Name: &name, Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", result.User.Name)
		assert.Equal(t, "moved@example.com", result.User.Email)
		assert.False(t, result.ReauthRequired)
	})

	t.Run("email taken", func(t *testing.T) {
		f := newAuthFixture()
		user := newTestUser(t, "shopper@example.com")
		f.repo.On("FindByID", ctx, user.ID).Return(user, nil)
		f.repo.On("ExistsByEmail", ctx, "taken@example.com").Return(true, nil)

		email := "taken@example.com"
		_, err := f.svc.UpdateCurrentUser(ctx, user.ID, UpdateProfileInput{Email: &email})
		assert.Equal(t, "EMAIL_EXISTS", domainCode(t, err))
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("wrong current password", func(t *testing.T) {
		f := newAuthFixture()
		user := newTestUser(t, "shopper@example.com")
		f.repo.On("FindByID", ctx, user.ID).Return(user, nil)

		_, err := f.svc.UpdateCurrentUser(ctx, user.ID, UpdateProfileInput{CurrentPassword: "Wrong1234", NewPassword: "Another123"})
		assert.Equal(t, "INVALID_PASSWORD", domainCode(t, err))
	})

	t.Run("password change revokes issued tokens", func(t *testing.T) {
		f := newAuthFixture()
		user := newTestUser(t, "shopper@example.com")
		f.repo.On("FindByID", ctx, user.ID).Return(user, nil)
		f.repo.On("Update", ctx, user).Return(nil)

		pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Email: user.Email, Role: string(user.Role)})
		require.NoError(t, err)

		result, err := f.svc.UpdateCurrentUser(ctx, user.ID, UpdateProfileInput{CurrentPassword: testPassword, NewPassword: "Another123"})
		require.NoError(t, err)
		assert.True(t, result.ReauthRequired)
		assert.True(t, user.VerifyPassword("Another123"))

		_, err = f.svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: pair.RefreshToken})
		assert.Equal(t, "TOKEN_REVOKED", domainCode(t, err))
	})
}
