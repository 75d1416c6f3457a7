package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
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

const testPassword = "Secret123"

// testJWTConfig returns a default JWT config for tests
func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-characters",
		RefreshSecret:          "test-refresh-secret-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "storefront-test",
	}
}

type authFixture struct {
	repo      *MockUserRepository
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	service   *appidentity.AuthService
	router    *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &authFixture{
		repo:      new(MockUserRepository),
		jwt:       auth.NewJWTService(testJWTConfig()),
		blacklist: auth.NewInMemoryTokenBlacklist(),
	}
	f.service = appidentity.NewAuthService(f.repo, f.jwt, f.blacklist, nil, appidentity.DefaultAuthServiceConfig(), nil)

	h := NewAuthHandler(f.service)
	jwtCfg := middleware.JWTMiddlewareConfig{JWTService: f.jwt, TokenBlacklist: f.blacklist}

	f.router = gin.New()
	group := f.router.Group("/auth")
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/refresh", h.RefreshToken)
	protected := group.Group("", middleware.RequireAuth(jwtCfg))
	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.GetCurrentUser)
	protected.PUT("/me", h.UpdateCurrentUser)
	return f
}

func (f *authFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func newCustomer(t *testing.T, email string) *identity.User {
	t.Helper()
	user, err := identity.NewUser("Test Customer", email, testPassword)
	require.NoError(t, err)
	user.PopDomainEvents()
	return user
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeLogin(t *testing.T, w *httptest.ResponseRecorder) LoginResponse {
	t.Helper()
	var resp struct {
		Success bool          `json:"success"`
		Data    LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error, "expected an error body: %s", w.Body.String())
	return resp.Error.Code
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("creates the account and merges the guest session", func(t *testing.T) {
		f := newAuthFixture(t)
		f.repo.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

		var merged string
		f.service.OnGuestSignIn("cart", func(_ context.Context, sessionID string, _ uuid.UUID) error {
			merged = sessionID
			return nil
		})

		w := f.do(t, http.MethodPost, "/auth/register", RegisterRequest{
			Name:     "New Shopper",
			Email:    "New@Example.com",
			Password: testPassword,
		}, map[string]string{middleware.SessionHeader: "guest-123"})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decodeLogin(t, w)
		assert.NotEmpty(t, resp.Token.AccessToken)
		assert.NotEmpty(t, resp.Token.RefreshToken)
		assert.Equal(t, "new@example.com", resp.User.Email)
		assert.Equal(t, "customer", resp.User.Role)
		assert.Equal(t, "guest-123", merged)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		f := newAuthFixture(t)
		f.repo.On("ExistsByEmail", mock.Anything, "taken@example.com").Return(true, nil)

		w := f.do(t, http.MethodPost, "/auth/register", RegisterRequest{
			Name: "Dup", Email: "taken@example.com", Password: testPassword,
		}, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "EMAIL_EXISTS", errorCode(t, w))
	})

	t.Run("short password fails validation", func(t *testing.T) {
		f := newAuthFixture(t)
		w := f.do(t, http.MethodPost, "/auth/register", RegisterRequest{
			Name: "Short", Email: "short@example.com", Password: "abc1",
		}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		setup      func(f *authFixture, user *identity.User)
		wantStatus int
		wantCode   string
	}{
		{
			name:     "valid credentials",
			password: testPassword,
			setup: func(f *authFixture, user *identity.User) {
				f.repo.On("FindByEmail", mock.Anything, "shopper@example.com").Return(user, nil)
				f.repo.On("Update", mock.Anything, user).Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:     "wrong password",
			password: "Wrong1234",
			setup: func(f *authFixture, user *identity.User) {
				f.repo.On("FindByEmail", mock.Anything, "shopper@example.com").Return(user, nil)
				f.repo.On("Update", mock.Anything, user).Return(nil)
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:     "unknown email",
			password: testPassword,
			setup: func(f *authFixture, _ *identity.User) {
				f.repo.On("FindByEmail", mock.Anything, "shopper@example.com").Return(nil, shared.ErrNotFound)
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:     "deactivated account",
			password: testPassword,
			setup: func(f *authFixture, user *identity.User) {
				require.NoError(t, user.Deactivate())
				f.repo.On("FindByEmail", mock.Anything, "shopper@example.com").Return(user, nil)
			},
			wantStatus: http.StatusForbidden,
			wantCode:   "ACCOUNT_DEACTIVATED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			user := newCustomer(t, "shopper@example.com")
			tt.setup(f, user)

			w := f.do(t, http.MethodPost, "/auth/login", LoginRequest{
				Email: "shopper@example.com", Password: tt.password,
			}, nil)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
				return
			}
			resp := decodeLogin(t, w)
			assert.Equal(t, user.ID, resp.User.ID)
			assert.Equal(t, "Bearer", resp.Token.TokenType)
		})
	}
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	user := newCustomer(t, "me@example.com")
	f.repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID, Email: user.Email, Role: string(user.Role),
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/auth/me", nil, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"email":"me@example.com"`)

	w = f.do(t, http.MethodPost, "/auth/logout", LogoutRequest{RefreshToken: pair.RefreshToken}, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/auth/me", nil, bearer(pair.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, errorCode(t, w))

	w = f.do(t, http.MethodPost, "/auth/refresh", RefreshTokenRequest{RefreshToken: pair.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, errorCode(t, w))
}

func TestAuthHandler_RefreshRotates(t *testing.T) {
	f := newAuthFixture(t)
	user := newCustomer(t, "rotate@example.com")
	f.repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID, Email: user.Email, Role: string(user.Role),
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/auth/refresh", RefreshTokenRequest{RefreshToken: pair.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data RefreshTokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Token.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, resp.Data.Token.RefreshToken)

	w = f.do(t, http.MethodPost, "/auth/refresh", RefreshTokenRequest{RefreshToken: pair.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_RequiresToken(t *testing.T) {
	f := newAuthFixture(t)

	w := f.do(t, http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/auth/me", nil, bearer("not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenInvalid, errorCode(t, w))
}

func TestAuthHandler_UpdateCurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	user := newCustomer(t, "profile@example.com")
	f.repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	f.repo.On("Update", mock.Anything, user).Return(nil)

	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID, Email: user.Email, Role: string(user.Role),
	})
	require.NoError(t, err)

	name := "Renamed Shopper"
	w := f.do(t, http.MethodPut, "/auth/me", UpdateProfileRequest{Name: &name}, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data UpdateProfileResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Renamed Shopper", resp.Data.User.Name)
	assert.False(t, resp.Data.ReauthRequired)

	w = f.do(t, http.MethodPut, "/auth/me", UpdateProfileRequest{NewPassword: "Another123"}, bearer(pair.AccessToken))
	assert.Equal(t, http.StatusBadRequest, w.Code, "new password without the current one")
}

func TestGuestSessionHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		header string
		want   string
	}{
		{"guest-abc", "guest-abc"},
		{"  guest-abc  ", "guest-abc"},
		{"", ""},
		{string(bytes.Repeat([]byte("x"), 200)), ""},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		c.Request.Header.Set(middleware.SessionHeader, tt.header)
		assert.Equal(t, tt.want, guestSessionHeader(c))
	}
}

