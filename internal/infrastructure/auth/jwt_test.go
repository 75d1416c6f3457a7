package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "storefront-test",
	})
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{
		UserID: uuid.New(),
		Email:  "asha@example.com",
		Role:   "customer",
	}
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, []byte("test-secret"), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair(newTestInput())

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
}

func TestGenerateTokenPair_RequiresUser(t *testing.T) {
	_, err := newTestJWTService().GenerateTokenPair(GenerateTokenInput{})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()
	input.Role = "admin"
	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	userID, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, input.UserID, userID)
	assert.Equal(t, input.Email, claims.Email)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
	assert.Greater(t, claims.GetRemainingTTL(), 14*time.Minute)
}

func TestValidateToken_Failures(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{
		Secret:                 "another-secret-key-of-32-chars!!",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "storefront-test",
	})
	foreign, err := other.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	tests := []struct {
		name     string
		validate func(string) (*Claims, error)
		token    string
		wantErr  error
	}{
		{"garbage", svc.ValidateAccessToken, "not-a-token", ErrInvalidToken},
		{"refresh used as access", svc.ValidateAccessToken, pair.RefreshToken, ErrInvalidToken},
		{"access used as refresh", svc.ValidateRefreshToken, pair.AccessToken, ErrInvalidToken},
		{"signed with another secret", svc.ValidateAccessToken, foreign.AccessToken, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.validate(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateToken_WrongTypeWithSharedSecret(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                 "shared-secret-key-for-both-tokens",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "storefront-test",
	})
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService()
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	svc := newTestJWTService()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		UserID:    uuid.NewString(),
		TokenType: TokenTypeAccess,
	}
	token, err := svc.generateToken(claims, svc.accessSecret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
