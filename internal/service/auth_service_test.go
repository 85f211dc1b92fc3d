package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/pkg/config"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})

	raw := signToken(t, "test-secret", &models.JWTClaims{
		UserID: "u1",
		Email:  "user@example.org",
		Tenant: "kenya",
		Groups: []string{models.GroupUnicefUser},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "kenya", claims.Tenant)
	assert.True(t, claims.InGroup(models.GroupUnicefUser))
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})
	raw := signToken(t, "other-secret", &models.JWTClaims{UserID: "u1"})

	_, err := svc.ValidateToken(raw)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})
	raw := signToken(t, "test-secret", &models.JWTClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := svc.ValidateToken(raw)
	assert.Error(t, err)
}

func TestValidateTokenMissingIdentity(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})
	raw := signToken(t, "test-secret", &models.JWTClaims{Email: "user@example.org"})

	_, err := svc.ValidateToken(raw)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
