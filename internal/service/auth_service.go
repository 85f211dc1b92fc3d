package service

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/pkg/config"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

// AuthService validates bearer tokens minted by the external identity
// provider. The engine never issues tokens; it only verifies and reads them.
type AuthService struct {
	cfg config.JWTConfig
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{cfg: cfg}
}

// ValidateToken parses and verifies an HS256 token.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Clone(apperrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.UserID == "" {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "token missing user identity")
	}
	return claims, nil
}
