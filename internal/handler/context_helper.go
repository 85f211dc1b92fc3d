package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/unicef/etools-docflow/internal/middleware"
	"github.com/unicef/etools-docflow/internal/models"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

// claimsFromContext extracts the authenticated claims set by the JWT
// middleware. Routes behind OptionalJWT may legitimately see nil.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// kindFromPath resolves the :kind segment against the registry.
func kindFromPath(c *gin.Context) (models.Kind, error) {
	kind := models.Kind(c.Param("kind"))
	if _, ok := models.KindSpecs[kind]; !ok {
		return "", apperrors.Clone(apperrors.ErrNotFound, "unknown document kind")
	}
	return kind, nil
}
