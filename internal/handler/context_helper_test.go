package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/middleware"
	"github.com/unicef/etools-docflow/internal/models"
)

func newTestContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	return c
}

func TestClaimsFromContext(t *testing.T) {
	c := newTestContext(t)
	assert.Nil(t, claimsFromContext(c))

	c.Set(middleware.ContextUserKey, "not claims")
	assert.Nil(t, claimsFromContext(c))

	claims := &models.JWTClaims{UserID: "u1"}
	c.Set(middleware.ContextUserKey, claims)
	assert.Same(t, claims, claimsFromContext(c))
}

func TestKindFromPath(t *testing.T) {
	c := newTestContext(t)
	c.Params = gin.Params{{Key: "kind", Value: "intervention"}}
	kind, err := kindFromPath(c)
	require.NoError(t, err)
	assert.Equal(t, models.KindIntervention, kind)

	c.Params = gin.Params{{Key: "kind", Value: "spaceship"}}
	_, err = kindFromPath(c)
	assert.Error(t, err)
}
