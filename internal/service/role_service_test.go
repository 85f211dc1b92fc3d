package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unicef/etools-docflow/internal/models"
)

func TestRolesForAnonymous(t *testing.T) {
	svc := NewRoleService()

	roles := svc.RolesFor(nil, nil, nil)
	assert.True(t, roles.Has(models.RoleAnonymous))
	assert.Len(t, roles, 1)

	roles = svc.RolesFor(&models.JWTClaims{}, nil, nil)
	assert.True(t, roles.Has(models.RoleAnonymous), "claims without a user id are anonymous")
}

func TestRolesForTenantMismatch(t *testing.T) {
	svc := NewRoleService()
	claims := &models.JWTClaims{UserID: "u1", Tenant: "kenya", Groups: []string{models.GroupUnicefUser}}
	doc := &models.Document{Tenant: "uganda", AuthorID: "u1"}

	roles := svc.RolesFor(claims, doc, nil)
	assert.Empty(t, roles, "a tenant mismatch resolves like an unknown actor")
}

func TestRolesForGroupsAndAuthor(t *testing.T) {
	svc := NewRoleService()
	claims := &models.JWTClaims{
		UserID: "u1", Tenant: "kenya",
		Groups: []string{models.GroupUnicefUser, models.GroupPME, "Unmapped Group"},
	}
	doc := &models.Document{Tenant: "kenya", AuthorID: "u1"}

	roles := svc.RolesFor(claims, doc, nil)
	assert.True(t, roles.Has(models.RoleUnicefUser))
	assert.True(t, roles.Has(models.RolePME))
	assert.True(t, roles.Has(models.RoleAuthor))
	assert.False(t, roles.Has(models.RoleAdmin))
}

func TestRolesForParticipantLinks(t *testing.T) {
	svc := NewRoleService()
	claims := &models.JWTClaims{UserID: "u2", Tenant: "kenya"}
	doc := &models.Document{Tenant: "kenya", AuthorID: "u1"}
	links := []models.ParticipantLink{
		{ActorID: "u2", Role: models.RoleFocalPoint},
		{ActorID: "u3", Role: models.RoleBudgetOwner},
		{ActorID: "u2", Role: models.RolePME}, // not a document scoped tag
	}

	roles := svc.RolesFor(claims, doc, links)
	assert.True(t, roles.Has(models.RoleFocalPoint))
	assert.False(t, roles.Has(models.RoleBudgetOwner), "someone else's link does not apply")
	assert.False(t, roles.Has(models.RolePME), "global tags never come from links")
	assert.False(t, roles.Has(models.RoleAuthor))
}

func TestRolesForPartnershipManagerMapsToUnicefUser(t *testing.T) {
	svc := NewRoleService()
	claims := &models.JWTClaims{UserID: "u1", Groups: []string{models.GroupPartnershipManager}}

	roles := svc.RolesFor(claims, nil, nil)
	assert.True(t, roles.Has(models.RoleUnicefUser))
}
