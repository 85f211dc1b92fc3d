package service

import (
	"github.com/unicef/etools-docflow/internal/models"
)

// RoleService resolves the role tags an actor holds with respect to one
// document: global tags derived from identity provider groups plus document
// scoped tags from participant links. Pure function over its inputs; an
// unknown actor simply resolves to an empty set.
type RoleService struct{}

// NewRoleService constructs the service.
func NewRoleService() *RoleService {
	return &RoleService{}
}

var groupRoleTags = map[string]models.RoleTag{
	models.GroupUnicefUser:         models.RoleUnicefUser,
	models.GroupPartnershipManager: models.RoleUnicefUser,
	models.GroupPME:                models.RolePME,
	models.GroupPRCSecretary:       models.RolePRCSecretary,
	models.GroupSeniorManagement:   models.RoleSeniorManagement,
	models.GroupAuditor:            models.RoleAuditStaff,
	models.GroupThirdPartyMonitor:  models.RoleThirdPartyMonitor,
	models.GroupPartnerOfficer:     models.RolePartnerOfficer,
	models.GroupAdministrator:      models.RoleAdmin,
}

// RolesFor returns every tag the actor holds for this document. The set is
// used as-is by the permission matrix; there is no precedence among tags.
func (s *RoleService) RolesFor(claims *models.JWTClaims, doc *models.Document, participants []models.ParticipantLink) models.RoleSet {
	roles := models.RoleSet{}
	if claims == nil || claims.UserID == "" {
		roles[models.RoleAnonymous] = struct{}{}
		return roles
	}
	if doc != nil && claims.Tenant != "" && doc.Tenant != claims.Tenant {
		// Tenant mismatch resolves like an unknown actor.
		return roles
	}

	for _, group := range claims.Groups {
		if tag, ok := groupRoleTags[group]; ok {
			roles[tag] = struct{}{}
		}
	}

	if doc != nil && doc.AuthorID == claims.UserID {
		roles[models.RoleAuthor] = struct{}{}
	}

	for _, link := range participants {
		if link.ActorID != claims.UserID {
			continue
		}
		if !models.DocumentScopedRoles.Has(link.Role) {
			continue
		}
		roles[link.Role] = struct{}{}
	}

	return roles
}
