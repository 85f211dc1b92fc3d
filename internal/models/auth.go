package models

import "github.com/golang-jwt/jwt/v5"

// Identity provider group names feeding global role tags.
const (
	GroupUnicefUser         = "UNICEF User"
	GroupPartnershipManager = "Partnership Manager"
	GroupPME                = "PME"
	GroupPRCSecretary       = "PRC Secretary"
	GroupSeniorManagement   = "Senior Management Team"
	GroupAuditor            = "Auditor"
	GroupThirdPartyMonitor  = "Third Party Monitor"
	GroupPartnerOfficer     = "Partner Officer"
	GroupAdministrator      = "Administrator"
)

// JWTClaims is the token payload supplied by the external identity provider:
// actor identity, tenant, and global group memberships.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Tenant string   `json:"tenant"`
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// InGroup reports membership of a provider group.
func (c *JWTClaims) InGroup(name string) bool {
	if c == nil {
		return false
	}
	for _, g := range c.Groups {
		if g == name {
			return true
		}
	}
	return false
}
