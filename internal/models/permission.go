package models

// RoleTag is one entry of the closed role vocabulary. Tags may be global
// (derived from identity provider groups) or scoped to a single document
// (derived from participant links).
type RoleTag string

const (
	RoleUnicefUser        RoleTag = "unicef-user"
	RoleFocalPoint        RoleTag = "focal-point"
	RoleBudgetOwner       RoleTag = "budget-owner"
	RoleAuthor            RoleTag = "author"
	RolePartnerOfficer    RoleTag = "partner-officer"
	RolePartnerFocalPoint RoleTag = "partner-focal-point"
	RolePME               RoleTag = "pme"
	RolePRCSecretary      RoleTag = "prc-secretary"
	RoleOverallApprover   RoleTag = "overall-approver"
	RoleAuthorizedOfficer RoleTag = "authorized-officer"
	RoleThirdPartyMonitor RoleTag = "third-party-monitor"
	RoleTPMFocalPoint     RoleTag = "tpm-focal-point"
	RoleAuditStaff        RoleTag = "audit-staff"
	RoleSeniorManagement  RoleTag = "senior-management"
	RoleAnonymous         RoleTag = "anonymous"
	// RoleAdmin is the only tag allowed to edit terminal documents and to
	// revert journal entries. It is not part of the document scoped set.
	RoleAdmin RoleTag = "admin"
)

// RoleSet is a set of role tags; used as-is, no precedence.
type RoleSet map[RoleTag]struct{}

// NewRoleSet builds a set from tags.
func NewRoleSet(tags ...RoleTag) RoleSet {
	out := make(RoleSet, len(tags))
	for _, t := range tags {
		out[t] = struct{}{}
	}
	return out
}

// Has reports tag membership.
func (rs RoleSet) Has(tag RoleTag) bool {
	_, ok := rs[tag]
	return ok
}

// MatrixEntry is one row of the permission matrix: what a role tag may read,
// write and trigger for a (kind, status) pair.
type MatrixEntry struct {
	Readable    []string
	Writable    []string
	Transitions []string
}

// FieldDeny subtracts fields or transitions after the role union; denies win.
type FieldDeny struct {
	Fields      []string
	Transitions []string
}

// Permissions is the resolved view for one actor against one document.
type Permissions struct {
	Readable    map[string]struct{}
	Writable    map[string]struct{}
	Transitions map[string]struct{}
}

// CanWrite reports field writability.
func (p Permissions) CanWrite(field string) bool {
	_, ok := p.Writable[field]
	return ok
}

// CanTransition reports transition legality.
func (p Permissions) CanTransition(name string) bool {
	_, ok := p.Transitions[name]
	return ok
}
