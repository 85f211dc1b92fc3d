package models

import "time"

// ParticipantLink ties an actor to a document under a document scoped role.
// The role set here is disjoint from the global role set.
type ParticipantLink struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	ActorID    string    `db:"actor_id" json:"actorId"`
	Role       RoleTag   `db:"role" json:"role"`
	Ordinal    int       `db:"ordinal" json:"ordinal"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// DocumentScopedRoles lists the tags a participant link may carry.
var DocumentScopedRoles = NewRoleSet(
	RoleFocalPoint,
	RoleBudgetOwner,
	RolePartnerFocalPoint,
	RoleOverallApprover,
	RoleAuthorizedOfficer,
	RoleTPMFocalPoint,
)
