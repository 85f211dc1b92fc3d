package models

import "time"

// JournalObjectKind scopes a journal entry to the document itself or to one
// of its child rows.
type JournalObjectKind string

const (
	JournalObjectDocument JournalObjectKind = "document"
	JournalObjectChildRow JournalObjectKind = "child_row"
)

// JournalEntry is one append-only record of a successful mutation. Old and
// new values are restricted to tracked fields; nested entity references are
// stored as {id, str} pairs so they stay meaningful after the referent is
// deleted.
type JournalEntry struct {
	ID             string            `db:"id" json:"id"`
	DocumentID     string            `db:"document_id" json:"documentId"`
	DocumentKind   Kind              `db:"document_kind" json:"documentKind"`
	ObjectKind     JournalObjectKind `db:"object_kind" json:"objectKind"`
	ObjectID       string            `db:"object_id" json:"objectId"`
	ActorID        string            `db:"actor_id" json:"actorId"`
	Action         Action            `db:"action" json:"action"`
	TransitionName *string           `db:"transition_name" json:"transitionName,omitempty"`
	ChangedFields  Fields            `db:"changed_fields" json:"changedFields"`
	OldValues      Fields            `db:"old_values" json:"oldValues"`
	NewValues      Fields            `db:"new_values" json:"newValues"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
}

// EntityRef is the {id, str} form used for nested references in diffs.
type EntityRef struct {
	ID  string `json:"id"`
	Str string `json:"str"`
}
