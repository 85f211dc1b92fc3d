package models

import "time"

// ChildRowKind tags the level of a child row inside the shallow tree
// ResultLink -> LowerResult -> Activity -> ActivityItem, plus the flat
// families (itinerary items, expenses).
type ChildRowKind string

const (
	ChildResultLink    ChildRowKind = "result_link"
	ChildLowerResult   ChildRowKind = "lower_result"
	ChildActivity      ChildRowKind = "activity"
	ChildActivityItem  ChildRowKind = "activity_item"
	ChildItineraryItem ChildRowKind = "itinerary_item"
	ChildExpense       ChildRowKind = "expense"
)

// ChildRow is an owned sub record of a document. Codes derive from the
// parent: "{parent.code}.{ordinal}", renumbered dense on sibling changes.
// Monetary fields default to zero, never null.
type ChildRow struct {
	ID         string       `db:"id" json:"id"`
	DocumentID string       `db:"document_id" json:"documentId"`
	ParentID   *string      `db:"parent_id" json:"parentId,omitempty"`
	Kind       ChildRowKind `db:"kind" json:"kind"`
	Code       string       `db:"code" json:"code"`
	Ordinal    int          `db:"ordinal" json:"ordinal"`
	Active     bool         `db:"active" json:"active"`
	UnicefCash float64      `db:"unicef_cash" json:"unicefCash"`
	CSOCash    float64      `db:"cso_cash" json:"csoCash"`
	Data       Fields       `db:"data" json:"data"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updatedAt"`
	DeletedAt  *time.Time   `db:"deleted_at" json:"deletedAt,omitempty"`
}

// ChildOpKind tags one entry of a child operation batch.
type ChildOpKind string

const (
	ChildOpCreate ChildOpKind = "create"
	ChildOpUpdate ChildOpKind = "update"
	ChildOpDelete ChildOpKind = "delete"
)

// ChildOp is one tagged operation inside a nested write. The whole batch is
// validated first and applied in a single transaction; no partial writes.
type ChildOp struct {
	Op         ChildOpKind  `json:"op"`
	ID         string       `json:"id,omitempty"`
	ParentID   *string      `json:"parentId,omitempty"`
	Kind       ChildRowKind `json:"kind,omitempty"`
	UnicefCash *float64     `json:"unicefCash,omitempty"`
	CSOCash    *float64     `json:"csoCash,omitempty"`
	Data       Fields       `json:"data,omitempty"`
}
