package models

import "time"

// TimeFrame is one quarter inside a document's start/end range. Frames are
// recalculated whenever the range moves; activities referencing a frame that
// fell out of range are rejected.
type TimeFrame struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	Ordinal    int       `db:"ordinal" json:"ordinal"`
	StartDate  time.Time `db:"start_date" json:"startDate"`
	EndDate    time.Time `db:"end_date" json:"endDate"`
}
