package models

import "time"

// Partner carries the HACT counters updated as a side effect of completed
// monitoring activities. Counter updates take a row lock on the partner.
type Partner struct {
	ID                  string    `db:"id" json:"id"`
	VendorNumber        string    `db:"vendor_number" json:"vendorNumber"`
	Name                string    `db:"name" json:"name"`
	ProgrammaticVisits  int       `db:"programmatic_visits" json:"programmaticVisits"`
	HACTLastRecalculated time.Time `db:"hact_last_recalculated" json:"hactLastRecalculated"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}
