package models

import "time"

// Reservation mirrors an ERP fund reservation. FR numbers are globally
// unique; a reservation is claimed by at most one document at a time.
type Reservation struct {
	ID                  string     `db:"id" json:"id"`
	FRNumber            string     `db:"fr_number" json:"frNumber"`
	VendorCode          string     `db:"vendor_code" json:"vendorCode"`
	Currency            string     `db:"currency" json:"currency"`
	TotalAmtLocal       float64    `db:"total_amt_local" json:"totalAmtLocal"`
	TotalAmt            float64    `db:"total_amt" json:"totalAmt"`
	ActualAmtLocal      float64    `db:"actual_amt_local" json:"actualAmtLocal"`
	ActualAmt           float64    `db:"actual_amt" json:"actualAmt"`
	OutstandingAmtLocal float64    `db:"outstanding_amt_local" json:"outstandingAmtLocal"`
	OutstandingAmt      float64    `db:"outstanding_amt" json:"outstandingAmt"`
	StartDate           *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate             *time.Time `db:"end_date" json:"endDate,omitempty"`
	DocumentID          *string    `db:"document_id" json:"documentId,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
}

// FRTotals is the derived rollup over a document's linked reservations.
// Currency consistency is derived, never stored.
type FRTotals struct {
	TotalAmtLocal       float64 `json:"totalAmtLocal"`
	TotalAmtUSD         float64 `json:"totalAmtUsd"`
	ActualAmtLocal      float64 `json:"actualAmtLocal"`
	ActualAmtUSD        float64 `json:"actualAmtUsd"`
	OutstandingAmtLocal float64 `json:"outstandingAmtLocal"`
	CurrenciesMatch     bool    `json:"currenciesMatch"`
	EarliestStartDate   *time.Time
	LatestEndDate       *time.Time
}

// FundReservationRecord is one row of a VISION feed batch.
type FundReservationRecord struct {
	FRNumber            string
	VendorCode          string
	Currency            string
	TotalAmtLocal       float64
	TotalAmt            float64
	ActualAmtLocal      float64
	ActualAmt           float64
	OutstandingAmtLocal float64
	OutstandingAmt      float64
	StartDate           *time.Time
	EndDate             *time.Time
}

// ResultNode is one row of the VISION country programme hierarchy feed,
// upserted by WBS. Incompatible result types re-classify the existing row
// instead of failing the unique key.
type ResultNode struct {
	ID         string    `db:"id" json:"id"`
	WBS        string    `db:"wbs" json:"wbs"`
	Name       string    `db:"name" json:"name"`
	ResultType string    `db:"result_type" json:"resultType"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
