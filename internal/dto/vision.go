package dto

import (
	"time"

	"github.com/unicef/etools-docflow/internal/models"
)

// FundReservationFeedItem is one ERP row as received on the feed endpoint.
type FundReservationFeedItem struct {
	FRNumber            string     `json:"fr_number" binding:"required"`
	VendorCode          string     `json:"vendor_code"`
	Currency            string     `json:"currency" binding:"required"`
	TotalAmtLocal       float64    `json:"total_amt_local"`
	TotalAmt            float64    `json:"total_amt"`
	ActualAmtLocal      float64    `json:"actual_amt_local"`
	ActualAmt           float64    `json:"actual_amt"`
	OutstandingAmtLocal float64    `json:"outstanding_amt_local"`
	OutstandingAmt      float64    `json:"outstanding_amt"`
	StartDate           *time.Time `json:"start_date"`
	EndDate             *time.Time `json:"end_date"`
}

// FundReservationFeedRequest is one feed batch.
type FundReservationFeedRequest struct {
	Records []FundReservationFeedItem `json:"records" binding:"required,min=1,dive"`
}

// ToModel converts a feed item to the ingestion record.
func (i FundReservationFeedItem) ToModel() models.FundReservationRecord {
	return models.FundReservationRecord{
		FRNumber:            i.FRNumber,
		VendorCode:          i.VendorCode,
		Currency:            i.Currency,
		TotalAmtLocal:       i.TotalAmtLocal,
		TotalAmt:            i.TotalAmt,
		ActualAmtLocal:      i.ActualAmtLocal,
		ActualAmt:           i.ActualAmt,
		OutstandingAmtLocal: i.OutstandingAmtLocal,
		OutstandingAmt:      i.OutstandingAmt,
		StartDate:           i.StartDate,
		EndDate:             i.EndDate,
	}
}

// ResultNodeFeedItem is one country programme hierarchy row keyed by WBS.
type ResultNodeFeedItem struct {
	WBS        string `json:"wbs" binding:"required"`
	Name       string `json:"name" binding:"required"`
	ResultType string `json:"result_type" binding:"required"`
}

// ResultNodeFeedRequest is one hierarchy feed batch.
type ResultNodeFeedRequest struct {
	Nodes []ResultNodeFeedItem `json:"nodes" binding:"required,min=1,dive"`
}

// ToModel converts a hierarchy item to the upsert record.
func (i ResultNodeFeedItem) ToModel() models.ResultNode {
	return models.ResultNode{
		WBS:        i.WBS,
		Name:       i.Name,
		ResultType: i.ResultType,
	}
}
