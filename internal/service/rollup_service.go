package service

import (
	"github.com/unicef/etools-docflow/internal/models"
)

// RollupService derives monetary aggregates from a document's child rows and
// linked fund reservations. All methods are pure; persistence of the derived
// keys belongs to the callers that hold the transaction.
type RollupService struct{}

// NewRollupService constructs the service.
func NewRollupService() *RollupService {
	return &RollupService{}
}

// ActivityTotal sums unicef and CSO cash of an activity's active items. An
// activity without items keeps its own amounts.
func (s *RollupService) ActivityTotal(activity models.ChildRow, items []models.ChildRow) (unicef, cso float64) {
	hasItems := false
	for _, item := range items {
		if item.Kind != models.ChildActivityItem || !item.Active || item.DeletedAt != nil {
			continue
		}
		hasItems = true
		unicef += item.UnicefCash
		cso += item.CSOCash
	}
	if !hasItems {
		return activity.UnicefCash, activity.CSOCash
	}
	return unicef, cso
}

// Budget computes the total intervention budget: the cash sums over active,
// non deleted activity rows plus the in kind and supply amounts carried on
// the document. Zero rows yield a zero budget.
func (s *RollupService) Budget(doc *models.Document, children []models.ChildRow) (total, unicefCash, csoCash float64) {
	itemsByParent := make(map[string][]models.ChildRow)
	for _, row := range children {
		if row.Kind == models.ChildActivityItem && row.ParentID != nil {
			itemsByParent[*row.ParentID] = append(itemsByParent[*row.ParentID], row)
		}
	}
	for _, row := range children {
		if row.Kind != models.ChildActivity || !row.Active || row.DeletedAt != nil {
			continue
		}
		u, c := s.ActivityTotal(row, itemsByParent[row.ID])
		unicefCash += u
		csoCash += c
	}
	total = unicefCash + csoCash + doc.Data.Float("in_kind_amount") + doc.Data.Float("supply_total")
	return total, unicefCash, csoCash
}

// FRTotals folds the linked reservations into the derived totals. The
// currencies match flag holds while the linked reservations agree on one
// single currency among themselves; no linked reservations leave it true
// with zero sums.
func (s *RollupService) FRTotals(doc *models.Document, reservations []models.Reservation) models.FRTotals {
	totals := models.FRTotals{CurrenciesMatch: true}
	currencies := make(map[string]struct{}, 1)
	for _, r := range reservations {
		totals.TotalAmtLocal += r.TotalAmtLocal
		totals.TotalAmtUSD += r.TotalAmt
		totals.ActualAmtLocal += r.ActualAmtLocal
		totals.ActualAmtUSD += r.ActualAmt
		totals.OutstandingAmtLocal += r.OutstandingAmtLocal
		currencies[r.Currency] = struct{}{}
		if r.StartDate != nil && (totals.EarliestStartDate == nil || r.StartDate.Before(*totals.EarliestStartDate)) {
			start := *r.StartDate
			totals.EarliestStartDate = &start
		}
		if r.EndDate != nil && (totals.LatestEndDate == nil || r.EndDate.After(*totals.LatestEndDate)) {
			end := *r.EndDate
			totals.LatestEndDate = &end
		}
	}
	totals.CurrenciesMatch = len(currencies) <= 1
	return totals
}

// Apply writes the derived keys into the document data map. Derived keys are
// engine owned; the permission matrix never lists them as writable.
func (s *RollupService) Apply(doc *models.Document, children []models.ChildRow, reservations []models.Reservation) {
	if doc.Data == nil {
		doc.Data = models.Fields{}
	}
	total, unicefCash, csoCash := s.Budget(doc, children)
	doc.Data["total_budget"] = total
	doc.Data["unicef_cash_total"] = unicefCash
	doc.Data["cso_contribution_total"] = csoCash

	fr := s.FRTotals(doc, reservations)
	doc.Data["fr_total_amt_local"] = fr.TotalAmtLocal
	doc.Data["fr_total_amt_usd"] = fr.TotalAmtUSD
	doc.Data["fr_total_actual_amt_local"] = fr.ActualAmtLocal
	doc.Data["fr_total_actual_amt_usd"] = fr.ActualAmtUSD
	doc.Data["fr_total_outstanding_amt_local"] = fr.OutstandingAmtLocal
	doc.Data["fr_currencies_match"] = fr.CurrenciesMatch
}
