package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unicef/etools-docflow/internal/models"
)

func strPtr(s string) *string { return &s }

func TestActivityTotalItemsOverrideActivityAmounts(t *testing.T) {
	svc := NewRollupService()

	activity := models.ChildRow{ID: "a1", Kind: models.ChildActivity, Active: true, UnicefCash: 100, CSOCash: 50}

	unicef, cso := svc.ActivityTotal(activity, nil)
	assert.Equal(t, 100.0, unicef, "itemless activity keeps its own amounts")
	assert.Equal(t, 50.0, cso)

	items := []models.ChildRow{
		{Kind: models.ChildActivityItem, ParentID: strPtr("a1"), Active: true, UnicefCash: 30, CSOCash: 10},
		{Kind: models.ChildActivityItem, ParentID: strPtr("a1"), Active: true, UnicefCash: 40, CSOCash: 5},
		{Kind: models.ChildActivityItem, ParentID: strPtr("a1"), Active: false, UnicefCash: 999},
	}
	unicef, cso = svc.ActivityTotal(activity, items)
	assert.Equal(t, 70.0, unicef, "items replace the activity amounts")
	assert.Equal(t, 15.0, cso)
}

func TestBudgetSumsActiveActivities(t *testing.T) {
	svc := NewRollupService()
	deleted := time.Now()

	doc := &models.Document{
		Kind: models.KindIntervention,
		Data: models.Fields{"in_kind_amount": 200.0, "supply_total": 50.0},
	}
	children := []models.ChildRow{
		{ID: "a1", Kind: models.ChildActivity, Active: true, UnicefCash: 1000, CSOCash: 300},
		{ID: "a2", Kind: models.ChildActivity, Active: false, UnicefCash: 500},
		{ID: "a3", Kind: models.ChildActivity, Active: true, UnicefCash: 400, DeletedAt: &deleted},
		{ID: "r1", Kind: models.ChildResultLink, Active: true, UnicefCash: 777},
	}

	total, unicefCash, csoCash := svc.Budget(doc, children)
	assert.Equal(t, 1000.0, unicefCash)
	assert.Equal(t, 300.0, csoCash)
	assert.Equal(t, 1550.0, total, "budget adds in kind and supply amounts")
}

func TestBudgetZeroRows(t *testing.T) {
	svc := NewRollupService()
	doc := &models.Document{Kind: models.KindIntervention, Data: models.Fields{}}

	total, unicefCash, csoCash := svc.Budget(doc, nil)
	assert.Zero(t, total)
	assert.Zero(t, unicefCash)
	assert.Zero(t, csoCash)
}

func TestFRTotalsCurrencyAndDates(t *testing.T) {
	svc := NewRollupService()
	doc := &models.Document{Data: models.Fields{"currency": "USD"}}

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	totals := svc.FRTotals(doc, []models.Reservation{
		{Currency: "USD", TotalAmtLocal: 100, ActualAmtLocal: 100, StartDate: &mid, EndDate: &late},
		{Currency: "KES", TotalAmtLocal: 50, OutstandingAmtLocal: 10, StartDate: &early, EndDate: &mid},
	})

	assert.Equal(t, 150.0, totals.TotalAmtLocal)
	assert.Equal(t, 100.0, totals.ActualAmtLocal)
	assert.Equal(t, 10.0, totals.OutstandingAmtLocal)
	assert.False(t, totals.CurrenciesMatch, "reservations disagree on currency")
	assert.Equal(t, early, *totals.EarliestStartDate)
	assert.Equal(t, late, *totals.LatestEndDate)
}

func TestFRTotalsSharedForeignCurrencyMatches(t *testing.T) {
	svc := NewRollupService()
	doc := &models.Document{Data: models.Fields{"currency": "USD"}}

	// The flag measures agreement among the reservations themselves; a
	// document budgeted in USD with two EUR reservations still matches.
	totals := svc.FRTotals(doc, []models.Reservation{
		{Currency: "EUR", TotalAmtLocal: 100},
		{Currency: "EUR", TotalAmtLocal: 50},
	})
	assert.True(t, totals.CurrenciesMatch)

	totals = svc.FRTotals(doc, []models.Reservation{
		{Currency: "EUR", TotalAmtLocal: 100},
		{Currency: "KES", TotalAmtLocal: 50},
	})
	assert.False(t, totals.CurrenciesMatch)
}

func TestFRTotalsNoReservations(t *testing.T) {
	svc := NewRollupService()
	doc := &models.Document{Data: models.Fields{"currency": "USD"}}

	totals := svc.FRTotals(doc, nil)
	assert.True(t, totals.CurrenciesMatch, "no linked reservations keep the flag true")
	assert.Zero(t, totals.TotalAmtLocal)
	assert.Nil(t, totals.EarliestStartDate)
}

func TestApplyWritesDerivedKeys(t *testing.T) {
	svc := NewRollupService()
	doc := &models.Document{Kind: models.KindIntervention, Data: models.Fields{"currency": "USD"}}

	children := []models.ChildRow{
		{ID: "a1", Kind: models.ChildActivity, Active: true, UnicefCash: 500, CSOCash: 100},
	}
	reservations := []models.Reservation{
		{Currency: "USD", TotalAmtLocal: 600, TotalAmt: 600, ActualAmtLocal: 600, ActualAmt: 600},
	}
	svc.Apply(doc, children, reservations)

	assert.Equal(t, 600.0, doc.Data["total_budget"])
	assert.Equal(t, 500.0, doc.Data["unicef_cash_total"])
	assert.Equal(t, 100.0, doc.Data["cso_contribution_total"])
	assert.Equal(t, 600.0, doc.Data["fr_total_amt_local"])
	assert.Equal(t, 600.0, doc.Data["fr_total_actual_amt_local"])
	assert.Equal(t, 0.0, doc.Data["fr_total_outstanding_amt_local"])
	assert.Equal(t, true, doc.Data["fr_currencies_match"])
}
