package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

func newDiffOnlyJournal() *JournalService {
	return NewJournalService(nil, nil, nil, nil)
}

func TestDiffTracksOnlyDeclaredFields(t *testing.T) {
	svc := newDiffOnlyJournal()

	oldData := models.Fields{"title": "PD one", "scratch": "a"}
	newData := models.Fields{"title": "PD two", "scratch": "b"}

	changed, oldVals, newVals := svc.Diff(models.KindIntervention, oldData, newData)
	assert.Contains(t, changed, "title")
	assert.NotContains(t, changed, "scratch", "undeclared fields never diff")
	assert.Equal(t, "PD one", oldVals["title"])
	assert.Equal(t, "PD two", newVals["title"])
}

func TestDiffIncludesNoiseFields(t *testing.T) {
	svc := newDiffOnlyJournal()

	changed, _, _ := svc.Diff(models.KindIntervention,
		models.Fields{"internal_note": "draft note"},
		models.Fields{"internal_note": "final note"})
	assert.Contains(t, changed, "internal_note", "noise fields diff; filtering happens at read time")
}

func TestDiffEntityRefPairsCompareAsUnits(t *testing.T) {
	svc := newDiffOnlyJournal()

	oldRef := map[string]interface{}{"id": "p1", "str": "Partner One"}
	sameRef := map[string]interface{}{"id": "p1", "str": "Partner One"}
	renamed := map[string]interface{}{"id": "p1", "str": "Partner One Ltd"}

	changed, _, _ := svc.Diff(models.KindIntervention,
		models.Fields{"partner": oldRef}, models.Fields{"partner": sameRef})
	assert.NotContains(t, changed, "partner")

	changed, oldVals, newVals := svc.Diff(models.KindIntervention,
		models.Fields{"partner": oldRef}, models.Fields{"partner": renamed})
	assert.Contains(t, changed, "partner")
	assert.Equal(t, oldRef, oldVals["partner"])
	assert.Equal(t, renamed, newVals["partner"])
}

func TestDiffFieldAppearsAndDisappears(t *testing.T) {
	svc := newDiffOnlyJournal()

	changed, oldVals, newVals := svc.Diff(models.KindIntervention,
		models.Fields{}, models.Fields{"override_reason": "write-off"})
	assert.Contains(t, changed, "override_reason")
	assert.NotContains(t, oldVals, "override_reason")
	assert.Equal(t, "write-off", newVals["override_reason"])

	changed, oldVals, newVals = svc.Diff(models.KindIntervention,
		models.Fields{"override_reason": "write-off"}, models.Fields{})
	assert.Contains(t, changed, "override_reason")
	assert.Equal(t, "write-off", oldVals["override_reason"])
	assert.NotContains(t, newVals, "override_reason")
}

func TestDiffUnknownKindIsEmpty(t *testing.T) {
	svc := newDiffOnlyJournal()
	changed, _, _ := svc.Diff("unknown", models.Fields{"title": "a"}, models.Fields{"title": "b"})
	assert.Empty(t, changed)
}

func TestIsNoiseOnly(t *testing.T) {
	svc := newDiffOnlyJournal()

	noise := models.JournalEntry{
		DocumentKind:  models.KindIntervention,
		Action:        models.ActionUpdate,
		ChangedFields: models.Fields{"internal_note": true},
	}
	assert.True(t, svc.isNoiseOnly(noise))

	mixed := models.JournalEntry{
		DocumentKind:  models.KindIntervention,
		Action:        models.ActionUpdate,
		ChangedFields: models.Fields{"internal_note": true, "title": true},
	}
	assert.False(t, svc.isNoiseOnly(mixed))

	transition := models.JournalEntry{
		DocumentKind:  models.KindIntervention,
		Action:        models.ActionTransition,
		ChangedFields: models.Fields{"internal_note": true},
	}
	assert.False(t, svc.isNoiseOnly(transition), "transitions are always meaningful")

	empty := models.JournalEntry{
		DocumentKind: models.KindIntervention,
		Action:       models.ActionUpdate,
	}
	assert.False(t, svc.isNoiseOnly(empty))
}

func newJournalServiceMock(t *testing.T) (*JournalService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	svc := NewJournalService(
		repository.NewJournalRepository(sqlxDB),
		repository.NewDocumentRepository(sqlxDB),
		repository.NewChildRowRepository(sqlxDB),
		nil,
	)
	return svc, mock
}

func journalEntryRow(entry models.JournalEntry) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "document_id", "document_kind", "object_kind", "object_id",
		"actor_id", "action", "transition_name", "changed_fields", "old_values",
		"new_values", "created_at",
	})
	changed, _ := entry.ChangedFields.Value()
	oldVals, _ := entry.OldValues.Value()
	newVals, _ := entry.NewValues.Value()
	rows.AddRow(entry.ID, entry.DocumentID, entry.DocumentKind, entry.ObjectKind,
		entry.ObjectID, entry.ActorID, entry.Action, nil, changed, oldVals,
		newVals, time.Now().UTC())
	return rows
}

func revertDocumentRow(doc models.Document) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "kind", "tenant", "reference_number", "status", "status_date",
		"author_id", "amendment_of", "rollup_pending", "data", "created_at", "updated_at",
	})
	data, _ := doc.Data.Value()
	now := time.Now().UTC()
	rows.AddRow(doc.ID, doc.Kind, doc.Tenant, doc.ReferenceNumber, doc.Status,
		now, doc.AuthorID, nil, false, data, now, now)
	return rows
}

func TestRevertUpdateEntryReinstatesDeletedRow(t *testing.T) {
	svc, mock := newJournalServiceMock(t)
	deletedAt := time.Now().UTC()
	rowData, _ := models.Fields{"unit_price": 9.0}.Value()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM journal_entries WHERE id = $1`)).
		WithArgs("j1").
		WillReturnRows(journalEntryRow(models.JournalEntry{
			ID: "j1", DocumentID: "d1", DocumentKind: models.KindIntervention,
			ObjectKind: models.JournalObjectChildRow, ObjectID: "c1",
			ActorID: "u1", Action: models.ActionUpdate,
			ChangedFields: models.Fields{"unit_price": true},
			OldValues:     models.Fields{"unit_price": 5.0},
			NewValues:     models.Fields{"unit_price": 9.0},
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(revertDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionActive, AuthorID: "u1", Data: models.Fields{},
		}))
	// The row was soft deleted after the reverted update; it comes back.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM child_rows WHERE id = $1`)).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "document_id", "parent_id", "kind", "code", "ordinal", "active",
			"unicef_cash", "cso_cash", "data", "created_at", "updated_at", "deleted_at",
		}).AddRow("c1", "d1", nil, models.ChildActivityItem, "1.1", 1, true,
			0.0, 0.0, rowData, deletedAt, deletedAt, deletedAt))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE child_rows SET deleted_at = NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE child_rows SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO journal_entries`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc, err := svc.Revert(context.Background(), "kenya", "j1", "admin-1",
		models.NewRoleSet(models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevertRefusedOnTerminalDocument(t *testing.T) {
	svc, mock := newJournalServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM journal_entries WHERE id = $1`)).
		WithArgs("j1").
		WillReturnRows(journalEntryRow(models.JournalEntry{
			ID: "j1", DocumentID: "d1", DocumentKind: models.KindIntervention,
			ObjectKind: models.JournalObjectDocument, ObjectID: "d1",
			ActorID: "u1", Action: models.ActionUpdate,
			ChangedFields: models.Fields{"title": true},
			OldValues:     models.Fields{"title": "PD one"},
			NewValues:     models.Fields{"title": "PD two"},
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(revertDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionClosed, AuthorID: "u1", Data: models.Fields{},
		}))
	mock.ExpectRollback()

	_, err := svc.Revert(context.Background(), "kenya", "j1", "admin-1",
		models.NewRoleSet(models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJSONEqual(t *testing.T) {
	assert.True(t, jsonEqual("a", "a"))
	assert.True(t, jsonEqual(nil, nil))
	assert.False(t, jsonEqual("a", "b"))
	assert.False(t, jsonEqual(nil, "a"))
	assert.True(t, jsonEqual(
		[]interface{}{map[string]interface{}{"id": "1"}},
		[]interface{}{map[string]interface{}{"id": "1"}}))
}
