package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

func newAmendmentServiceMock(t *testing.T) (*AmendmentService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	journal := NewJournalService(
		repository.NewJournalRepository(sqlxDB),
		repository.NewDocumentRepository(sqlxDB),
		repository.NewChildRowRepository(sqlxDB),
		nil,
	)
	svc := NewAmendmentService(
		repository.NewDocumentRepository(sqlxDB),
		repository.NewChildRowRepository(sqlxDB),
		NewRoleService(),
		journal,
	)
	return svc, mock
}

func TestStartAmendmentAllowedOnEndedDocument(t *testing.T) {
	svc, mock := newAmendmentServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			ReferenceNumber: "PD/2026/42", Status: models.InterventionEnded,
			AuthorID: "u1", Data: models.Fields{"title": "PD one"},
		}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM child_rows WHERE document_id = $1 AND deleted_at IS NULL ORDER BY kind, ordinal`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "document_id", "parent_id", "kind", "code", "ordinal", "active",
			"unicef_cash", "cso_cash", "data", "created_at", "updated_at", "deleted_at",
		}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO journal_entries`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	shadow, err := svc.Start(context.Background(),
		&models.JWTClaims{UserID: "u2", Tenant: "kenya"},
		models.KindIntervention, "d1")
	require.NoError(t, err, "ended documents reopen through an amendment")
	assert.Equal(t, models.InterventionDraft, shadow.Status)
	assert.Equal(t, "PD/2026/42-amd/1", shadow.ReferenceNumber)
	require.NotNil(t, shadow.AmendmentOf)
	assert.Equal(t, "d1", *shadow.AmendmentOf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartAmendmentRejectedWhenCancelled(t *testing.T) {
	svc, mock := newAmendmentServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionCancelled, AuthorID: "u1",
		}))
	mock.ExpectRollback()

	_, err := svc.Start(context.Background(),
		&models.JWTClaims{UserID: "u2", Tenant: "kenya"},
		models.KindIntervention, "d1")
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.Contains(t, appErr.Message, "cancelled")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeRecordsAmendmentMergeEntry(t *testing.T) {
	svc, mock := newAmendmentServiceMock(t)
	origID := "d1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("amd1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "amd1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionDraft, AuthorID: "u2", AmendmentOf: &origID,
			Data: models.Fields{"title": "PD one amended"},
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionActive, AuthorID: "u1",
			Data: models.Fields{"title": "PD one", "in_amendment": true},
		}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The whole merge lands as one named transition entry.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO journal_entries`)).
		WithArgs(sqlmock.AnyArg(), "d1", sqlmock.AnyArg(), sqlmock.AnyArg(), "d1",
			"u2", "transition", "amendment_merge",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	original, err := svc.Merge(context.Background(),
		&models.JWTClaims{UserID: "u2", Tenant: "kenya"},
		models.KindIntervention, "amd1")
	require.NoError(t, err)
	assert.Equal(t, "PD one amended", original.Data["title"])
	assert.Equal(t, false, original.Data["in_amendment"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
