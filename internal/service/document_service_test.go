package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	"github.com/unicef/etools-docflow/pkg/config"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

func newDocumentServiceMock(t *testing.T) (*DocumentService, sqlmock.Sqlmock, *sqlx.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	svc := NewDocumentService(
		repository.NewDocumentRepository(sqlxDB),
		repository.NewChildRowRepository(sqlxDB),
		repository.NewSequenceRepository(sqlxDB),
		repository.NewParticipantRepository(sqlxDB),
		repository.NewReservationRepository(sqlxDB),
		repository.NewTimeFrameRepository(sqlxDB),
		NewRoleService(),
		NewPermissionService(),
		NewRollupService(),
		NewJournalService(nil, nil, nil, nil),
		nil,
	)
	return svc, mock, sqlxDB
}

func strP(s string) *string { return &s }

func TestRenumberChildRowsDenseCodes(t *testing.T) {
	svc, mock, sqlxDB := newDocumentServiceMock(t)
	base := time.Now().UTC()

	rows := []models.ChildRow{
		{ID: "r1", DocumentID: "d1", Kind: models.ChildResultLink, Code: "7", Ordinal: 7, CreatedAt: base},
		{ID: "r2", DocumentID: "d1", Kind: models.ChildResultLink, Code: "9", Ordinal: 9, CreatedAt: base},
		{ID: "c1", DocumentID: "d1", ParentID: strP("r1"), Kind: models.ChildLowerResult, Code: "7.4", Ordinal: 4, CreatedAt: base},
	}

	mock.ExpectBegin()
	// Every row carries a stale code, so each one is rewritten.
	for range rows {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE child_rows SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)
	require.NoError(t, svc.renumberChildRows(context.Background(), tx, rows))

	assert.Equal(t, "1", rows[0].Code)
	assert.Equal(t, 1, rows[0].Ordinal)
	assert.Equal(t, "2", rows[1].Code)
	assert.Equal(t, 2, rows[1].Ordinal)
	assert.Equal(t, "1.1", rows[2].Code)
	assert.Equal(t, 1, rows[2].Ordinal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyChildOpsRejectsUnknownTimeFrame(t *testing.T) {
	svc, mock, _ := newDocumentServiceMock(t)
	base := time.Now().UTC()
	rowData, _ := models.Fields{"name": "activity one"}.Value()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionDraft, AuthorID: "u1",
			Data: models.Fields{"start": "2026-01-01", "end": "2026-06-30"},
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM participant_links WHERE document_id = $1 ORDER BY role, ordinal`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "actor_id", "role", "ordinal", "created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM child_rows WHERE document_id = $1 AND deleted_at IS NULL ORDER BY kind, ordinal`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "document_id", "parent_id", "kind", "code", "ordinal", "active",
			"unicef_cash", "cso_cash", "data", "created_at", "updated_at", "deleted_at",
		}).AddRow("c1", "d1", nil, models.ChildActivity, "1", 1, true,
			0.0, 0.0, rowData, base, base, nil))
	// The document runs January through June: quarters 1 and 2 only.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM time_frames WHERE document_id = $1 ORDER BY ordinal`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "ordinal", "start_date", "end_date"}).
			AddRow("tf1", "d1", 1, base, base).
			AddRow("tf2", "d1", 2, base, base))
	mock.ExpectRollback()

	_, err := svc.ApplyChildOps(context.Background(),
		&models.JWTClaims{UserID: "u1", Tenant: "kenya"},
		models.KindIntervention, "d1",
		[]models.ChildOp{{
			Op: models.ChildOpUpdate, ID: "c1",
			Data: models.Fields{"time_frames": []interface{}{1, 5}},
		}})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Fields["ops[0].data.time_frames"], "quarter 5")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newBulkCloseServiceMock(t *testing.T) (*DocumentService, sqlmock.Sqlmock) {
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
	transitions := NewTransitionService(
		repository.NewDocumentRepository(sqlxDB),
		repository.NewChildRowRepository(sqlxDB),
		repository.NewReservationRepository(sqlxDB),
		repository.NewAttachmentRepository(sqlxDB),
		repository.NewParticipantRepository(sqlxDB),
		NewRoleService(),
		NewPermissionService(),
		NewRollupService(),
		journal,
		config.EngineConfig{MaxAutoFollowHops: 1},
	)
	svc := NewDocumentService(
		repository.NewDocumentRepository(sqlxDB),
		repository.NewChildRowRepository(sqlxDB),
		repository.NewSequenceRepository(sqlxDB),
		repository.NewParticipantRepository(sqlxDB),
		repository.NewReservationRepository(sqlxDB),
		repository.NewTimeFrameRepository(sqlxDB),
		NewRoleService(),
		NewPermissionService(),
		NewRollupService(),
		journal,
		transitions,
	)
	return svc, mock
}

func TestBulkClosePartialSuccess(t *testing.T) {
	svc, mock := newBulkCloseServiceMock(t)

	// "ok" closes: ended, no open amendment, zero FR totals balance.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("ok", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "ok", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionEnded, AuthorID: "u1",
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM participant_links WHERE document_id = $1 ORDER BY role, ordinal`)).
		WithArgs("ok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "actor_id", "role", "ordinal", "created_at"}))
	emptyGuardContextQueries(mock, "ok")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO journal_entries`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// "gone" fails without stopping the batch.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("gone", "kenya").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	result, err := svc.BulkClose(context.Background(),
		&models.JWTClaims{UserID: "u1", Tenant: "kenya"},
		models.KindIntervention, []string{"ok", "gone"})
	require.NoError(t, err, "a failed id never fails the batch")
	assert.Equal(t, []string{"ok"}, result.Closed)
	assert.Equal(t, "document not found", result.Errors["gone"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenumberChildRowsAlreadyDense(t *testing.T) {
	svc, mock, sqlxDB := newDocumentServiceMock(t)
	base := time.Now().UTC()

	rows := []models.ChildRow{
		{ID: "r1", DocumentID: "d1", Kind: models.ChildResultLink, Code: "1", Ordinal: 1, CreatedAt: base},
		{ID: "c1", DocumentID: "d1", ParentID: strP("r1"), Kind: models.ChildLowerResult, Code: "1.1", Ordinal: 1, CreatedAt: base},
	}

	mock.ExpectBegin()
	// No updates expected: nothing changed.

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)
	require.NoError(t, svc.renumberChildRows(context.Background(), tx, rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
