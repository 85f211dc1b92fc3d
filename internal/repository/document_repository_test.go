package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func documentRows(docs ...models.Document) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "kind", "tenant", "reference_number", "status", "status_date", "author_id",
		"amendment_of", "rollup_pending", "data", "created_at", "updated_at",
	})
	for _, d := range docs {
		rows.AddRow(d.ID, d.Kind, d.Tenant, d.ReferenceNumber, d.Status, d.StatusDate,
			d.AuthorID, d.AmendmentOf, d.RollupPending, []byte(`{}`), d.CreatedAt, d.UpdatedAt)
	}
	return rows
}

func TestDocumentRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2`)).
		WithArgs("d1", "kenya").
		WillReturnRows(documentRows(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			ReferenceNumber: "PD/2026/1", Status: models.InterventionDraft,
			StatusDate: now, AuthorID: "u1", CreatedAt: now, UpdatedAt: now,
		}))

	doc, err := repo.GetByID(context.Background(), db, "kenya", "d1")
	require.NoError(t, err)
	assert.Equal(t, "PD/2026/1", doc.ReferenceNumber)
	assert.Equal(t, models.InterventionDraft, doc.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryGetByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2`)).
		WithArgs("missing", "kenya").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), db, "kenya", "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.Document{
		Kind: models.KindTravel, Tenant: "kenya", ReferenceNumber: "T2F/2026/9",
		Status: models.TravelPlanned, AuthorID: "u1",
	}
	require.NoError(t, repo.Create(context.Background(), db, doc))
	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.StatusDate.IsZero())
	assert.NotNil(t, doc.Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec("UPDATE documents SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), db, &models.Document{ID: "gone", Tenant: "kenya", Data: models.Fields{}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE tenant = $1 AND kind = $2 AND status IN ($3,$4) ORDER BY created_at DESC LIMIT 50 OFFSET 0`)).
		WithArgs("kenya", models.KindIntervention, models.InterventionActive, models.InterventionSigned).
		WillReturnRows(documentRows(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			ReferenceNumber: "PD/2026/4", Status: models.InterventionActive,
			StatusDate: now, AuthorID: "u1", CreatedAt: now, UpdatedAt: now,
		}))

	docs, err := repo.List(context.Background(), models.DocumentFilter{
		Tenant: "kenya",
		Kind:   models.KindIntervention,
		Status: []models.Status{models.InterventionActive, models.InterventionSigned},
	})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
