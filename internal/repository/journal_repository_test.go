package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/models"
)

func TestJournalRepositoryAppendFillsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	mock.ExpectExec("INSERT INTO journal_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.JournalEntry{
		DocumentID:   "d1",
		DocumentKind: models.KindIntervention,
		ObjectKind:   models.JournalObjectDocument,
		ObjectID:     "d1",
		ActorID:      "u1",
		Action:       models.ActionUpdate,
	}
	require.NoError(t, repo.Append(context.Background(), db, entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NotNil(t, entry.ChangedFields)
	assert.NotNil(t, entry.OldValues)
	assert.NotNil(t, entry.NewValues)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepositoryCountAndTrim(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM journal_entries WHERE document_id = $1`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2003))

	count, err := repo.CountByDocument(context.Background(), db, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2003, count)

	mock.ExpectExec("DELETE FROM journal_entries WHERE id IN").
		WithArgs("d1", 2000).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.TrimOldest(context.Background(), db, "d1", 2000))
	assert.NoError(t, mock.ExpectationsWereMet())
}
