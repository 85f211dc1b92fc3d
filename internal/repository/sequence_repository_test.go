package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/models"
)

func TestSequenceRepositoryNext(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSequenceRepository(db)

	mock.ExpectQuery("INSERT INTO reference_sequences").
		WithArgs("kenya", models.KindIntervention, 2026).
		WillReturnRows(sqlmock.NewRows([]string{"counter"}).AddRow(42))

	counter, err := repo.Next(context.Background(), db, "kenya", models.KindIntervention, 2026)
	require.NoError(t, err)
	assert.Equal(t, 42, counter)
	assert.NoError(t, mock.ExpectationsWereMet())
}
