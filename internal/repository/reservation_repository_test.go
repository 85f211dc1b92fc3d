package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationRepositoryLinkClaims(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE fr_number = $3 AND (document_id IS NULL OR document_id = $1)`)).
		WithArgs("doc-1", sqlmock.AnyArg(), "FR-100").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Link(context.Background(), db, "FR-100", "doc-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryLinkHeldElsewhere(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	// The guard matches zero rows when another document holds the claim.
	mock.ExpectExec(regexp.QuoteMeta(`WHERE fr_number = $3 AND (document_id IS NULL OR document_id = $1)`)).
		WithArgs("doc-2", sqlmock.AnyArg(), "FR-100").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Link(context.Background(), db, "FR-100", "doc-2")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryUnlinkNotHeld(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE fr_number = $2 AND document_id = $3`)).
		WithArgs(sqlmock.AnyArg(), "FR-100", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Unlink(context.Background(), db, "FR-100", "doc-1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryGetByFRNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "fr_number", "vendor_code", "currency", "total_amt_local", "total_amt",
		"actual_amt_local", "actual_amt", "outstanding_amt_local", "outstanding_amt",
		"start_date", "end_date", "document_id", "created_at", "updated_at",
	}).AddRow("r1", "FR-100", "V1", "USD", 1000.0, 1000.0, 1000.0, 1000.0, 0.0, 0.0, nil, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE fr_number = $1`)).
		WithArgs("FR-100").
		WillReturnRows(rows)

	res, err := repo.GetByFRNumber(context.Background(), db, "FR-100")
	require.NoError(t, err)
	assert.Equal(t, "USD", res.Currency)
	assert.Nil(t, res.DocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
