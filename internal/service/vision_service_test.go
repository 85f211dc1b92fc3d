package service

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
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

func newVisionServiceMock(t *testing.T) (*VisionService, sqlmock.Sqlmock) {
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
	svc := NewVisionService(
		repository.NewDocumentRepository(sqlxDB),
		repository.NewReservationRepository(sqlxDB),
		repository.NewResultRepository(sqlxDB),
		journal,
		config.VisionConfig{Enabled: true, BatchSize: 100},
	)
	return svc, mock
}

// jsonLacking matches a JSON column value that never mentions the key.
type jsonLacking struct{ key string }

func (m jsonLacking) Match(v driver.Value) bool {
	switch b := v.(type) {
	case []byte:
		return !strings.Contains(string(b), m.key)
	case string:
		return !strings.Contains(b, m.key)
	}
	return false
}

func reservationRow(res models.Reservation) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "fr_number", "vendor_code", "currency", "total_amt_local", "total_amt",
		"actual_amt_local", "actual_amt", "outstanding_amt_local", "outstanding_amt",
		"start_date", "end_date", "document_id", "created_at", "updated_at",
	})
	var docID interface{}
	if res.DocumentID != nil {
		docID = *res.DocumentID
	}
	now := time.Now().UTC()
	rows.AddRow(res.ID, res.FRNumber, res.VendorCode, res.Currency,
		res.TotalAmtLocal, res.TotalAmt, res.ActualAmtLocal, res.ActualAmt,
		res.OutstandingAmtLocal, res.OutstandingAmt, res.StartDate, res.EndDate,
		docID, now, now)
	return rows
}

func TestIngestCurrencyChangeReleasesClaim(t *testing.T) {
	svc, mock := newVisionServiceMock(t)
	docID := "d1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE fr_number = $1`)).
		WithArgs("FR-100").
		WillReturnRows(reservationRow(models.Reservation{
			ID: "r1", FRNumber: "FR-100", VendorCode: "V1", Currency: "USD",
			TotalAmtLocal: 150, ActualAmtLocal: 140, DocumentID: &docID,
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 FOR UPDATE`)).
		WithArgs("d1").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionEnded, AuthorID: "u1",
			Data: models.Fields{"title": "PD one"},
		}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reservations SET document_id = NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The holder gets its rollups flagged stale; its data is written back
	// untouched, with no closure override planted by the feed.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), true,
			jsonLacking{key: "override_reason"}, sqlmock.AnyArg(), "d1", "kenya").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO journal_entries`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reservations SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.IngestReservations(context.Background(), []models.FundReservationRecord{{
		FRNumber: "FR-100", VendorCode: "V1", Currency: "EUR",
		TotalAmtLocal: 150, ActualAmtLocal: 140,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unlinked)
	assert.Equal(t, 1, result.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestUnchangedRecordSkips(t *testing.T) {
	svc, mock := newVisionServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE fr_number = $1`)).
		WithArgs("FR-100").
		WillReturnRows(reservationRow(models.Reservation{
			ID: "r1", FRNumber: "FR-100", VendorCode: "V1", Currency: "USD",
			TotalAmtLocal: 150, ActualAmtLocal: 140,
		}))
	mock.ExpectRollback()

	result, err := svc.IngestReservations(context.Background(), []models.FundReservationRecord{{
		FRNumber: "FR-100", VendorCode: "V1", Currency: "USD",
		TotalAmtLocal: 150, ActualAmtLocal: 140,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Unlinked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestDisabledFeed(t *testing.T) {
	svc, _ := newVisionServiceMock(t)
	svc.cfg.Enabled = false

	_, err := svc.IngestReservations(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.FromError(err).Code)
}
