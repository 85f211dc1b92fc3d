package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// ReservationRepository persists ERP fund reservations. Reservations are a
// shared pool: claims by documents are exclusive and released explicitly.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, fr_number, vendor_code, currency, total_amt_local, total_amt,
       actual_amt_local, actual_amt, outstanding_amt_local, outstanding_amt,
       start_date, end_date, document_id, created_at, updated_at`

// GetByFRNumber fetches a reservation by its globally unique business key.
func (r *ReservationRepository) GetByFRNumber(ctx context.Context, q sqlx.QueryerContext, frNumber string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE fr_number = $1`
	var res models.Reservation
	if err := sqlx.GetContext(ctx, q, &res, query, frNumber); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListByDocument returns the reservations claimed by one document.
func (r *ReservationRepository) ListByDocument(ctx context.Context, q sqlx.QueryerContext, documentID string) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE document_id = $1 ORDER BY fr_number`
	var reservations []models.Reservation
	if err := sqlx.SelectContext(ctx, q, &reservations, query, documentID); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// Create inserts a reservation row.
func (r *ReservationRepository) Create(ctx context.Context, q sqlx.ExtContext, res *models.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	const query = `INSERT INTO reservations
	(id, fr_number, vendor_code, currency, total_amt_local, total_amt, actual_amt_local, actual_amt,
	 outstanding_amt_local, outstanding_amt, start_date, end_date, document_id, created_at, updated_at)
	VALUES (:id, :fr_number, :vendor_code, :currency, :total_amt_local, :total_amt, :actual_amt_local, :actual_amt,
	 :outstanding_amt_local, :outstanding_amt, :start_date, :end_date, :document_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, res); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// UpdateAmounts persists feed supplied columns only.
func (r *ReservationRepository) UpdateAmounts(ctx context.Context, q sqlx.ExtContext, res *models.Reservation) error {
	res.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reservations SET
		vendor_code = :vendor_code,
		currency = :currency,
		total_amt_local = :total_amt_local,
		total_amt = :total_amt,
		actual_amt_local = :actual_amt_local,
		actual_amt = :actual_amt,
		outstanding_amt_local = :outstanding_amt_local,
		outstanding_amt = :outstanding_amt,
		start_date = :start_date,
		end_date = :end_date,
		updated_at = :updated_at
	WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, q, query, res); err != nil {
		return fmt.Errorf("update reservation amounts: %w", err)
	}
	return nil
}

// Link claims a reservation for a document. The guard on document_id makes
// the claim exclusive; a reservation held elsewhere returns sql.ErrNoRows.
func (r *ReservationRepository) Link(ctx context.Context, q sqlx.ExtContext, frNumber, documentID string) error {
	const query = `UPDATE reservations SET document_id = $1, updated_at = $2
	WHERE fr_number = $3 AND (document_id IS NULL OR document_id = $1)`
	result, err := q.ExecContext(ctx, query, documentID, time.Now().UTC(), frNumber)
	if err != nil {
		return fmt.Errorf("link reservation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reservation link rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Unlink releases a reservation claim held by the given document.
func (r *ReservationRepository) Unlink(ctx context.Context, q sqlx.ExtContext, frNumber, documentID string) error {
	const query = `UPDATE reservations SET document_id = NULL, updated_at = $1
	WHERE fr_number = $2 AND document_id = $3`
	result, err := q.ExecContext(ctx, query, time.Now().UTC(), frNumber, documentID)
	if err != nil {
		return fmt.Errorf("unlink reservation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reservation unlink rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
