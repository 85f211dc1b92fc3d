package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// PartnerRepository persists partner organizations and their HACT counters.
type PartnerRepository struct {
	db *sqlx.DB
}

// NewPartnerRepository constructs the repository.
func NewPartnerRepository(db *sqlx.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

const partnerColumns = `id, vendor_number, name, programmatic_visits, hact_last_recalculated, created_at, updated_at`

// GetByID fetches a partner.
func (r *PartnerRepository) GetByID(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1`
	var partner models.Partner
	if err := sqlx.GetContext(ctx, q, &partner, query, id); err != nil {
		return nil, err
	}
	return &partner, nil
}

// GetForUpdate loads a partner under a row lock. Counter bumps from
// concurrent activity completions serialize here.
func (r *PartnerRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1 FOR UPDATE`
	var partner models.Partner
	if err := tx.GetContext(ctx, &partner, query, id); err != nil {
		return nil, err
	}
	return &partner, nil
}

// UpdateProgrammaticVisits stores a recomputed counter value.
func (r *PartnerRepository) UpdateProgrammaticVisits(ctx context.Context, q sqlx.ExtContext, id string, visits int) error {
	const query = `UPDATE partners SET programmatic_visits = $1, hact_last_recalculated = $2, updated_at = $2 WHERE id = $3`
	if _, err := q.ExecContext(ctx, query, visits, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update programmatic visits: %w", err)
	}
	return nil
}

// CountProgrammaticVisits recomputes the counter from completed programmatic
// monitoring activities: distinct (partner, end date) pairs.
func (r *PartnerRepository) CountProgrammaticVisits(ctx context.Context, q sqlx.QueryerContext, partnerID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT data->>'end_date') FROM documents
	WHERE kind = $1 AND status = $2
	  AND data->>'partner' = $3 AND data->>'activity_type' = 'programmatic_visit'`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, models.KindMonitoringActivity, models.ActivityCompleted, partnerID); err != nil {
		return 0, fmt.Errorf("count programmatic visits: %w", err)
	}
	return count, nil
}
