package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// TimeFrameRepository persists the quarter entities of a document.
type TimeFrameRepository struct {
	db *sqlx.DB
}

// NewTimeFrameRepository constructs the repository.
func NewTimeFrameRepository(db *sqlx.DB) *TimeFrameRepository {
	return &TimeFrameRepository{db: db}
}

// ListByDocument returns time frames ordered by ordinal.
func (r *TimeFrameRepository) ListByDocument(ctx context.Context, q sqlx.QueryerContext, documentID string) ([]models.TimeFrame, error) {
	const query = `SELECT id, document_id, ordinal, start_date, end_date
	FROM time_frames WHERE document_id = $1 ORDER BY ordinal`
	var frames []models.TimeFrame
	if err := sqlx.SelectContext(ctx, q, &frames, query, documentID); err != nil {
		return nil, fmt.Errorf("list time frames: %w", err)
	}
	return frames, nil
}

// ReplaceForDocument swaps the full frame set after a range recalculation.
func (r *TimeFrameRepository) ReplaceForDocument(ctx context.Context, q sqlx.ExtContext, documentID string, frames []models.TimeFrame) error {
	const deleteQuery = `DELETE FROM time_frames WHERE document_id = $1`
	if _, err := q.ExecContext(ctx, deleteQuery, documentID); err != nil {
		return fmt.Errorf("clear time frames: %w", err)
	}
	const insertQuery = `INSERT INTO time_frames (id, document_id, ordinal, start_date, end_date)
	VALUES (:id, :document_id, :ordinal, :start_date, :end_date)`
	for i := range frames {
		if frames[i].ID == "" {
			frames[i].ID = uuid.NewString()
		}
		frames[i].DocumentID = documentID
		if _, err := sqlx.NamedExecContext(ctx, q, insertQuery, &frames[i]); err != nil {
			return fmt.Errorf("insert time frame: %w", err)
		}
	}
	return nil
}
