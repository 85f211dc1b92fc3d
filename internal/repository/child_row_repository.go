package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// ChildRowRepository persists the owned sub records of a document.
type ChildRowRepository struct {
	db *sqlx.DB
}

// NewChildRowRepository constructs the repository.
func NewChildRowRepository(db *sqlx.DB) *ChildRowRepository {
	return &ChildRowRepository{db: db}
}

const childRowColumns = `id, document_id, parent_id, kind, code, ordinal, active,
       unicef_cash, cso_cash, data, created_at, updated_at, deleted_at`

// ListByDocument returns child rows for a document ordered by code. Soft
// deleted rows are excluded unless includeDeleted is set.
func (r *ChildRowRepository) ListByDocument(ctx context.Context, q sqlx.QueryerContext, documentID string, includeDeleted bool) ([]models.ChildRow, error) {
	query := `SELECT ` + childRowColumns + ` FROM child_rows WHERE document_id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY kind, ordinal`
	var rows []models.ChildRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, documentID); err != nil {
		return nil, fmt.Errorf("list child rows: %w", err)
	}
	return rows, nil
}

// GetByID fetches a child row including soft deleted ones.
func (r *ChildRowRepository) GetByID(ctx context.Context, q sqlx.QueryerContext, id string) (*models.ChildRow, error) {
	query := `SELECT ` + childRowColumns + ` FROM child_rows WHERE id = $1`
	var row models.ChildRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a child row.
func (r *ChildRowRepository) Create(ctx context.Context, q sqlx.ExtContext, row *models.ChildRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.Data == nil {
		row.Data = models.Fields{}
	}
	const query = `INSERT INTO child_rows
	(id, document_id, parent_id, kind, code, ordinal, active, unicef_cash, cso_cash, data, created_at, updated_at, deleted_at)
	VALUES (:id, :document_id, :parent_id, :kind, :code, :ordinal, :active, :unicef_cash, :cso_cash, :data, :created_at, :updated_at, :deleted_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, row); err != nil {
		return fmt.Errorf("create child row: %w", err)
	}
	return nil
}

// Update persists mutable child row columns.
func (r *ChildRowRepository) Update(ctx context.Context, q sqlx.ExtContext, row *models.ChildRow) error {
	row.UpdatedAt = time.Now().UTC()
	const query = `UPDATE child_rows SET
		parent_id = :parent_id,
		code = :code,
		ordinal = :ordinal,
		active = :active,
		unicef_cash = :unicef_cash,
		cso_cash = :cso_cash,
		data = :data,
		updated_at = :updated_at,
		deleted_at = :deleted_at
	WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, q, query, row); err != nil {
		return fmt.Errorf("update child row: %w", err)
	}
	return nil
}

// SoftDelete marks a row and its descendants deleted.
func (r *ChildRowRepository) SoftDelete(ctx context.Context, q sqlx.ExtContext, id string) error {
	now := time.Now().UTC()
	const query = `WITH RECURSIVE descendants AS (
		SELECT id FROM child_rows WHERE id = $1
		UNION ALL
		SELECT c.id FROM child_rows c JOIN descendants d ON c.parent_id = d.id
	)
	UPDATE child_rows SET deleted_at = $2, updated_at = $2
	WHERE id IN (SELECT id FROM descendants) AND deleted_at IS NULL`
	if _, err := q.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("soft delete child row: %w", err)
	}
	return nil
}

// Reinstate clears the soft delete marker on a row.
func (r *ChildRowRepository) Reinstate(ctx context.Context, q sqlx.ExtContext, id string) error {
	const query = `UPDATE child_rows SET deleted_at = NULL, updated_at = $2 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("reinstate child row: %w", err)
	}
	return nil
}
