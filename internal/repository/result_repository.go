package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// ResultRepository persists the VISION country programme hierarchy rows.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// GetByWBS fetches a result node by business key.
func (r *ResultRepository) GetByWBS(ctx context.Context, q sqlx.QueryerContext, wbs string) (*models.ResultNode, error) {
	const query = `SELECT id, wbs, name, result_type, created_at, updated_at FROM result_nodes WHERE wbs = $1`
	var node models.ResultNode
	if err := sqlx.GetContext(ctx, q, &node, query, wbs); err != nil {
		return nil, err
	}
	return &node, nil
}

// Create inserts a result node.
func (r *ResultRepository) Create(ctx context.Context, q sqlx.ExtContext, node *models.ResultNode) error {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now
	const query = `INSERT INTO result_nodes (id, wbs, name, result_type, created_at, updated_at)
	VALUES (:id, :wbs, :name, :result_type, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, node); err != nil {
		return fmt.Errorf("create result node: %w", err)
	}
	return nil
}

// Update persists name and result type. Re-classification of an existing WBS
// flows through here instead of tripping the unique key.
func (r *ResultRepository) Update(ctx context.Context, q sqlx.ExtContext, node *models.ResultNode) error {
	node.UpdatedAt = time.Now().UTC()
	const query = `UPDATE result_nodes SET name = :name, result_type = :result_type, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, q, query, node); err != nil {
		return fmt.Errorf("update result node: %w", err)
	}
	return nil
}
