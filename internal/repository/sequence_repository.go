package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// SequenceRepository mints reference numbers from tenant scoped counters.
// The upsert takes a row lock on the counter, so numbers within one
// (tenant, kind, year) are dense and monotonically increasing.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the counter for (tenant, kind, year).
func (r *SequenceRepository) Next(ctx context.Context, q sqlx.QueryerContext, tenant string, kind models.Kind, year int) (int, error) {
	const query = `INSERT INTO reference_sequences (tenant, kind, year, counter)
	VALUES ($1, $2, $3, 1)
	ON CONFLICT (tenant, kind, year)
	DO UPDATE SET counter = reference_sequences.counter + 1
	RETURNING counter`
	var counter int
	if err := sqlx.GetContext(ctx, q, &counter, query, tenant, kind, year); err != nil {
		return 0, fmt.Errorf("next reference sequence: %w", err)
	}
	return counter, nil
}
