package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// DocumentRepository persists the status bearing documents of every kind.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// DB exposes the underlying handle for transaction management.
func (r *DocumentRepository) DB() *sqlx.DB {
	return r.db
}

const documentColumns = `id, kind, tenant, reference_number, status, status_date, author_id,
       amendment_of, rollup_pending, data, created_at, updated_at`

// Create inserts a new document row.
func (r *DocumentRepository) Create(ctx context.Context, q sqlx.ExtContext, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.StatusDate.IsZero() {
		doc.StatusDate = now
	}
	if doc.Data == nil {
		doc.Data = models.Fields{}
	}
	const query = `INSERT INTO documents
	(id, kind, tenant, reference_number, status, status_date, author_id, amendment_of, rollup_pending, data, created_at, updated_at)
	VALUES (:id, :kind, :tenant, :reference_number, :status, :status_date, :author_id, :amendment_of, :rollup_pending, :data, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID fetches a document scoped to the tenant.
func (r *DocumentRepository) GetByID(ctx context.Context, q sqlx.QueryerContext, tenant, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND tenant = $2`
	var doc models.Document
	if err := sqlx.GetContext(ctx, q, &doc, query, id, tenant); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetForUpdate loads a document under a row lock. All transitions and
// rollups against one document are serialized through this lock.
func (r *DocumentRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, tenant, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`
	var doc models.Document
	if err := tx.GetContext(ctx, &doc, query, id, tenant); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetForUpdateByID locks a document without tenant scoping. Reserved for
// system actors like the ERP feed, which is not tenant bound.
func (r *DocumentRepository) GetForUpdateByID(ctx context.Context, tx *sqlx.Tx, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
	var doc models.Document
	if err := tx.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update persists mutable columns.
func (r *DocumentRepository) Update(ctx context.Context, q sqlx.ExtContext, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE documents SET
		status = :status,
		status_date = :status_date,
		rollup_pending = :rollup_pending,
		data = :data,
		updated_at = :updated_at
	WHERE id = :id AND tenant = :tenant`
	result, err := sqlx.NamedExecContext(ctx, q, query, doc)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document update rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update document: no rows affected")
	}
	return nil
}

// List returns documents matching the filter (latest first).
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + documentColumns + ` FROM documents`)

	conditions := make([]string, 0, 4)
	if filter.Tenant != "" {
		args = append(args, filter.Tenant)
		conditions = append(conditions, fmt.Sprintf("tenant = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("reference_number ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document row. Child rows cascade at the schema level.
func (r *DocumentRepository) Delete(ctx context.Context, q sqlx.ExtContext, tenant, id string) error {
	const query = `DELETE FROM documents WHERE id = $1 AND tenant = $2`
	result, err := q.ExecContext(ctx, query, id, tenant)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check document delete rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete document: no rows affected")
	}
	return nil
}

// SetRollupPending flips the deferred rollup flag outside a transition run.
func (r *DocumentRepository) SetRollupPending(ctx context.Context, q sqlx.ExtContext, id string, pending bool) error {
	const query = `UPDATE documents SET rollup_pending = $1, updated_at = $2 WHERE id = $3`
	if _, err := q.ExecContext(ctx, query, pending, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set rollup pending: %w", err)
	}
	return nil
}
