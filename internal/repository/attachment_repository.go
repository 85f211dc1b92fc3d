package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// AttachmentRepository persists blobs metadata and code bindings.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs the repository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// CreateAttachment registers a stored blob.
func (r *AttachmentRepository) CreateAttachment(ctx context.Context, q sqlx.ExtContext, att *models.Attachment) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attachments (id, blob_hash, file_name, size_bytes, created_at)
	VALUES (:id, :blob_hash, :file_name, :size_bytes, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, att); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetAttachment fetches blob metadata by id.
func (r *AttachmentRepository) GetAttachment(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Attachment, error) {
	const query = `SELECT id, blob_hash, file_name, size_bytes, created_at FROM attachments WHERE id = $1`
	var att models.Attachment
	if err := sqlx.GetContext(ctx, q, &att, query, id); err != nil {
		return nil, err
	}
	return &att, nil
}

// CreateBinding stamps a blob onto a document under a code.
func (r *AttachmentRepository) CreateBinding(ctx context.Context, q sqlx.ExtContext, binding *models.AttachmentBinding) error {
	if binding.ID == "" {
		binding.ID = uuid.NewString()
	}
	if binding.CreatedAt.IsZero() {
		binding.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attachment_bindings (id, attachment_id, document_id, code, type, created_at)
	VALUES (:id, :attachment_id, :document_id, :code, :type, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, binding); err != nil {
		return fmt.Errorf("create attachment binding: %w", err)
	}
	return nil
}

// ListBindings returns all bindings of a document.
func (r *AttachmentRepository) ListBindings(ctx context.Context, q sqlx.QueryerContext, documentID string) ([]models.AttachmentBinding, error) {
	const query = `SELECT id, attachment_id, document_id, code, type, created_at
	FROM attachment_bindings WHERE document_id = $1 ORDER BY created_at`
	var bindings []models.AttachmentBinding
	if err := sqlx.SelectContext(ctx, q, &bindings, query, documentID); err != nil {
		return nil, fmt.Errorf("list attachment bindings: %w", err)
	}
	return bindings, nil
}

// ListBindingsByCode fetches bindings for a document under one code tag.
func (r *AttachmentRepository) ListBindingsByCode(ctx context.Context, q sqlx.QueryerContext, documentID, code string) ([]models.AttachmentBinding, error) {
	const query = `SELECT id, attachment_id, document_id, code, type, created_at
	FROM attachment_bindings WHERE document_id = $1 AND code = $2 ORDER BY created_at`
	var bindings []models.AttachmentBinding
	if err := sqlx.SelectContext(ctx, q, &bindings, query, documentID, code); err != nil {
		return nil, fmt.Errorf("list attachment bindings by code: %w", err)
	}
	return bindings, nil
}

// DeleteBinding removes a binding. The underlying blob is never deleted.
func (r *AttachmentRepository) DeleteBinding(ctx context.Context, q sqlx.ExtContext, id string) error {
	const query = `DELETE FROM attachment_bindings WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete attachment binding: %w", err)
	}
	return nil
}
