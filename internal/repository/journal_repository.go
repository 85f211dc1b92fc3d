package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// JournalRepository persists the append-only change journal. The journal is
// a single polymorphic table keyed by (document kind, object id).
type JournalRepository struct {
	db *sqlx.DB
}

// NewJournalRepository constructs the repository.
func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

const journalColumns = `id, document_id, document_kind, object_kind, object_id, actor_id, action,
       transition_name, changed_fields, old_values, new_values, created_at`

// Append writes one journal entry. There is no update path.
func (r *JournalRepository) Append(ctx context.Context, q sqlx.ExtContext, entry *models.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.ChangedFields == nil {
		entry.ChangedFields = models.Fields{}
	}
	if entry.OldValues == nil {
		entry.OldValues = models.Fields{}
	}
	if entry.NewValues == nil {
		entry.NewValues = models.Fields{}
	}
	const query = `INSERT INTO journal_entries
	(id, document_id, document_kind, object_kind, object_id, actor_id, action, transition_name, changed_fields, old_values, new_values, created_at)
	VALUES (:id, :document_id, :document_kind, :object_kind, :object_id, :actor_id, :action, :transition_name, :changed_fields, :old_values, :new_values, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, entry); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// GetByID fetches one journal entry.
func (r *JournalRepository) GetByID(ctx context.Context, q sqlx.QueryerContext, id string) (*models.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE id = $1`
	var entry models.JournalEntry
	if err := sqlx.GetContext(ctx, q, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByDocument returns entries latest first.
func (r *JournalRepository) ListByDocument(ctx context.Context, q sqlx.QueryerContext, documentID string, limit, offset int) ([]models.JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT `+journalColumns+` FROM journal_entries
	WHERE document_id = $1 ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)
	var entries []models.JournalEntry
	if err := sqlx.SelectContext(ctx, q, &entries, query, documentID); err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return entries, nil
}

// CountByDocument returns the entry count for cap enforcement.
func (r *JournalRepository) CountByDocument(ctx context.Context, q sqlx.QueryerContext, documentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM journal_entries WHERE document_id = $1`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, documentID); err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return count, nil
}

// TrimOldest deletes the oldest entries beyond keep. Used only by the cap
// enforcement path; admin deletion elsewhere writes its own entry.
func (r *JournalRepository) TrimOldest(ctx context.Context, q sqlx.ExtContext, documentID string, keep int) error {
	const query = `DELETE FROM journal_entries WHERE id IN (
		SELECT id FROM journal_entries WHERE document_id = $1
		ORDER BY created_at DESC OFFSET $2
	)`
	if _, err := q.ExecContext(ctx, query, documentID, keep); err != nil {
		return fmt.Errorf("trim journal entries: %w", err)
	}
	return nil
}
