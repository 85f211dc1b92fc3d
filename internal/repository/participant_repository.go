package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unicef/etools-docflow/internal/models"
)

// ParticipantRepository persists document scoped role links.
type ParticipantRepository struct {
	db *sqlx.DB
}

// NewParticipantRepository constructs the repository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// ListByDocument returns participant links ordered by role then ordinal.
func (r *ParticipantRepository) ListByDocument(ctx context.Context, q sqlx.QueryerContext, documentID string) ([]models.ParticipantLink, error) {
	const query = `SELECT id, document_id, actor_id, role, ordinal, created_at
	FROM participant_links WHERE document_id = $1 ORDER BY role, ordinal`
	var links []models.ParticipantLink
	if err := sqlx.SelectContext(ctx, q, &links, query, documentID); err != nil {
		return nil, fmt.Errorf("list participant links: %w", err)
	}
	return links, nil
}

// Add inserts one participant link.
func (r *ParticipantRepository) Add(ctx context.Context, q sqlx.ExtContext, link *models.ParticipantLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO participant_links (id, document_id, actor_id, role, ordinal, created_at)
	VALUES (:id, :document_id, :actor_id, :role, :ordinal, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, link); err != nil {
		return fmt.Errorf("add participant link: %w", err)
	}
	return nil
}

// ReplaceForRole swaps the full link set of one role on a document.
func (r *ParticipantRepository) ReplaceForRole(ctx context.Context, q sqlx.ExtContext, documentID string, role models.RoleTag, actorIDs []string) error {
	const deleteQuery = `DELETE FROM participant_links WHERE document_id = $1 AND role = $2`
	if _, err := q.ExecContext(ctx, deleteQuery, documentID, role); err != nil {
		return fmt.Errorf("clear participant links: %w", err)
	}
	for i, actorID := range actorIDs {
		link := &models.ParticipantLink{
			DocumentID: documentID,
			ActorID:    actorID,
			Role:       role,
			Ordinal:    i + 1,
		}
		if err := r.Add(ctx, q, link); err != nil {
			return err
		}
	}
	return nil
}
