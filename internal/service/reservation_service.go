package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

// ReservationService handles document facing fund reservation claims. The
// pool is shared across documents; a claim is exclusive until released.
type ReservationService struct {
	documents    *repository.DocumentRepository
	reservations *repository.ReservationRepository
	children     *repository.ChildRowRepository
	rollups      *RollupService
	journal      *JournalService
	logger       *zap.Logger
}

// ReservationOption configures the service.
type ReservationOption func(*ReservationService)

// WithReservationLogger injects a logger.
func WithReservationLogger(logger *zap.Logger) ReservationOption {
	return func(s *ReservationService) { s.logger = logger }
}

// NewReservationService constructs the service.
func NewReservationService(
	documents *repository.DocumentRepository,
	reservations *repository.ReservationRepository,
	children *repository.ChildRowRepository,
	rollups *RollupService,
	journal *JournalService,
	opts ...ReservationOption,
) *ReservationService {
	s := &ReservationService{
		documents:    documents,
		reservations: reservations,
		children:     children,
		rollups:      rollups,
		journal:      journal,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Link claims an FR number for the document and refreshes the derived totals.
// A reservation already held by another document yields a conflict.
func (s *ReservationService) Link(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id, frNumber string) (*models.Document, error) {
	return s.withDocument(ctx, claims, kind, id, func(tx *sqlx.Tx, doc *models.Document, actorID string) error {
		if _, err := s.reservations.GetByFRNumber(ctx, tx, frNumber); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.Clone(apperrors.ErrNotFound, fmt.Sprintf("fund reservation %q not found", frNumber))
			}
			return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load reservation")
		}
		if err := s.reservations.Link(ctx, tx, frNumber, doc.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.Clone(apperrors.ErrConflict,
					fmt.Sprintf("fund reservation %q is claimed by another document", frNumber))
			}
			return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to link reservation")
		}
		s.logger.Info("reservation linked",
			zap.String("document_id", doc.ID),
			zap.String("fr_number", frNumber),
			zap.String("actor_id", actorID))
		return nil
	})
}

// Unlink releases a claim held by the document.
func (s *ReservationService) Unlink(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id, frNumber string) (*models.Document, error) {
	return s.withDocument(ctx, claims, kind, id, func(tx *sqlx.Tx, doc *models.Document, actorID string) error {
		if err := s.reservations.Unlink(ctx, tx, frNumber, doc.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.Clone(apperrors.ErrNotFound,
					fmt.Sprintf("fund reservation %q is not linked to this document", frNumber))
			}
			return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to unlink reservation")
		}
		s.logger.Info("reservation unlinked",
			zap.String("document_id", doc.ID),
			zap.String("fr_number", frNumber),
			zap.String("actor_id", actorID))
		return nil
	})
}

// withDocument wraps a mutation in the document row lock and finishes with a
// rollup refresh and a journal entry for the derived changes.
func (s *ReservationService) withDocument(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id string, fn func(tx *sqlx.Tx, doc *models.Document, actorID string) error) (*models.Document, error) {
	tenant, actorID := claimIdentity(claims)
	if actorID == "" {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "")
	}

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin reservation update")
	}
	defer tx.Rollback()

	doc, err := s.documents.GetForUpdate(ctx, tx, tenant, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}
	if doc.Kind != kind {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
	}
	if doc.IsTerminal() {
		return nil, apperrors.Clone(apperrors.ErrConflict, "document is in a terminal status")
	}

	before := doc.Data.Clone()
	if err := fn(tx, doc, actorID); err != nil {
		return nil, err
	}

	children, err := s.children.ListByDocument(ctx, tx, doc.ID, false)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load child rows")
	}
	linked, err := s.reservations.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load reservations")
	}
	s.rollups.Apply(doc, children, linked)

	frNumbers := make([]interface{}, 0, len(linked))
	for _, r := range linked {
		frNumbers = append(frNumbers, r.FRNumber)
	}
	doc.Data["frs"] = frNumbers

	if err := s.documents.Update(ctx, tx, doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to persist rollups")
	}
	if err := s.journal.RecordDocument(ctx, tx, doc, actorID, models.ActionUpdate, nil, before); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal reservation update")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit reservation update")
	}
	return doc, nil
}
