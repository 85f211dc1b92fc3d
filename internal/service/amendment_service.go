package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

// AmendmentService manages shadow documents. An amendment is a full copy of
// a document past its editable window; edits happen on the copy and merge
// back as one journal entry. While an amendment is open the original carries
// in_amendment and its completion transitions are blocked.
type AmendmentService struct {
	documents *repository.DocumentRepository
	children  *repository.ChildRowRepository
	roles     *RoleService
	journal   *JournalService
	logger    *zap.Logger
	now       func() time.Time
}

// AmendmentOption configures the service.
type AmendmentOption func(*AmendmentService)

// WithAmendmentLogger injects a logger.
func WithAmendmentLogger(logger *zap.Logger) AmendmentOption {
	return func(s *AmendmentService) { s.logger = logger }
}

// NewAmendmentService constructs the service.
func NewAmendmentService(
	documents *repository.DocumentRepository,
	children *repository.ChildRowRepository,
	roles *RoleService,
	journal *JournalService,
	opts ...AmendmentOption,
) *AmendmentService {
	s := &AmendmentService{
		documents: documents,
		children:  children,
		roles:     roles,
		journal:   journal,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// amendableStatuses lists, per kind, the statuses an amendment may open from.
// Amendments exist to resume editing on documents past their editable window;
// earlier statuses are edited directly, and cancelled or terminated documents
// stay shut.
var amendableStatuses = map[models.Kind]map[models.Status]struct{}{
	models.KindIntervention: {
		models.InterventionSigned: {},
		models.InterventionActive: {},
		models.InterventionEnded:  {},
	},
	models.KindTPMVisit:           {models.TPMVisitApproved: {}},
	models.KindEngagement:         {models.EngagementFinal: {}},
	models.KindTravel:             {models.TravelCompleted: {}},
	models.KindMonitoringActivity: {models.ActivityCompleted: {}},
}

// Start opens an amendment on an amendable document. The shadow copies the
// data and child rows of the original and starts over in the kind's initial
// status.
func (s *AmendmentService) Start(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id string) (*models.Document, error) {
	tenant, actorID := claimIdentity(claims)
	if actorID == "" {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "")
	}
	spec, ok := models.KindSpecs[kind]
	if !ok {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "unknown document kind")
	}

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin amendment")
	}
	defer tx.Rollback()

	original, err := s.documents.GetForUpdate(ctx, tx, tenant, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}
	if original.Kind != kind {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
	}
	if _, ok := amendableStatuses[kind][original.Status]; !ok {
		return nil, apperrors.Clone(apperrors.ErrConflict,
			fmt.Sprintf("documents in status %q cannot be amended", original.Status))
	}
	if original.Data.Bool("in_amendment") {
		return nil, apperrors.Clone(apperrors.ErrConflict, "an amendment is already open")
	}

	amendmentNo := int(original.Data.Float("amendment_count")) + 1
	before := original.Data.Clone()

	shadow := &models.Document{
		Kind:            kind,
		Tenant:          original.Tenant,
		ReferenceNumber: fmt.Sprintf("%s-amd/%d", original.ReferenceNumber, amendmentNo),
		Status:          spec.Initial,
		StatusDate:      s.now().UTC(),
		AuthorID:        actorID,
		AmendmentOf:     &original.ID,
		Data:            original.Data.Clone(),
	}
	delete(shadow.Data, "in_amendment")
	if err := s.documents.Create(ctx, tx, shadow); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to create amendment")
	}

	rows, err := s.children.ListByDocument(ctx, tx, original.ID, false)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load child rows")
	}
	idMap := make(map[string]string, len(rows))
	for _, row := range rows {
		copied := row
		copied.ID = ""
		copied.DocumentID = shadow.ID
		copied.Data = row.Data.Clone()
		if row.ParentID != nil {
			mapped := idMap[*row.ParentID]
			copied.ParentID = &mapped
		}
		if err := s.children.Create(ctx, tx, &copied); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to copy child row")
		}
		idMap[row.ID] = copied.ID
	}

	original.Data["in_amendment"] = true
	original.Data["amendment_count"] = float64(amendmentNo)
	if err := s.documents.Update(ctx, tx, original); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to flag original")
	}
	if err := s.journal.RecordDocument(ctx, tx, original, actorID, models.ActionUpdate, nil, before); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal amendment start")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit amendment")
	}
	s.logger.Info("amendment opened",
		zap.String("document_id", original.ID),
		zap.String("amendment_id", shadow.ID),
		zap.Int("amendment_no", amendmentNo))
	return shadow, nil
}

// Merge folds the amendment's tracked fields back into the original as a
// single journal entry, then closes the amendment window.
func (s *AmendmentService) Merge(ctx context.Context, claims *models.JWTClaims, kind models.Kind, amendmentID string) (*models.Document, error) {
	tenant, actorID := claimIdentity(claims)
	if actorID == "" {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "")
	}
	spec, ok := models.KindSpecs[kind]
	if !ok {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "unknown document kind")
	}

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin merge")
	}
	defer tx.Rollback()

	shadow, err := s.documents.GetForUpdate(ctx, tx, tenant, amendmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "amendment not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load amendment")
	}
	if shadow.Kind != kind || shadow.AmendmentOf == nil {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "amendment not found")
	}

	original, err := s.documents.GetForUpdate(ctx, tx, tenant, *shadow.AmendmentOf)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}

	before := original.Data.Clone()
	for _, field := range spec.TrackedFields {
		if field == "in_amendment" {
			continue
		}
		if v, ok := shadow.Data[field]; ok {
			original.Data[field] = v
		}
	}
	original.Data["in_amendment"] = false
	if err := s.documents.Update(ctx, tx, original); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to merge amendment")
	}
	mergeName := "amendment_merge"
	if err := s.journal.RecordDocument(ctx, tx, original, actorID, models.ActionTransition, &mergeName, before); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal merge")
	}

	shadow.Data["amendment_merged"] = true
	if err := s.documents.Update(ctx, tx, shadow); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to mark amendment merged")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit merge")
	}
	s.logger.Info("amendment merged",
		zap.String("document_id", original.ID),
		zap.String("amendment_id", shadow.ID))
	return original, nil
}

// Cancel discards an open amendment and reopens the original.
func (s *AmendmentService) Cancel(ctx context.Context, claims *models.JWTClaims, kind models.Kind, amendmentID string) error {
	tenant, actorID := claimIdentity(claims)
	if actorID == "" {
		return apperrors.Clone(apperrors.ErrUnauthorized, "")
	}

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin cancel")
	}
	defer tx.Rollback()

	shadow, err := s.documents.GetForUpdate(ctx, tx, tenant, amendmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Clone(apperrors.ErrNotFound, "amendment not found")
		}
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load amendment")
	}
	if shadow.Kind != kind || shadow.AmendmentOf == nil {
		return apperrors.Clone(apperrors.ErrNotFound, "amendment not found")
	}

	original, err := s.documents.GetForUpdate(ctx, tx, tenant, *shadow.AmendmentOf)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}

	before := original.Data.Clone()
	original.Data["in_amendment"] = false
	if err := s.documents.Update(ctx, tx, original); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to reopen document")
	}
	if err := s.journal.RecordDocument(ctx, tx, original, actorID, models.ActionUpdate, nil, before); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal cancel")
	}
	if err := s.documents.Delete(ctx, tx, tenant, shadow.ID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to discard amendment")
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit cancel")
	}
	s.logger.Info("amendment cancelled",
		zap.String("document_id", original.ID),
		zap.String("amendment_id", shadow.ID))
	return nil
}
