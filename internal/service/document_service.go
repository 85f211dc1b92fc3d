package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

// DocumentService owns the non-transition lifecycle of documents: creation
// with reference minting, field updates, nested child row batches, participant
// management and bulk closure.
type DocumentService struct {
	documents    *repository.DocumentRepository
	children     *repository.ChildRowRepository
	sequences    *repository.SequenceRepository
	participants *repository.ParticipantRepository
	reservations *repository.ReservationRepository
	timeframes   *repository.TimeFrameRepository

	roles       *RoleService
	perms       *PermissionService
	rollups     *RollupService
	journal     *JournalService
	transitions *TransitionService

	logger *zap.Logger
	now    func() time.Time
}

// DocumentOption configures the service.
type DocumentOption func(*DocumentService)

// WithDocumentLogger injects a logger.
func WithDocumentLogger(logger *zap.Logger) DocumentOption {
	return func(s *DocumentService) { s.logger = logger }
}

// WithDocumentClock overrides the time source.
func WithDocumentClock(now func() time.Time) DocumentOption {
	return func(s *DocumentService) { s.now = now }
}

// NewDocumentService constructs the service.
func NewDocumentService(
	documents *repository.DocumentRepository,
	children *repository.ChildRowRepository,
	sequences *repository.SequenceRepository,
	participants *repository.ParticipantRepository,
	reservations *repository.ReservationRepository,
	timeframes *repository.TimeFrameRepository,
	roles *RoleService,
	perms *PermissionService,
	rollups *RollupService,
	journal *JournalService,
	transitions *TransitionService,
	opts ...DocumentOption,
) *DocumentService {
	s := &DocumentService{
		documents:    documents,
		children:     children,
		sequences:    sequences,
		participants: participants,
		reservations: reservations,
		timeframes:   timeframes,
		roles:        roles,
		perms:        perms,
		rollups:      rollups,
		journal:      journal,
		transitions:  transitions,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create mints a document in the kind's initial status. The reference number
// is "{PREFIX}/{year}/{counter}" from the tenant scoped sequence; the
// sequence row lock makes references dense within a (tenant, kind, year).
func (s *DocumentService) Create(ctx context.Context, claims *models.JWTClaims, kind models.Kind, data models.Fields) (*models.Document, error) {
	spec, ok := models.KindSpecs[kind]
	if !ok {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "unknown document kind")
	}
	if claims == nil || claims.UserID == "" {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "")
	}

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin create")
	}
	defer tx.Rollback()

	now := s.now().UTC()
	counter, err := s.sequences.Next(ctx, tx, claims.Tenant, kind, now.Year())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to mint reference number")
	}

	if data == nil {
		data = models.Fields{}
	}
	doc := &models.Document{
		Kind:            kind,
		Tenant:          claims.Tenant,
		ReferenceNumber: fmt.Sprintf("%s/%d/%d", spec.RefPrefix, now.Year(), counter),
		Status:          spec.Initial,
		StatusDate:      now,
		AuthorID:        claims.UserID,
		Data:            data.Clone(),
	}
	if doc.Data.String("currency") == "" && kind == models.KindIntervention {
		doc.Data["currency"] = "USD"
	}
	if kind == models.KindIntervention {
		// New documents start in UNICEF's editing court.
		doc.Data["unicef_court"] = true
	}
	s.rollups.Apply(doc, nil, nil)

	if err := s.documents.Create(ctx, tx, doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to create document")
	}
	if err := s.recalculateTimeFrames(ctx, tx, doc); err != nil {
		return nil, err
	}
	if err := s.journal.RecordDocument(ctx, tx, doc, claims.UserID, models.ActionCreate, nil, models.Fields{}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal create")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit create")
	}
	s.logger.Info("document created",
		zap.String("document_id", doc.ID),
		zap.String("kind", string(kind)),
		zap.String("reference_number", doc.ReferenceNumber))
	return doc, nil
}

// Get returns one document with the caller's resolved permissions.
func (s *DocumentService) Get(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id string) (*models.Document, models.Permissions, error) {
	tenant := ""
	if claims != nil {
		tenant = claims.Tenant
	}
	doc, err := s.documents.GetByID(ctx, s.documents.DB(), tenant, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.Permissions{}, apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return nil, models.Permissions{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}
	if doc.Kind != kind {
		return nil, models.Permissions{}, apperrors.Clone(apperrors.ErrNotFound, "document not found")
	}
	links, err := s.participants.ListByDocument(ctx, s.documents.DB(), doc.ID)
	if err != nil {
		return nil, models.Permissions{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load participants")
	}
	roleSet := s.roles.RolesFor(claims, doc, links)
	perms := s.perms.Resolve(doc.Kind, doc.Status, roleSet)
	if len(perms.Readable) == 0 {
		return nil, models.Permissions{}, apperrors.Clone(apperrors.ErrPermissionDenied, "")
	}
	return doc, perms, nil
}

// List returns documents matching the filter within the caller's tenant.
func (s *DocumentService) List(ctx context.Context, claims *models.JWTClaims, filter models.DocumentFilter) ([]models.Document, error) {
	if claims != nil {
		filter.Tenant = claims.Tenant
	}
	docs, err := s.documents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Update applies a field patch. Every patched field must be writable for the
// caller in the current status; one unwritable field rejects the whole patch.
func (s *DocumentService) Update(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id string, patch models.Fields) (*models.Document, error) {
	if len(patch) == 0 {
		return nil, apperrors.Clone(apperrors.ErrValidation, "empty patch")
	}
	tenant, actorID := claimIdentity(claims)

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin update")
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

	links, err := s.participants.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load participants")
	}
	roleSet := s.roles.RolesFor(claims, doc, links)
	perms := s.perms.Resolve(doc.Kind, doc.Status, roleSet)

	denied := make(map[string]string)
	for field := range patch {
		if !perms.CanWrite(field) {
			denied[field] = "not writable in status " + string(doc.Status)
		}
	}
	if len(denied) > 0 {
		return nil, apperrors.WithFields(apperrors.Clone(apperrors.ErrPermissionDenied, "fields not writable"), denied)
	}

	before := doc.Data.Clone()
	rangeMoved := false
	for field, value := range patch {
		if field == "start" || field == "end" {
			if !jsonEqual(doc.Data[field], value) {
				rangeMoved = true
			}
		}
		doc.Data[field] = value
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

	if err := s.documents.Update(ctx, tx, doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to persist update")
	}
	if rangeMoved {
		if err := s.recalculateTimeFrames(ctx, tx, doc); err != nil {
			return nil, err
		}
	}
	if err := s.journal.RecordDocument(ctx, tx, doc, actorID, models.ActionUpdate, nil, before); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal update")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit update")
	}
	return doc, nil
}

// Delete removes a document that never left its initial status. Anything
// further along can only be cancelled through a transition.
func (s *DocumentService) Delete(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id string) error {
	spec, ok := models.KindSpecs[kind]
	if !ok {
		return apperrors.Clone(apperrors.ErrNotFound, "unknown document kind")
	}
	tenant, actorID := claimIdentity(claims)

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin delete")
	}
	defer tx.Rollback()

	doc, err := s.documents.GetForUpdate(ctx, tx, tenant, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}
	if doc.Kind != kind {
		return apperrors.Clone(apperrors.ErrNotFound, "document not found")
	}
	if doc.Status != spec.Initial {
		return apperrors.Clone(apperrors.ErrConflict, "only documents in their initial status can be deleted")
	}
	links, err := s.participants.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load participants")
	}
	roleSet := s.roles.RolesFor(claims, doc, links)
	if !roleSet.Has(models.RoleAuthor) && !roleSet.Has(models.RoleAdmin) {
		return apperrors.Clone(apperrors.ErrPermissionDenied, "only the author may delete a draft")
	}

	if err := s.documents.Delete(ctx, tx, tenant, id); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to delete document")
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit delete")
	}
	s.logger.Info("document deleted",
		zap.String("document_id", id),
		zap.String("actor_id", actorID))
	return nil
}

// SetParticipants replaces the link set of one document scoped role.
func (s *DocumentService) SetParticipants(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id string, role models.RoleTag, actorIDs []string) error {
	if !models.DocumentScopedRoles.Has(role) {
		return apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("role %q is not document scoped", role))
	}
	tenant, actorID := claimIdentity(claims)

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin participant update")
	}
	defer tx.Rollback()

	doc, err := s.documents.GetForUpdate(ctx, tx, tenant, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}
	if doc.Kind != kind {
		return apperrors.Clone(apperrors.ErrNotFound, "document not found")
	}
	links, err := s.participants.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load participants")
	}
	roleSet := s.roles.RolesFor(claims, doc, links)
	if doc.IsTerminal() && !roleSet.Has(models.RoleAdmin) {
		return apperrors.Clone(apperrors.ErrPermissionDenied, "document is in a terminal status")
	}
	if len(s.perms.Resolve(doc.Kind, doc.Status, roleSet).Writable) == 0 && !roleSet.Has(models.RoleAdmin) {
		return apperrors.Clone(apperrors.ErrPermissionDenied, "")
	}

	if err := s.participants.ReplaceForRole(ctx, tx, doc.ID, role, actorIDs); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to replace participants")
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit participant update")
	}
	s.logger.Info("participants replaced",
		zap.String("document_id", id),
		zap.String("role", string(role)),
		zap.Int("count", len(actorIDs)),
		zap.String("actor_id", actorID))
	return nil
}

// ApplyChildOps runs a nested write batch. The batch validates as a whole
// before anything is written; a single bad operation rejects everything.
// Sibling codes renumber dense after the batch.
func (s *DocumentService) ApplyChildOps(ctx context.Context, claims *models.JWTClaims, kind models.Kind, id string, ops []models.ChildOp) (*models.Document, error) {
	if len(ops) == 0 {
		return nil, apperrors.Clone(apperrors.ErrValidation, "empty operation batch")
	}
	tenant, actorID := claimIdentity(claims)

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin child batch")
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

	links, err := s.participants.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load participants")
	}
	roleSet := s.roles.RolesFor(claims, doc, links)
	perms := s.perms.Resolve(doc.Kind, doc.Status, roleSet)
	if len(perms.Writable) == 0 {
		return nil, apperrors.Clone(apperrors.ErrPermissionDenied, "document is not editable in its current status")
	}

	existing, err := s.children.ListByDocument(ctx, tx, doc.ID, false)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load child rows")
	}
	byID := make(map[string]*models.ChildRow, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}
	frames, err := s.timeframes.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load time frames")
	}
	frameOrdinals := make(map[int]struct{}, len(frames))
	for _, frame := range frames {
		frameOrdinals[frame.Ordinal] = struct{}{}
	}

	// Validate the whole batch before any write.
	for i, op := range ops {
		switch op.Op {
		case models.ChildOpCreate:
			if op.Kind == "" {
				return nil, apperrors.WithFields(
					apperrors.Clone(apperrors.ErrValidation, "invalid child operation"),
					map[string]string{fmt.Sprintf("ops[%d].kind", i): "required"})
			}
			if op.ParentID != nil {
				if _, ok := byID[*op.ParentID]; !ok {
					return nil, apperrors.WithFields(
						apperrors.Clone(apperrors.ErrValidation, "invalid child operation"),
						map[string]string{fmt.Sprintf("ops[%d].parentId", i): "unknown parent"})
				}
			}
			if err := validateTimeFrameRefs(op.Data, frameOrdinals); err != nil {
				return nil, apperrors.WithFields(
					apperrors.Clone(apperrors.ErrValidation, "invalid child operation"),
					map[string]string{fmt.Sprintf("ops[%d].data.time_frames", i): err.Error()})
			}
		case models.ChildOpUpdate, models.ChildOpDelete:
			if _, ok := byID[op.ID]; !ok {
				return nil, apperrors.WithFields(
					apperrors.Clone(apperrors.ErrValidation, "invalid child operation"),
					map[string]string{fmt.Sprintf("ops[%d].id", i): "unknown child row"})
			}
			if err := validateTimeFrameRefs(op.Data, frameOrdinals); err != nil {
				return nil, apperrors.WithFields(
					apperrors.Clone(apperrors.ErrValidation, "invalid child operation"),
					map[string]string{fmt.Sprintf("ops[%d].data.time_frames", i): err.Error()})
			}
		default:
			return nil, apperrors.WithFields(
				apperrors.Clone(apperrors.ErrValidation, "invalid child operation"),
				map[string]string{fmt.Sprintf("ops[%d].op", i): "unknown operation"})
		}
	}

	for _, op := range ops {
		switch op.Op {
		case models.ChildOpCreate:
			row := &models.ChildRow{
				DocumentID: doc.ID,
				ParentID:   op.ParentID,
				Kind:       op.Kind,
				Active:     true,
				Data:       op.Data.Clone(),
			}
			if op.UnicefCash != nil {
				row.UnicefCash = *op.UnicefCash
			}
			if op.CSOCash != nil {
				row.CSOCash = *op.CSOCash
			}
			if err := s.children.Create(ctx, tx, row); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to create child row")
			}
			byID[row.ID] = row
			if err := s.journal.RecordChildRow(ctx, tx, doc, row, actorID, models.ActionCreate, models.Fields{}); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal child create")
			}
		case models.ChildOpUpdate:
			row := byID[op.ID]
			before := row.Data.Clone()
			if op.Data != nil {
				for k, v := range op.Data {
					row.Data[k] = v
				}
			}
			if op.UnicefCash != nil {
				row.UnicefCash = *op.UnicefCash
			}
			if op.CSOCash != nil {
				row.CSOCash = *op.CSOCash
			}
			if err := s.children.Update(ctx, tx, row); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to update child row")
			}
			if err := s.journal.RecordChildRow(ctx, tx, doc, row, actorID, models.ActionUpdate, before); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal child update")
			}
		case models.ChildOpDelete:
			row := byID[op.ID]
			before := row.Data.Clone()
			if err := s.children.SoftDelete(ctx, tx, op.ID); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to delete child row")
			}
			deletedAt := s.now().UTC()
			row.DeletedAt = &deletedAt
			if err := s.journal.RecordChildRow(ctx, tx, doc, row, actorID, models.ActionSoftDelete, before); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal child delete")
			}
		}
	}

	live, err := s.children.ListByDocument(ctx, tx, doc.ID, false)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to reload child rows")
	}
	if err := s.renumberChildRows(ctx, tx, live); err != nil {
		return nil, err
	}

	linked, err := s.reservations.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load reservations")
	}
	s.rollups.Apply(doc, live, linked)
	if err := s.documents.Update(ctx, tx, doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to persist rollups")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit child batch")
	}
	return doc, nil
}

// validateTimeFrameRefs checks that every time frame reference in a child
// payload names a quarter the document currently has. References arrive as a
// JSON array of ordinals.
func validateTimeFrameRefs(data models.Fields, valid map[int]struct{}) error {
	raw, ok := data["time_frames"]
	if !ok || raw == nil {
		return nil
	}
	refs, ok := raw.([]interface{})
	if !ok {
		return fmt.Errorf("must be a list of quarter ordinals")
	}
	for _, ref := range refs {
		var ordinal int
		switch v := ref.(type) {
		case float64:
			ordinal = int(v)
		case int:
			ordinal = v
		default:
			return fmt.Errorf("must be a list of quarter ordinals")
		}
		if _, ok := valid[ordinal]; !ok {
			return fmt.Errorf("quarter %d is outside the document range", ordinal)
		}
	}
	return nil
}

// renumberChildRows rebuilds codes dense per sibling group. Root level rows
// number "1", "2", ...; children carry "{parent.code}.{ordinal}".
func (s *DocumentService) renumberChildRows(ctx context.Context, tx *sqlx.Tx, rows []models.ChildRow) error {
	byParent := make(map[string][]*models.ChildRow)
	byID := make(map[string]*models.ChildRow, len(rows))
	for i := range rows {
		row := &rows[i]
		byID[row.ID] = row
		parent := ""
		if row.ParentID != nil {
			parent = *row.ParentID
		}
		byParent[parent] = append(byParent[parent], row)
	}
	for _, siblings := range byParent {
		sort.SliceStable(siblings, func(i, j int) bool {
			if siblings[i].Ordinal != siblings[j].Ordinal {
				return siblings[i].Ordinal < siblings[j].Ordinal
			}
			return siblings[i].CreatedAt.Before(siblings[j].CreatedAt)
		})
	}

	var walk func(parentKey, parentCode string) error
	walk = func(parentKey, parentCode string) error {
		for i, row := range byParent[parentKey] {
			ordinal := i + 1
			code := fmt.Sprintf("%d", ordinal)
			if parentCode != "" {
				code = fmt.Sprintf("%s.%d", parentCode, ordinal)
			}
			if row.Ordinal != ordinal || row.Code != code {
				row.Ordinal = ordinal
				row.Code = code
				if err := s.children.Update(ctx, tx, row); err != nil {
					return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to renumber child row")
				}
			}
			if err := walk(row.ID, code); err != nil {
				return err
			}
		}
		return nil
	}
	return walk("", "")
}

// BulkCloseResult reports a partial success bulk closure.
type BulkCloseResult struct {
	Closed []string          `json:"closed"`
	Errors map[string]string `json:"errors"`
}

// BulkClose attempts the close transition on every listed document. Failures
// do not stop the batch; each failed id maps to its rejection message.
func (s *DocumentService) BulkClose(ctx context.Context, claims *models.JWTClaims, kind models.Kind, ids []string) (*BulkCloseResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.Clone(apperrors.ErrValidation, "no document ids supplied")
	}
	result := &BulkCloseResult{
		Closed: make([]string, 0, len(ids)),
		Errors: make(map[string]string),
	}
	for _, id := range ids {
		_, err := s.transitions.Execute(ctx, claims, TransitionRequest{
			Kind: kind,
			ID:   id,
			Name: "close",
		})
		if err != nil {
			result.Errors[id] = apperrors.FromError(err).Message
			continue
		}
		result.Closed = append(result.Closed, id)
	}
	return result, nil
}

// recalculateTimeFrames rebuilds the quarter list from the start/end range.
// An absent or inverted range clears the frames.
func (s *DocumentService) recalculateTimeFrames(ctx context.Context, tx *sqlx.Tx, doc *models.Document) error {
	start, okStart := parseDate(doc.Data.String("start"))
	end, okEnd := parseDate(doc.Data.String("end"))
	frames := []models.TimeFrame{}
	if okStart && okEnd && !start.After(end) {
		ordinal := 1
		cursor := start
		for !cursor.After(end) {
			frameEnd := cursor.AddDate(0, 3, -1)
			if frameEnd.After(end) {
				frameEnd = end
			}
			frames = append(frames, models.TimeFrame{
				Ordinal:   ordinal,
				StartDate: cursor,
				EndDate:   frameEnd,
			})
			ordinal++
			cursor = cursor.AddDate(0, 3, 0)
		}
	}
	if err := s.timeframes.ReplaceForDocument(ctx, tx, doc.ID, frames); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to recalculate time frames")
	}
	return nil
}

func claimIdentity(claims *models.JWTClaims) (tenant, actorID string) {
	if claims == nil {
		return "", ""
	}
	return claims.Tenant, claims.UserID
}
