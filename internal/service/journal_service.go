package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

// JournalService records and serves the append-only change journal. Diffs are
// restricted to the tracked field lists of each kind; nested entity references
// are stored as {id, str} pairs.
type JournalService struct {
	journals  *repository.JournalRepository
	documents *repository.DocumentRepository
	children  *repository.ChildRowRepository
	caps      map[models.Kind]int
	logger    *zap.Logger
}

// JournalOption configures the service.
type JournalOption func(*JournalService)

// WithJournalLogger injects a logger.
func WithJournalLogger(logger *zap.Logger) JournalOption {
	return func(s *JournalService) { s.logger = logger }
}

// NewJournalService constructs the service. caps maps each kind to its entry
// cap; kinds absent from the map are uncapped.
func NewJournalService(
	journals *repository.JournalRepository,
	documents *repository.DocumentRepository,
	children *repository.ChildRowRepository,
	caps map[models.Kind]int,
	opts ...JournalOption,
) *JournalService {
	s := &JournalService{
		journals:  journals,
		documents: documents,
		children:  children,
		caps:      caps,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Diff compares two field maps over the union of tracked and noise fields of
// the kind. Values compare by their JSON form, so {id, str} reference pairs
// diff as units.
func (s *JournalService) Diff(kind models.Kind, oldData, newData models.Fields) (changed, oldVals, newVals models.Fields) {
	changed = models.Fields{}
	oldVals = models.Fields{}
	newVals = models.Fields{}

	spec, ok := models.KindSpecs[kind]
	if !ok {
		return changed, oldVals, newVals
	}
	fields := make([]string, 0, len(spec.TrackedFields)+len(spec.NoiseFields))
	fields = append(fields, spec.TrackedFields...)
	fields = append(fields, spec.NoiseFields...)

	for _, field := range fields {
		oldVal, oldOk := oldData[field]
		newVal, newOk := newData[field]
		if !oldOk && !newOk {
			continue
		}
		if jsonEqual(oldVal, newVal) {
			continue
		}
		changed[field] = true
		if oldOk {
			oldVals[field] = oldVal
		}
		if newOk {
			newVals[field] = newVal
		}
	}
	return changed, oldVals, newVals
}

func jsonEqual(a, b interface{}) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ra) == string(rb)
}

// RecordDocument appends a document scoped entry. Update entries with an
// empty diff are dropped; transitions always record, even field-empty ones.
func (s *JournalService) RecordDocument(ctx context.Context, q sqlx.ExtContext, doc *models.Document, actorID string, action models.Action, transitionName *string, oldData models.Fields) error {
	changed, oldVals, newVals := s.Diff(doc.Kind, oldData, doc.Data)
	if action == models.ActionUpdate && len(changed) == 0 {
		return nil
	}
	entry := &models.JournalEntry{
		DocumentID:     doc.ID,
		DocumentKind:   doc.Kind,
		ObjectKind:     models.JournalObjectDocument,
		ObjectID:       doc.ID,
		ActorID:        actorID,
		Action:         action,
		TransitionName: transitionName,
		ChangedFields:  changed,
		OldValues:      oldVals,
		NewValues:      newVals,
	}
	if err := s.journals.Append(ctx, q, entry); err != nil {
		return err
	}
	return s.enforceCap(ctx, q, doc)
}

// RecordChildRow appends a child row scoped entry. Child diffs carry the full
// old and new data of the row; soft deletes record with empty new values so
// reverts can reinstate.
func (s *JournalService) RecordChildRow(ctx context.Context, q sqlx.ExtContext, doc *models.Document, row *models.ChildRow, actorID string, action models.Action, oldData models.Fields) error {
	changed := models.Fields{}
	oldVals := models.Fields{}
	newVals := models.Fields{}
	if action != models.ActionSoftDelete {
		for key, newVal := range row.Data {
			oldVal, ok := oldData[key]
			if ok && jsonEqual(oldVal, newVal) {
				continue
			}
			changed[key] = true
			if ok {
				oldVals[key] = oldVal
			}
			newVals[key] = newVal
		}
		for key, oldVal := range oldData {
			if _, ok := row.Data[key]; ok {
				continue
			}
			changed[key] = true
			oldVals[key] = oldVal
		}
	} else {
		for key, oldVal := range oldData {
			changed[key] = true
			oldVals[key] = oldVal
		}
	}
	if action == models.ActionUpdate && len(changed) == 0 {
		return nil
	}
	entry := &models.JournalEntry{
		DocumentID:    doc.ID,
		DocumentKind:  doc.Kind,
		ObjectKind:    models.JournalObjectChildRow,
		ObjectID:      row.ID,
		ActorID:       actorID,
		Action:        action,
		ChangedFields: changed,
		OldValues:     oldVals,
		NewValues:     newVals,
	}
	if err := s.journals.Append(ctx, q, entry); err != nil {
		return err
	}
	return s.enforceCap(ctx, q, doc)
}

// RecordReservationRelease appends a document entry for a fund reservation
// claim released by the ERP feed. The release is not a tracked field change,
// so it bypasses the diff and names the FR number explicitly.
func (s *JournalService) RecordReservationRelease(ctx context.Context, q sqlx.ExtContext, doc *models.Document, actorID, frNumber, reason string) error {
	entry := &models.JournalEntry{
		DocumentID:    doc.ID,
		DocumentKind:  doc.Kind,
		ObjectKind:    models.JournalObjectDocument,
		ObjectID:      doc.ID,
		ActorID:       actorID,
		Action:        models.ActionUpdate,
		ChangedFields: models.Fields{"frs": true},
		OldValues:     models.Fields{"frs": frNumber},
		NewValues:     models.Fields{"release_reason": reason},
	}
	if err := s.journals.Append(ctx, q, entry); err != nil {
		return err
	}
	return s.enforceCap(ctx, q, doc)
}

func (s *JournalService) enforceCap(ctx context.Context, q sqlx.ExtContext, doc *models.Document) error {
	maxEntries, ok := s.caps[doc.Kind]
	if !ok || maxEntries <= 0 {
		return nil
	}
	queryer, ok := q.(sqlx.QueryerContext)
	if !ok {
		return nil
	}
	count, err := s.journals.CountByDocument(ctx, queryer, doc.ID)
	if err != nil {
		return err
	}
	if count <= maxEntries {
		return nil
	}
	s.logger.Info("trimming journal to cap",
		zap.String("document_id", doc.ID),
		zap.Int("count", count),
		zap.Int("cap", maxEntries))
	return s.journals.TrimOldest(ctx, q, doc.ID, maxEntries)
}

// History returns journal entries latest first. With meaningfulOnly set,
// entries whose changed fields are all noise fields of the kind are dropped.
func (s *JournalService) History(ctx context.Context, documentID string, limit, offset int, meaningfulOnly bool) ([]models.JournalEntry, error) {
	entries, err := s.journals.ListByDocument(ctx, s.documents.DB(), documentID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to list history")
	}
	if !meaningfulOnly {
		return entries, nil
	}
	out := make([]models.JournalEntry, 0, len(entries))
	for _, entry := range entries {
		if s.isNoiseOnly(entry) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *JournalService) isNoiseOnly(entry models.JournalEntry) bool {
	if entry.Action != models.ActionUpdate || len(entry.ChangedFields) == 0 {
		return false
	}
	spec, ok := models.KindSpecs[entry.DocumentKind]
	if !ok {
		return false
	}
	noise := make(map[string]struct{}, len(spec.NoiseFields))
	for _, f := range spec.NoiseFields {
		noise[f] = struct{}{}
	}
	for field := range entry.ChangedFields {
		if _, isNoise := noise[field]; !isNoise {
			return false
		}
	}
	return true
}

// Revert restores the old values of one journal entry. Admin only, and
// refused once the document has moved into a terminal status. Document
// entries write the old values back into the document data; child row
// entries additionally reinstate the row when it has since been soft
// deleted. The revert itself lands in the journal as a fresh entry, never
// as a rewrite of the original.
func (s *JournalService) Revert(ctx context.Context, tenant, entryID, actorID string, roles models.RoleSet) (*models.Document, error) {
	if !roles.Has(models.RoleAdmin) {
		return nil, apperrors.Clone(apperrors.ErrPermissionDenied, "only administrators may revert journal entries")
	}

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin revert")
	}
	defer tx.Rollback()

	entry, err := s.journals.GetByID(ctx, tx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "journal entry not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load journal entry")
	}

	doc, err := s.documents.GetForUpdate(ctx, tx, tenant, entry.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}
	if doc.IsTerminal() {
		return nil, apperrors.Clone(apperrors.ErrConflict, "cannot revert entries on a document in a terminal status")
	}

	switch entry.ObjectKind {
	case models.JournalObjectDocument:
		if err := s.revertDocument(ctx, tx, doc, entry, actorID); err != nil {
			return nil, err
		}
	case models.JournalObjectChildRow:
		if err := s.revertChildRow(ctx, tx, doc, entry, actorID); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.Clone(apperrors.ErrValidation, "unknown journal object kind")
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit revert")
	}
	s.logger.Info("journal entry reverted",
		zap.String("entry_id", entryID),
		zap.String("document_id", doc.ID),
		zap.String("actor_id", actorID))
	return doc, nil
}

func (s *JournalService) revertDocument(ctx context.Context, tx *sqlx.Tx, doc *models.Document, entry *models.JournalEntry, actorID string) error {
	before := doc.Data.Clone()
	for field := range entry.ChangedFields {
		if oldVal, ok := entry.OldValues[field]; ok {
			doc.Data[field] = oldVal
		} else {
			delete(doc.Data, field)
		}
	}
	if err := s.documents.Update(ctx, tx, doc); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to revert document")
	}
	return s.RecordDocument(ctx, tx, doc, actorID, models.ActionUpdate, nil, before)
}

func (s *JournalService) revertChildRow(ctx context.Context, tx *sqlx.Tx, doc *models.Document, entry *models.JournalEntry, actorID string) error {
	row, err := s.children.GetByID(ctx, tx, entry.ObjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Clone(apperrors.ErrNotFound, "child row not found")
		}
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load child row")
	}

	before := row.Data.Clone()
	// Reverting any entry on a since soft deleted row brings the row back;
	// the revert target is the row's state, not the deleting entry.
	if row.DeletedAt != nil {
		if err := s.children.Reinstate(ctx, tx, row.ID); err != nil {
			return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to reinstate child row")
		}
		row.DeletedAt = nil
	}
	for field := range entry.ChangedFields {
		if oldVal, ok := entry.OldValues[field]; ok {
			row.Data[field] = oldVal
		} else {
			delete(row.Data, field)
		}
	}
	if err := s.children.Update(ctx, tx, row); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to revert child row")
	}
	return s.RecordChildRow(ctx, tx, doc, row, actorID, models.ActionUpdate, before)
}
