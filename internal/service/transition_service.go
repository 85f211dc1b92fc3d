package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	"github.com/unicef/etools-docflow/pkg/config"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

// Notifier delivers a templated notification to named recipients. Delivery is
// best effort; the engine never rolls a transition back over a failed send.
type Notifier interface {
	Notify(ctx context.Context, doc *models.Document, template string, recipients []string) error
}

// HACTRecounter schedules a partner counter recomputation.
type HACTRecounter interface {
	ScheduleRecount(ctx context.Context, tenant, partnerID string) error
}

// TransitionService drives status changes. One attempt runs inside a single
// transaction under the document row lock: source status check, permission
// check, patch, guards in declared order, then the commit of status, derived
// rollups and the journal entry together.
type TransitionService struct {
	documents    *repository.DocumentRepository
	children     *repository.ChildRowRepository
	reservations *repository.ReservationRepository
	attachments  *repository.AttachmentRepository
	participants *repository.ParticipantRepository

	roles   *RoleService
	perms   *PermissionService
	rollups *RollupService
	journal *JournalService

	catalog  Catalog
	engine   config.EngineConfig
	notifier Notifier
	hact     HACTRecounter
	logger   *zap.Logger
	now      func() time.Time
}

// TransitionOption configures the service.
type TransitionOption func(*TransitionService)

// WithTransitionLogger injects a logger.
func WithTransitionLogger(logger *zap.Logger) TransitionOption {
	return func(s *TransitionService) { s.logger = logger }
}

// WithNotifier injects the notification sink.
func WithNotifier(n Notifier) TransitionOption {
	return func(s *TransitionService) { s.notifier = n }
}

// WithHACTRecounter injects the partner counter scheduler.
func WithHACTRecounter(h HACTRecounter) TransitionOption {
	return func(s *TransitionService) { s.hact = h }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TransitionOption {
	return func(s *TransitionService) { s.now = now }
}

// NewTransitionService constructs the service. The catalog is validated here;
// a malformed catalog is a programming error and panics at startup.
func NewTransitionService(
	documents *repository.DocumentRepository,
	children *repository.ChildRowRepository,
	reservations *repository.ReservationRepository,
	attachments *repository.AttachmentRepository,
	participants *repository.ParticipantRepository,
	roles *RoleService,
	perms *PermissionService,
	rollups *RollupService,
	journal *JournalService,
	engine config.EngineConfig,
	opts ...TransitionOption,
) *TransitionService {
	catalog := BuildCatalog()
	if err := catalog.validate(); err != nil {
		panic(err)
	}
	s := &TransitionService{
		documents:    documents,
		children:     children,
		reservations: reservations,
		attachments:  attachments,
		participants: participants,
		roles:        roles,
		perms:        perms,
		rollups:      rollups,
		journal:      journal,
		catalog:      catalog,
		engine:       engine,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransitionRequest is one transition attempt.
type TransitionRequest struct {
	Kind    models.Kind
	ID      string
	Name    string
	Comment string
	Patch   models.Fields
}

// Execute runs one transition attempt and, on success, at most one declared
// auto-follow hop. The follow-up is best effort: its failure leaves the
// document in the committed intermediate status.
func (s *TransitionService) Execute(ctx context.Context, claims *models.JWTClaims, req TransitionRequest) (*models.Document, error) {
	doc, links, effects, err := s.executeOne(ctx, claims, req)
	if err != nil {
		return nil, err
	}
	s.runEffects(ctx, doc, links, effects)

	transitions, ok := s.catalog[req.Kind]
	if !ok {
		return doc, nil
	}
	follow := transitions[req.Name].AutoFollow
	if follow == "" || s.engine.MaxAutoFollowHops < 1 {
		return doc, nil
	}
	followed, followLinks, followEffects, err := s.executeOne(ctx, claims, TransitionRequest{
		Kind: req.Kind,
		ID:   req.ID,
		Name: follow,
	})
	if err != nil {
		s.logger.Warn("auto-follow transition failed",
			zap.String("document_id", req.ID),
			zap.String("transition", follow),
			zap.Error(err))
		return doc, nil
	}
	s.runEffects(ctx, followed, followLinks, followEffects)
	return followed, nil
}

func (s *TransitionService) executeOne(ctx context.Context, claims *models.JWTClaims, req TransitionRequest) (*models.Document, []models.ParticipantLink, []EffectSpec, error) {
	transitions, ok := s.catalog[req.Kind]
	if !ok {
		return nil, nil, nil, apperrors.Clone(apperrors.ErrNotFound, "unknown document kind")
	}
	transition, ok := transitions[req.Name]
	if !ok {
		return nil, nil, nil, apperrors.Transition(fmt.Sprintf("Unknown transition %q", req.Name))
	}

	tenant := ""
	if claims != nil {
		tenant = claims.Tenant
	}

	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin transition")
	}
	defer tx.Rollback()

	doc, err := s.documents.GetForUpdate(ctx, tx, tenant, req.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return nil, nil, nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}

	// The source status check precedes the permission check: a lost race
	// against a concurrent transition reads as a rejected transition, not as
	// a permission problem.
	if !transition.AllowsFrom(doc.Status) {
		return nil, nil, nil, apperrors.Transition(fmt.Sprintf(
			"Cannot perform %q while the document is in status %q", req.Name, doc.Status))
	}

	links, err := s.participants.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load participants")
	}
	roleSet := s.roles.RolesFor(claims, doc, links)
	perms := s.perms.Resolve(doc.Kind, doc.Status, roleSet)
	if !perms.CanTransition(req.Name) {
		return nil, nil, nil, apperrors.Clone(apperrors.ErrPermissionDenied,
			fmt.Sprintf("not allowed to perform %q", req.Name))
	}

	if transition.RequiresComment != "" && req.Comment == "" {
		return nil, nil, nil, apperrors.WithFields(
			apperrors.Clone(apperrors.ErrValidation, "a comment is required for this transition"),
			map[string]string{"comment": "required"})
	}

	before := doc.Data.Clone()
	if doc.Data == nil {
		doc.Data = models.Fields{}
	}
	for field, value := range req.Patch {
		if !perms.CanWrite(field) {
			return nil, nil, nil, apperrors.Clone(apperrors.ErrPermissionDenied,
				fmt.Sprintf("field %q is not writable in status %q", field, doc.Status))
		}
		doc.Data[field] = value
	}
	if transition.RequiresComment != "" {
		doc.Data[transition.RequiresComment] = req.Comment
	}

	gc, err := s.buildGuardContext(ctx, tx, doc, links, req.Comment)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, guard := range transition.Guards {
		if err := guard.Check(gc); err != nil {
			s.logger.Debug("transition guard failed",
				zap.String("document_id", doc.ID),
				zap.String("transition", req.Name),
				zap.String("guard", guard.Name),
				zap.Error(err))
			return nil, nil, nil, err
		}
	}

	if transition.Apply != nil {
		transition.Apply(gc)
	}
	doc.Status = transition.To
	doc.StatusDate = s.now().UTC()
	s.rollups.Apply(doc, gc.Children, gc.Reservations)

	if err := s.documents.Update(ctx, tx, doc); err != nil {
		return nil, nil, nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to persist transition")
	}
	actorID := ""
	if claims != nil {
		actorID = claims.UserID
	}
	name := req.Name
	if err := s.journal.RecordDocument(ctx, tx, doc, actorID, models.ActionTransition, &name, before); err != nil {
		return nil, nil, nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal transition")
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit transition")
	}

	s.logger.Info("transition committed",
		zap.String("document_id", doc.ID),
		zap.String("kind", string(doc.Kind)),
		zap.String("transition", req.Name),
		zap.String("status", string(doc.Status)),
		zap.String("actor_id", actorID))
	return doc, links, transition.Effects, nil
}

func (s *TransitionService) buildGuardContext(ctx context.Context, tx *sqlx.Tx, doc *models.Document, links []models.ParticipantLink, comment string) (*GuardContext, error) {
	children, err := s.children.ListByDocument(ctx, tx, doc.ID, false)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load child rows")
	}
	reservations, err := s.reservations.ListByDocument(ctx, tx, doc.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load reservations")
	}
	bindings, err := s.attachments.ListBindings(ctx, tx, doc.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load attachment bindings")
	}
	gc := &GuardContext{
		Doc:                doc,
		Children:           children,
		Reservations:       reservations,
		Bindings:           bindings,
		Participants:       links,
		Today:              s.now().UTC().Truncate(24 * time.Hour),
		ReviewThresholdUSD: s.engine.FRReviewThresholdUSD[string(doc.Kind)],
		Comment:            comment,
	}
	gc.Totals = s.rollups.FRTotals(doc, reservations)
	return gc, nil
}

// runEffects interprets the declared effects of a committed transition.
// Recipients resolve against the participant links loaded under the row lock,
// so the effect sees the same snapshot the guards did. Effects are idempotent
// at the sink and never influence the outcome.
func (s *TransitionService) runEffects(ctx context.Context, doc *models.Document, links []models.ParticipantLink, effects []EffectSpec) {
	for _, effect := range effects {
		switch effect.Kind {
		case EffectNotify:
			if s.notifier == nil {
				continue
			}
			recipients := s.resolveRecipients(doc, links, effect.Recipients)
			if len(recipients) == 0 {
				continue
			}
			if err := s.notifier.Notify(ctx, doc, effect.Template, recipients); err != nil {
				s.logger.Warn("notification delivery failed",
					zap.String("document_id", doc.ID),
					zap.String("template", effect.Template),
					zap.Error(err))
			}
		case EffectHACTRecount:
			if s.hact == nil {
				continue
			}
			partnerID := doc.Data.String("partner")
			if partnerID == "" {
				continue
			}
			if err := s.hact.ScheduleRecount(ctx, doc.Tenant, partnerID); err != nil {
				s.logger.Warn("failed to schedule partner recount",
					zap.String("document_id", doc.ID),
					zap.String("partner_id", partnerID),
					zap.Error(err))
			}
		}
	}
}

func (s *TransitionService) resolveRecipients(doc *models.Document, links []models.ParticipantLink, roles []models.RoleTag) []string {
	wanted := models.NewRoleSet(roles...)
	seen := make(map[string]struct{})
	recipients := make([]string, 0, len(links))
	for _, link := range links {
		if !wanted.Has(link.Role) {
			continue
		}
		if _, dup := seen[link.ActorID]; dup {
			continue
		}
		seen[link.ActorID] = struct{}{}
		recipients = append(recipients, link.ActorID)
	}
	// The author is addressable without a participant link.
	if wanted.Has(models.RoleAuthor) {
		if _, dup := seen[doc.AuthorID]; !dup && doc.AuthorID != "" {
			recipients = append(recipients, doc.AuthorID)
		}
	}
	return recipients
}
