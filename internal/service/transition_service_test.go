package service

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	"github.com/unicef/etools-docflow/pkg/config"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

func newTransitionServiceMock(t *testing.T) (*TransitionService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	journal := NewJournalService(
		repository.NewJournalRepository(sqlxDB),
		repository.NewDocumentRepository(sqlxDB),
		repository.NewChildRowRepository(sqlxDB),
		nil,
	)
	svc := NewTransitionService(
		repository.NewDocumentRepository(sqlxDB),
		repository.NewChildRowRepository(sqlxDB),
		repository.NewReservationRepository(sqlxDB),
		repository.NewAttachmentRepository(sqlxDB),
		repository.NewParticipantRepository(sqlxDB),
		NewRoleService(),
		NewPermissionService(),
		NewRollupService(),
		journal,
		config.EngineConfig{MaxAutoFollowHops: 1},
	)
	return svc, mock
}

func lockedDocumentRow(doc models.Document) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "kind", "tenant", "reference_number", "status", "status_date",
		"author_id", "amendment_of", "rollup_pending", "data", "created_at", "updated_at",
	})
	data := []byte(`{}`)
	if doc.Data != nil {
		data, _ = json.Marshal(doc.Data)
	}
	var amendmentOf interface{}
	if doc.AmendmentOf != nil {
		amendmentOf = *doc.AmendmentOf
	}
	now := time.Now().UTC()
	rows.AddRow(doc.ID, doc.Kind, doc.Tenant, doc.ReferenceNumber, doc.Status,
		now, doc.AuthorID, amendmentOf, doc.RollupPending, data, now, now)
	return rows
}

func emptyGuardContextQueries(mock sqlmock.Sqlmock, docID string) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM child_rows WHERE document_id = $1 AND deleted_at IS NULL ORDER BY kind, ordinal`)).
		WithArgs(docID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "document_id", "parent_id", "kind", "code", "ordinal", "active",
			"unicef_cash", "cso_cash", "data", "created_at", "updated_at", "deleted_at",
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE document_id = $1 ORDER BY fr_number`)).
		WithArgs(docID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "fr_number", "vendor_code", "currency", "total_amt_local", "total_amt",
			"actual_amt_local", "actual_amt", "outstanding_amt_local", "outstanding_amt",
			"start_date", "end_date", "document_id", "created_at", "updated_at",
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attachment_bindings WHERE document_id = $1 ORDER BY created_at`)).
		WithArgs(docID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "attachment_id", "document_id", "code", "type", "created_at",
		}))
}

func TestExecuteUnknownTransition(t *testing.T) {
	svc, _ := newTransitionServiceMock(t)

	_, err := svc.Execute(context.Background(),
		&models.JWTClaims{UserID: "u1", Tenant: "kenya"},
		TransitionRequest{Kind: models.KindIntervention, ID: "d1", Name: "warp"})
	require.Error(t, err)
	assert.Equal(t, "TRANSITION_REJECTED", apperrors.FromError(err).Code)
}

func TestExecuteLostRaceReadsAsRejectedTransition(t *testing.T) {
	svc, mock := newTransitionServiceMock(t)

	// The row is already signed; the attempted move is only legal from review.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionSigned, AuthorID: "u1",
		}))
	mock.ExpectRollback()

	_, err := svc.Execute(context.Background(),
		&models.JWTClaims{UserID: "u1", Tenant: "kenya", Groups: []string{models.GroupUnicefUser}},
		TransitionRequest{Kind: models.KindIntervention, ID: "d1", Name: "submit_to_signature"})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, "TRANSITION_REJECTED", appErr.Code, "a stale source status is a rejection, never a permission problem")
	assert.Contains(t, appErr.Message, "submit_to_signature")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutePermissionCheckedAfterStatus(t *testing.T) {
	svc, mock := newTransitionServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionDraft, AuthorID: "someone-else",
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM participant_links WHERE document_id = $1 ORDER BY role, ordinal`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "actor_id", "role", "ordinal", "created_at"}))
	mock.ExpectRollback()

	// The status allows the move, but an unaffiliated user holds no role that grants it.
	_, err := svc.Execute(context.Background(),
		&models.JWTClaims{UserID: "u9", Tenant: "kenya"},
		TransitionRequest{Kind: models.KindIntervention, ID: "d1", Name: "send_to_partner"})
	require.Error(t, err)
	assert.Equal(t, "PERMISSION_DENIED", apperrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSendToPartnerStampsHandover(t *testing.T) {
	svc, mock := newTransitionServiceMock(t)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC) }

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionDraft, AuthorID: "u1",
			Data: models.Fields{"title": "PD one", "partner": "p1", "currency": "USD", "unicef_court": true},
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM participant_links WHERE document_id = $1 ORDER BY role, ordinal`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "actor_id", "role", "ordinal", "created_at"}))
	emptyGuardContextQueries(mock, "d1")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO journal_entries`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc, err := svc.Execute(context.Background(),
		&models.JWTClaims{UserID: "u1", Tenant: "kenya"},
		TransitionRequest{Kind: models.KindIntervention, ID: "d1", Name: "send_to_partner"})
	require.NoError(t, err)
	assert.Equal(t, models.InterventionDraft, doc.Status, "the handover keeps the document in draft")
	assert.Equal(t, false, doc.Data["unicef_court"])
	assert.Equal(t, "2026-09-01", doc.Data["date_sent_to_partner"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutePartnerFocalPointAccepts(t *testing.T) {
	svc, mock := newTransitionServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindIntervention, Tenant: "kenya",
			Status: models.InterventionDraft, AuthorID: "u1",
			Data: models.Fields{"title": "PD one", "partner": "p1", "currency": "USD", "unicef_court": false},
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM participant_links WHERE document_id = $1 ORDER BY role, ordinal`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "actor_id", "role", "ordinal", "created_at"}).
			AddRow("l1", "d1", "pfp-1", models.RolePartnerFocalPoint, 0, time.Now().UTC()))
	emptyGuardContextQueries(mock, "d1")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO journal_entries`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// The partner focal point holds a non-empty writable set in draft and may
	// record the partner side acceptance without leaving the status.
	partnerPerms := svc.perms.Resolve(models.KindIntervention, models.InterventionDraft,
		models.NewRoleSet(models.RolePartnerFocalPoint))
	assert.NotEmpty(t, partnerPerms.Writable)

	doc, err := svc.Execute(context.Background(),
		&models.JWTClaims{UserID: "pfp-1", Tenant: "kenya"},
		TransitionRequest{Kind: models.KindIntervention, ID: "d1", Name: "accept"})
	require.NoError(t, err)
	assert.Equal(t, models.InterventionDraft, doc.Status)
	assert.Equal(t, true, doc.Data["partner_accepted"])
	assert.Equal(t, false, doc.Data["unicef_court"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveRecipientsUsesSnapshotLinks(t *testing.T) {
	svc, mock := newTransitionServiceMock(t)

	doc := &models.Document{ID: "d1", AuthorID: "auth-1"}
	links := []models.ParticipantLink{
		{ActorID: "fp-1", Role: models.RoleFocalPoint},
		{ActorID: "fp-1", Role: models.RoleFocalPoint},
		{ActorID: "bo-1", Role: models.RoleBudgetOwner},
	}

	got := svc.resolveRecipients(doc, links,
		[]models.RoleTag{models.RoleFocalPoint, models.RoleAuthor})
	assert.Equal(t, []string{"fp-1", "auth-1"}, got)
	assert.NoError(t, mock.ExpectationsWereMet(), "recipients resolve from the links loaded under the lock")
}

func TestExecuteCommentRequired(t *testing.T) {
	svc, mock := newTransitionServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents WHERE id = $1 AND tenant = $2 FOR UPDATE`)).
		WithArgs("d1", "kenya").
		WillReturnRows(lockedDocumentRow(models.Document{
			ID: "d1", Kind: models.KindTPMVisit, Tenant: "kenya",
			Status: models.TPMVisitAssigned, AuthorID: "u1",
		}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM participant_links WHERE document_id = $1 ORDER BY role, ordinal`)).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "actor_id", "role", "ordinal", "created_at"}).
			AddRow("l1", "d1", "u2", models.RoleTPMFocalPoint, 0, time.Now().UTC()))
	mock.ExpectRollback()

	_, err := svc.Execute(context.Background(),
		&models.JWTClaims{UserID: "u2", Tenant: "kenya"},
		TransitionRequest{Kind: models.KindTPMVisit, ID: "d1", Name: "reject"})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, "required", appErr.Fields["comment"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
