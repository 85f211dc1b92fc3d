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
	"github.com/unicef/etools-docflow/pkg/storage"
)

// AttachmentService stores blobs and manages their code bindings. Blobs are
// content addressed and immutable; documents reference them through bindings
// carrying the authoritative code tag.
type AttachmentService struct {
	documents   *repository.DocumentRepository
	attachments *repository.AttachmentRepository
	blobs       *storage.BlobStore
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
}

// AttachmentOption configures the service.
type AttachmentOption func(*AttachmentService)

// WithAttachmentLogger injects a logger.
func WithAttachmentLogger(logger *zap.Logger) AttachmentOption {
	return func(s *AttachmentService) { s.logger = logger }
}

// NewAttachmentService constructs the service.
func NewAttachmentService(
	documents *repository.DocumentRepository,
	attachments *repository.AttachmentRepository,
	blobs *storage.BlobStore,
	signer *storage.SignedURLSigner,
	opts ...AttachmentOption,
) *AttachmentService {
	s := &AttachmentService{
		documents:   documents,
		attachments: attachments,
		blobs:       blobs,
		signer:      signer,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var knownAttachmentCodes = map[string]struct{}{
	models.AttachmentCodeSignedPD:               {},
	models.AttachmentCodeReport:                 {},
	models.AttachmentCodeActivity:               {},
	models.AttachmentCodeFinalPartnershipReview: {},
	models.AttachmentCodeDataProcessing:         {},
	models.AttachmentCodeSpecialConditionsPCA:   {},
	models.AttachmentCodeTravelCertificate:      {},
}

// Upload stores the bytes and registers the blob. Uploading identical bytes
// twice produces one stored blob and two attachment records.
func (s *AttachmentService) Upload(ctx context.Context, fileName string, data []byte) (*models.Attachment, error) {
	if len(data) == 0 {
		return nil, apperrors.Clone(apperrors.ErrValidation, "empty attachment upload")
	}
	hash, err := s.blobs.Put(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to store blob")
	}
	att := &models.Attachment{
		BlobHash:  hash,
		FileName:  fileName,
		SizeBytes: int64(len(data)),
	}
	if err := s.attachments.CreateAttachment(ctx, s.documents.DB(), att); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to register attachment")
	}
	s.logger.Info("attachment uploaded",
		zap.String("attachment_id", att.ID),
		zap.String("blob_hash", hash),
		zap.Int64("size_bytes", att.SizeBytes))
	return att, nil
}

// Bind stamps an attachment onto a document under a code. A binding without
// a stored blob is invalid and rejected.
func (s *AttachmentService) Bind(ctx context.Context, claims *models.JWTClaims, kind models.Kind, documentID, attachmentID, code string) (*models.AttachmentBinding, error) {
	if _, ok := knownAttachmentCodes[code]; !ok {
		return nil, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown attachment code %q", code))
	}
	tenant, _ := claimIdentity(claims)

	doc, err := s.documents.GetByID(ctx, s.documents.DB(), tenant, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}
	if doc.Kind != kind {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "document not found")
	}

	att, err := s.attachments.GetAttachment(ctx, s.documents.DB(), attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "attachment not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load attachment")
	}
	if !s.blobs.Exists(att.BlobHash) {
		return nil, apperrors.Clone(apperrors.ErrConflict, "attachment blob is missing from storage")
	}

	binding := &models.AttachmentBinding{
		AttachmentID: att.ID,
		DocumentID:   doc.ID,
		Code:         code,
		Type:         string(kind),
	}
	if err := s.attachments.CreateBinding(ctx, s.documents.DB(), binding); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to create binding")
	}
	return binding, nil
}

// Unbind removes one binding; the blob stays.
func (s *AttachmentService) Unbind(ctx context.Context, claims *models.JWTClaims, kind models.Kind, documentID, bindingID string) error {
	tenant, _ := claimIdentity(claims)
	doc, err := s.documents.GetByID(ctx, s.documents.DB(), tenant, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Clone(apperrors.ErrNotFound, "document not found")
		}
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load document")
	}
	if doc.Kind != kind {
		return apperrors.Clone(apperrors.ErrNotFound, "document not found")
	}
	if err := s.attachments.DeleteBinding(ctx, s.documents.DB(), bindingID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to delete binding")
	}
	return nil
}

// DownloadToken issues a signed, expiring token for one attachment.
func (s *AttachmentService) DownloadToken(ctx context.Context, attachmentID string) (string, time.Time, error) {
	att, err := s.attachments.GetAttachment(ctx, s.documents.DB(), attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, apperrors.Clone(apperrors.ErrNotFound, "attachment not found")
		}
		return "", time.Time{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load attachment")
	}
	token, expiresAt, err := s.signer.Generate(att.ID, att.BlobHash)
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to sign download token")
	}
	return token, expiresAt, nil
}

// Resolve validates a download token and returns the blob bytes with the
// original file name.
func (s *AttachmentService) Resolve(ctx context.Context, token string) (string, []byte, error) {
	attachmentID, blobHash, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, apperrors.Clone(apperrors.ErrUnauthorized, "invalid or expired download token")
	}
	att, err := s.attachments.GetAttachment(ctx, s.documents.DB(), attachmentID)
	if err != nil {
		return "", nil, apperrors.Clone(apperrors.ErrNotFound, "attachment not found")
	}
	if att.BlobHash != blobHash {
		return "", nil, apperrors.Clone(apperrors.ErrUnauthorized, "token does not match attachment")
	}
	data, err := s.blobs.Get(blobHash)
	if err != nil {
		return "", nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to read blob")
	}
	return att.FileName, data, nil
}
