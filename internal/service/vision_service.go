package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/internal/repository"
	"github.com/unicef/etools-docflow/pkg/config"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
)

// VisionService ingests ERP feed batches: fund reservation snapshots upserted
// by FR number and country programme result nodes upserted by WBS. The feed
// is authoritative for amounts; the engine only tracks claims.
type VisionService struct {
	documents    *repository.DocumentRepository
	reservations *repository.ReservationRepository
	results      *repository.ResultRepository
	journal      *JournalService
	cfg          config.VisionConfig
	logger       *zap.Logger
}

// VisionOption configures the service.
type VisionOption func(*VisionService)

// WithVisionLogger injects a logger.
func WithVisionLogger(logger *zap.Logger) VisionOption {
	return func(s *VisionService) { s.logger = logger }
}

// NewVisionService constructs the service.
func NewVisionService(
	documents *repository.DocumentRepository,
	reservations *repository.ReservationRepository,
	results *repository.ResultRepository,
	journal *JournalService,
	cfg config.VisionConfig,
	opts ...VisionOption,
) *VisionService {
	s := &VisionService{
		documents:    documents,
		reservations: reservations,
		results:      results,
		journal:      journal,
		cfg:          cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FeedResult summarises one ingested batch.
type FeedResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Unlinked int `json:"unlinked"`
	Skipped  int `json:"skipped"`
}

// IngestReservations upserts one feed batch. Unknown FR numbers insert;
// known ones update only when a feed column actually changed. A currency
// change on a reservation still claimed by a document force releases the
// claim and journals the release on the holder.
func (s *VisionService) IngestReservations(ctx context.Context, records []models.FundReservationRecord) (*FeedResult, error) {
	if !s.cfg.Enabled {
		return nil, apperrors.Clone(apperrors.ErrConflict, "vision sync is disabled")
	}
	result := &FeedResult{}
	for _, record := range records {
		if record.FRNumber == "" {
			result.Skipped++
			continue
		}
		if err := s.ingestOne(ctx, record, result); err != nil {
			return nil, err
		}
	}
	s.logger.Info("reservation feed ingested",
		zap.Int("records", len(records)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("unlinked", result.Unlinked),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *VisionService) ingestOne(ctx context.Context, record models.FundReservationRecord, result *FeedResult) error {
	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin feed upsert")
	}
	defer tx.Rollback()

	existing, err := s.reservations.GetByFRNumber(ctx, tx, record.FRNumber)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load reservation")
	}

	if existing == nil {
		res := &models.Reservation{
			FRNumber:            record.FRNumber,
			VendorCode:          record.VendorCode,
			Currency:            record.Currency,
			TotalAmtLocal:       record.TotalAmtLocal,
			TotalAmt:            record.TotalAmt,
			ActualAmtLocal:      record.ActualAmtLocal,
			ActualAmt:           record.ActualAmt,
			OutstandingAmtLocal: record.OutstandingAmtLocal,
			OutstandingAmt:      record.OutstandingAmt,
			StartDate:           record.StartDate,
			EndDate:             record.EndDate,
		}
		if err := s.reservations.Create(ctx, tx, res); err != nil {
			return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to insert reservation")
		}
		result.Created++
		return commitFeedTx(tx)
	}

	if !reservationChanged(existing, record) {
		result.Skipped++
		return nil
	}

	currencyChanged := existing.Currency != record.Currency
	if currencyChanged && existing.DocumentID != nil {
		if err := s.forceUnlink(ctx, tx, existing, record.Currency); err != nil {
			return err
		}
		result.Unlinked++
	}

	existing.VendorCode = record.VendorCode
	existing.Currency = record.Currency
	existing.TotalAmtLocal = record.TotalAmtLocal
	existing.TotalAmt = record.TotalAmt
	existing.ActualAmtLocal = record.ActualAmtLocal
	existing.ActualAmt = record.ActualAmt
	existing.OutstandingAmtLocal = record.OutstandingAmtLocal
	existing.OutstandingAmt = record.OutstandingAmt
	existing.StartDate = record.StartDate
	existing.EndDate = record.EndDate
	if err := s.reservations.UpdateAmounts(ctx, tx, existing); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to update reservation")
	}
	result.Updated++
	return commitFeedTx(tx)
}

// forceUnlink releases a claim whose currency the feed changed under the
// holder. The release is journaled on the holding document so the change is
// visible in its history.
func (s *VisionService) forceUnlink(ctx context.Context, tx *sqlx.Tx, res *models.Reservation, newCurrency string) error {
	docID := *res.DocumentID
	doc, err := s.documents.GetForUpdateByID(ctx, tx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Holder vanished; just release.
			return s.reservations.Unlink(ctx, tx, res.FRNumber, docID)
		}
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load holder")
	}
	if err := s.reservations.Unlink(ctx, tx, res.FRNumber, docID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to force unlink")
	}

	// The release never touches document fields; override_reason in
	// particular stays under the control of the closing editors. The holder
	// only gets its rollups flagged stale and a journal entry.
	doc.RollupPending = true
	if err := s.documents.Update(ctx, tx, doc); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to mark holder")
	}
	if err := s.journal.RecordReservationRelease(ctx, tx, doc, "vision-feed", res.FRNumber,
		"currency changed to "+newCurrency); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to journal forced release")
	}
	s.logger.Warn("reservation force unlinked on currency change",
		zap.String("fr_number", res.FRNumber),
		zap.String("document_id", docID),
		zap.String("old_currency", res.Currency),
		zap.String("new_currency", newCurrency))
	return nil
}

func reservationChanged(existing *models.Reservation, record models.FundReservationRecord) bool {
	if existing.VendorCode != record.VendorCode || existing.Currency != record.Currency {
		return true
	}
	if !amountsEqual(existing.TotalAmtLocal, record.TotalAmtLocal) ||
		!amountsEqual(existing.TotalAmt, record.TotalAmt) ||
		!amountsEqual(existing.ActualAmtLocal, record.ActualAmtLocal) ||
		!amountsEqual(existing.ActualAmt, record.ActualAmt) ||
		!amountsEqual(existing.OutstandingAmtLocal, record.OutstandingAmtLocal) ||
		!amountsEqual(existing.OutstandingAmt, record.OutstandingAmt) {
		return true
	}
	if !datesEqual(existing.StartDate, record.StartDate) || !datesEqual(existing.EndDate, record.EndDate) {
		return true
	}
	return false
}

// UpsertResultNodes ingests country programme hierarchy rows. A WBS arriving
// with a different result type re-classifies the stored node.
func (s *VisionService) UpsertResultNodes(ctx context.Context, nodes []models.ResultNode) (*FeedResult, error) {
	if !s.cfg.Enabled {
		return nil, apperrors.Clone(apperrors.ErrConflict, "vision sync is disabled")
	}
	result := &FeedResult{}
	db := s.documents.DB()
	for _, node := range nodes {
		if node.WBS == "" {
			result.Skipped++
			continue
		}
		existing, err := s.results.GetByWBS(ctx, db, node.WBS)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to load result node")
		}
		if existing == nil {
			fresh := node
			if err := s.results.Create(ctx, db, &fresh); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to insert result node")
			}
			result.Created++
			continue
		}
		if existing.Name == node.Name && existing.ResultType == node.ResultType {
			result.Skipped++
			continue
		}
		if existing.ResultType != node.ResultType {
			s.logger.Warn("result node re-classified",
				zap.String("wbs", node.WBS),
				zap.String("old_type", existing.ResultType),
				zap.String("new_type", node.ResultType))
		}
		existing.Name = node.Name
		existing.ResultType = node.ResultType
		if err := s.results.Update(ctx, db, existing); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to update result node")
		}
		result.Updated++
	}
	return result, nil
}

func datesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func commitFeedTx(tx *sqlx.Tx) error {
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit feed upsert")
	}
	return nil
}
