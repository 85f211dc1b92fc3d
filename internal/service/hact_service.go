package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unicef/etools-docflow/internal/repository"
	"github.com/unicef/etools-docflow/pkg/config"
	apperrors "github.com/unicef/etools-docflow/pkg/errors"
	"github.com/unicef/etools-docflow/pkg/jobs"
)

const jobTypeHACTRecount = "hact_recount"

type hactRecountPayload struct {
	Tenant    string
	PartnerID string
}

// HACTService recomputes partner programmatic visit counters from completed
// monitoring activities. Recounts run synchronously or through the job queue,
// depending on configuration; either way the partner row lock serializes
// concurrent recounts to the same partner.
type HACTService struct {
	partners  *repository.PartnerRepository
	documents *repository.DocumentRepository
	cfg       config.HACTConfig
	queue     *jobs.Queue
	logger    *zap.Logger
}

// HACTOption configures the service.
type HACTOption func(*HACTService)

// WithHACTLogger injects a logger.
func WithHACTLogger(logger *zap.Logger) HACTOption {
	return func(s *HACTService) { s.logger = logger }
}

// NewHACTService constructs the service and, in deferred mode, its queue.
// Call Start before scheduling and Stop on shutdown.
func NewHACTService(
	partners *repository.PartnerRepository,
	documents *repository.DocumentRepository,
	cfg config.HACTConfig,
	opts ...HACTOption,
) *HACTService {
	s := &HACTService{
		partners:  partners,
		documents: documents,
		cfg:       cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Deferred {
		s.queue = jobs.NewQueue(jobTypeHACTRecount, s.handleJob, jobs.QueueConfig{
			Workers: cfg.QueueWorkers,
			Logger:  s.logger,
		})
	}
	return s
}

// Start launches queue workers in deferred mode; a no-op otherwise.
func (s *HACTService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop drains queue workers.
func (s *HACTService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// ScheduleRecount implements HACTRecounter. In deferred mode the recount is
// queued and retried; otherwise it runs inline.
func (s *HACTService) ScheduleRecount(ctx context.Context, tenant, partnerID string) error {
	if s.queue != nil {
		return s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    jobTypeHACTRecount,
			Payload: hactRecountPayload{Tenant: tenant, PartnerID: partnerID},
		})
	}
	return s.Recount(ctx, tenant, partnerID)
}

func (s *HACTService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(hactRecountPayload)
	if !ok {
		s.logger.Error("hact job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.Recount(ctx, payload.Tenant, payload.PartnerID)
}

// Recount rebuilds the programmatic visit counter for one partner. The
// counter is the number of distinct (partner, end date) pairs over completed
// programmatic visit activities, recomputed from scratch every time.
func (s *HACTService) Recount(ctx context.Context, tenant, partnerID string) error {
	tx, err := s.documents.DB().BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to begin recount")
	}
	defer tx.Rollback()

	partner, err := s.partners.GetForUpdate(ctx, tx, partnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Clone(apperrors.ErrNotFound, "partner not found")
		}
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to lock partner")
	}

	visits, err := s.partners.CountProgrammaticVisits(ctx, tx, partnerID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to count visits")
	}
	if err := s.partners.UpdateProgrammaticVisits(ctx, tx, partnerID, visits); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to store counter")
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to commit recount")
	}
	s.logger.Info("partner visits recounted",
		zap.String("tenant", tenant),
		zap.String("partner_id", partner.ID),
		zap.Int("visits", visits),
		zap.Time("at", time.Now().UTC()))
	return nil
}
