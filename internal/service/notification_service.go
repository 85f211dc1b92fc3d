package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unicef/etools-docflow/internal/models"
	"github.com/unicef/etools-docflow/pkg/config"
)

// NotificationSink is the outbound delivery channel (mail relay or similar).
type NotificationSink interface {
	Deliver(ctx context.Context, recipient, template string, payload map[string]string) error
}

// logSink writes notifications to the log. Used when no relay is configured.
type logSink struct {
	logger *zap.Logger
}

func (s *logSink) Deliver(_ context.Context, recipient, template string, payload map[string]string) error {
	s.logger.Info("notification",
		zap.String("recipient", recipient),
		zap.String("template", template),
		zap.Any("payload", payload))
	return nil
}

// NotificationService fans out transition notifications. Duplicate sends for
// the same (document, transition status, recipient, template) are suppressed
// with a redis SETNX marker, so retried effects stay idempotent.
type NotificationService struct {
	redis  *redis.Client
	sink   NotificationSink
	cfg    config.NotificationsConfig
	logger *zap.Logger
}

// NotificationOption configures the service.
type NotificationOption func(*NotificationService)

// WithNotificationSink overrides the delivery channel.
func WithNotificationSink(sink NotificationSink) NotificationOption {
	return func(s *NotificationService) { s.sink = sink }
}

// WithNotificationLogger injects a logger.
func WithNotificationLogger(logger *zap.Logger) NotificationOption {
	return func(s *NotificationService) {
		s.logger = logger
		if ls, ok := s.sink.(*logSink); ok {
			ls.logger = logger
		}
	}
}

// NewNotificationService constructs the service. redisClient may be nil, in
// which case deduplication is skipped.
func NewNotificationService(redisClient *redis.Client, cfg config.NotificationsConfig, opts ...NotificationOption) *NotificationService {
	logger := zap.NewNop()
	s := &NotificationService{
		redis:  redisClient,
		cfg:    cfg,
		sink:   &logSink{logger: logger},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify implements Notifier. Failures are reported to the caller, which logs
// and moves on; a dead relay never blocks a transition.
func (s *NotificationService) Notify(ctx context.Context, doc *models.Document, template string, recipients []string) error {
	if !s.cfg.Enabled {
		return nil
	}
	payload := map[string]string{
		"reference_number": doc.ReferenceNumber,
		"status":           string(doc.Status),
		"kind":             string(doc.Kind),
	}
	var firstErr error
	for _, recipient := range recipients {
		fresh, err := s.markOnce(ctx, doc, template, recipient)
		if err != nil {
			s.logger.Warn("notification dedupe check failed, sending anyway",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else if !fresh {
			continue
		}
		if err := s.sink.Deliver(ctx, recipient, template, payload); err != nil {
			s.logger.Warn("notification delivery failed",
				zap.String("recipient", recipient),
				zap.String("template", template),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// markOnce claims the dedupe key. Returns false when an identical send was
// already recorded inside the TTL window.
func (s *NotificationService) markOnce(ctx context.Context, doc *models.Document, template, recipient string) (bool, error) {
	if s.redis == nil {
		return true, nil
	}
	key := fmt.Sprintf("notify:%s:%s:%s:%s", doc.ID, doc.Status, template, recipient)
	ttl := s.cfg.DedupeTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.redis.SetNX(ctx, key, 1, ttl).Result()
}
