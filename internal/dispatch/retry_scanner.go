package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/queue"
	"github.com/talentgrid/interview-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultRetryScanInterval = 5 * time.Second
	defaultRetryScanLimit    = 100
)

// RetryScanner periodically re-enqueues channel deliveries whose retry time
// has come due. Each message names the one channel to retry, so the worker
// does not re-touch channels that already settled.
type RetryScanner struct {
	notifications repository.NotificationRepository
	publisher     queue.Publisher
	logger        *zap.Logger
	interval      time.Duration
	limit         int
	now           func() time.Time
}

func NewRetryScanner(
	notifications repository.NotificationRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*RetryScanner, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultRetryScanInterval
	}
	if limit <= 0 {
		limit = defaultRetryScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryScanner{
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		interval:      interval,
		limit:         limit,
		now:           time.Now,
	}, nil
}

func (s *RetryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due retries do not wait for the first ticker edge.
	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("retry scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retry scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *RetryScanner) scanDue(ctx context.Context) error {
	due, err := s.notifications.GetChannelsDueForRetry(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due retries: %w", err)
	}

	for i := range due {
		item := due[i]
		ch := item.Channel
		msg := queue.DeliveryMessage{
			NotificationID: item.NotificationID,
			Channel:        &ch,
			Priority:       domain.PriorityMedium,
		}

		if err := s.publisher.Publish(ctx, queue.DeliveryQueueName, msg); err != nil {
			s.logger.Error("failed to enqueue delivery retry",
				zap.String("notificationId", item.NotificationID),
				zap.String("channel", ch.String()),
				zap.Error(err),
			)
			continue
		}

		if err := s.notifications.ClearChannelRetry(ctx, item.NotificationID, ch); err != nil {
			s.logger.Error("failed to clear retry timestamp after enqueue",
				zap.String("notificationId", item.NotificationID),
				zap.String("channel", ch.String()),
				zap.Error(err),
			)
			continue
		}
	}

	return nil
}
