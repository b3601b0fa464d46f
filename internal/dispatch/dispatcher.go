// Package dispatch turns notification intents into persisted in-app entries
// and queued channel deliveries. The in-app row is written synchronously so
// the inbox never lags behind the event that produced it; email and push run
// through the background worker pool.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/observability"
	"github.com/talentgrid/interview-engine/internal/queue"
	"github.com/talentgrid/interview-engine/internal/repository"
	"go.uber.org/zap"
)

// Intent is a request to notify one recipient. The dispatcher assigns the
// identifier and channel records.
type Intent struct {
	RecipientID   string
	RecipientType domain.RecipientType
	Type          domain.NotificationType
	Title         string
	Message       string
	Priority      domain.Priority
	Data          map[string]string
	ExpiresAt     *time.Time
}

// BroadcastSummary reports one role fan-out.
type BroadcastSummary struct {
	BroadcastID string
	Role        domain.Role
	TotalCount  int
	Failed      int
	Status      domain.BroadcastStatus
}

type Dispatcher struct {
	notifications repository.NotificationRepository
	broadcasts    repository.BroadcastRepository
	users         directory.Users
	publisher     queue.Publisher
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewDispatcher(
	notifications repository.NotificationRepository,
	broadcasts repository.BroadcastRepository,
	users directory.Users,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		notifications: notifications,
		broadcasts:    broadcasts,
		users:         users,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch persists the notification and queues its channel deliveries. The
// persisted entry survives a publish failure: the caller gets the entry back
// together with the error, and the channel records are marked failed.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) (*domain.Notification, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	notification, err := d.buildNotification(intent, nil)
	if err != nil {
		return nil, err
	}

	if err := d.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	if err := d.enqueue(ctx, notification); err != nil {
		return notification, err
	}
	return notification, nil
}

// BroadcastToRole resolves the recipient set once, creates one notification
// per recipient under a shared broadcast id, and reports the aggregate
// outcome. Individual failures do not abort the fan-out.
func (d *Dispatcher) BroadcastToRole(ctx context.Context, role domain.Role, intent Intent) (*BroadcastSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role %q", domain.ErrValidation, role)
	}
	if d.users == nil {
		return nil, fmt.Errorf("user directory is required for broadcasts")
	}
	if d.broadcasts == nil {
		return nil, fmt.Errorf("broadcast repository is required for broadcasts")
	}

	recipients, err := d.users.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients for role %s: %w", role, err)
	}
	if len(recipients) == 0 {
		d.logger.Warn("broadcast resolved no recipients", zap.String("role", role.String()))
		return &BroadcastSummary{Role: role, Status: domain.BroadcastCompleted}, nil
	}

	broadcast := &domain.Broadcast{
		ID:         uuid.NewString(),
		Role:       role,
		TotalCount: len(recipients),
		Status:     domain.BroadcastProcessing,
	}
	if err := d.broadcasts.Create(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("failed to create broadcast: %w", err)
	}

	failed := 0
	for i := range recipients {
		recipient := recipients[i]

		perRecipient := intent
		perRecipient.RecipientID = recipient.ID
		perRecipient.RecipientType = domain.RecipientUser

		notification, buildErr := d.buildNotification(perRecipient, &broadcast.ID)
		if buildErr != nil {
			return nil, buildErr
		}

		if err := d.notifications.Create(ctx, notification); err != nil {
			d.logger.Error("broadcast: failed to persist notification",
				zap.String("broadcastId", broadcast.ID),
				zap.String("recipientId", recipient.ID),
				zap.Error(err),
			)
			failed++
			continue
		}

		if err := d.enqueue(ctx, notification); err != nil {
			failed++
		}
	}

	status := domain.BroadcastCompleted
	if failed > 0 {
		status = domain.BroadcastPartialFailure
	}
	if err := d.broadcasts.UpdateStatus(ctx, broadcast.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update broadcast status: %w", err)
	}

	if failed > 0 {
		d.logger.Warn("broadcast completed with partial failure",
			zap.String("broadcastId", broadcast.ID),
			zap.Int("failed", failed),
			zap.Int("total", len(recipients)),
		)
	}

	return &BroadcastSummary{
		BroadcastID: broadcast.ID,
		Role:        role,
		TotalCount:  len(recipients),
		Failed:      failed,
		Status:      status,
	}, nil
}

func (d *Dispatcher) buildNotification(intent Intent, broadcastID *string) (*domain.Notification, error) {
	priority := intent.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	channels := make([]domain.ChannelDelivery, 0, len(domain.ConfiguredChannels()))
	for _, c := range domain.ConfiguredChannels() {
		channels = append(channels, domain.ChannelDelivery{
			Channel: c,
			Enabled: true,
			Status:  domain.DeliveryPending,
		})
	}

	notification := &domain.Notification{
		ID:            uuid.NewString(),
		RecipientID:   intent.RecipientID,
		RecipientType: intent.RecipientType,
		BroadcastID:   broadcastID,
		Type:          intent.Type,
		Title:         intent.Title,
		Message:       intent.Message,
		Priority:      priority,
		Data:          intent.Data,
		Channels:      channels,
		Status:        domain.StatusPending,
		ExpiresAt:     intent.ExpiresAt,
	}

	if err := notification.Validate(); err != nil {
		return nil, err
	}
	return notification, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, notification *domain.Notification) error {
	msg := queue.DeliveryMessage{
		NotificationID: notification.ID,
		Priority:       notification.Priority,
	}

	if err := d.publisher.Publish(ctx, queue.DeliveryQueueName, msg); err != nil {
		d.logger.Error("failed to publish delivery message",
			zap.String("notificationId", notification.ID),
			zap.Error(err),
		)
		d.failPendingChannels(ctx, notification, "publish failed")
		return fmt.Errorf("failed to publish delivery message: %w", err)
	}
	return nil
}

// failPendingChannels marks every pending channel failed after a publish
// error so the notification does not sit pending forever.
func (d *Dispatcher) failPendingChannels(ctx context.Context, notification *domain.Notification, reason string) {
	at := d.now().UTC()
	for i := range notification.Channels {
		ch := &notification.Channels[i]
		if ch.Status != domain.DeliveryPending {
			continue
		}

		outcome := repository.ChannelOutcome{
			Status:      domain.DeliveryFailed,
			AttemptedAt: &at,
			Error:       &reason,
		}
		if err := d.notifications.UpdateChannelOutcome(ctx, notification.ID, ch.Channel, outcome); err != nil {
			d.logger.Error("failed to mark channel failed after publish error",
				zap.String("notificationId", notification.ID),
				zap.String("channel", ch.Channel.String()),
				zap.Error(err),
			)
			continue
		}
		ch.Status = domain.DeliveryFailed

		if d.metrics != nil {
			d.metrics.IncDeliveryFailed(ch.Channel.String(), "publish_error")
		}
	}
	notification.Status = domain.DeriveStatus(notification.Channels)
}
