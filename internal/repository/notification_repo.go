package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/talentgrid/interview-engine/internal/domain"
	"gorm.io/gorm"
)

// NotificationFilter lists a recipient's in-app inbox.
type NotificationFilter struct {
	RecipientID   *string
	RecipientType *domain.RecipientType
	Type          *domain.NotificationType
	Status        *domain.NotificationStatus
	Unread        bool
	Page          int
	PageSize      int
}

// ChannelOutcome is the result of one delivery attempt, applied to a single
// channel record.
type ChannelOutcome struct {
	Status           domain.DeliveryStatus
	AttemptedAt      *time.Time
	NextRetryAt      *time.Time
	Error            *string
	IncrementAttempt bool
}

// RetryItem identifies a channel delivery due for another attempt.
type RetryItem struct {
	NotificationID string
	Channel        domain.Channel
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, int64, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) error
	UpdateChannelOutcome(ctx context.Context, notificationID string, channel domain.Channel, outcome ChannelOutcome) error
	GetChannelsDueForRetry(ctx context.Context, now time.Time, limit int) ([]RetryItem, error)
	ClearChannelRetry(ctx context.Context, notificationID string, channel domain.Channel) error
}

type GormNotificationRepo struct {
	db *gorm.DB
}

func NewGormNotificationRepo(db *gorm.DB) *GormNotificationRepo {
	return &GormNotificationRepo{db: db}
}

// Create persists the notification and its channel records in one
// transaction, so the in-app entry exists before any delivery is attempted.
func (r *GormNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	model, err := notificationModelFromDomain(n)
	if err != nil {
		return err
	}
	if model == nil {
		return domain.ErrValidation
	}

	for i := range model.Channels {
		if model.Channels[i].ID == "" {
			model.Channels[i].ID = uuid.NewString()
		}
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	restored, err := notificationModelToDomain(model)
	if err != nil {
		return err
	}
	*n = *restored
	return nil
}

func (r *GormNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).
		Preload("Channels").
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationModelToDomain(&model)
}

func (r *GormNotificationRepo) List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationModel{})

	if filter.RecipientID != nil {
		query = query.Where("recipient_id = ?", *filter.RecipientID)
	}
	if filter.RecipientType != nil {
		query = query.Where("recipient_type = ?", *filter.RecipientType)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Unread {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(filter.Page, 1)
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	pageSize = min(pageSize, 100)

	var models []NotificationModel
	err := query.
		Preload("Channels").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		n, err := notificationModelToDomain(&models[i])
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, *n)
	}

	return notifications, total, nil
}

func (r *GormNotificationRepo) MarkRead(ctx context.Context, id, recipientID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", id, recipientID).
		Update("read_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateChannelOutcome applies a delivery attempt's result to the channel
// record and recomputes the notification's derived status in the same
// transaction, keeping the invariant that the overall status is never written
// independently of channel outcomes.
func (r *GormNotificationRepo) UpdateChannelOutcome(
	ctx context.Context,
	notificationID string,
	channel domain.Channel,
	outcome ChannelOutcome,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":        outcome.Status,
			"next_retry_at": outcome.NextRetryAt,
			"error_message": outcome.Error,
		}
		if outcome.AttemptedAt != nil {
			updates["last_attempt_at"] = *outcome.AttemptedAt
		}
		if outcome.IncrementAttempt {
			updates["attempts"] = gorm.Expr("attempts + 1")
		}

		result := tx.Model(&ChannelDeliveryModel{}).
			Where("notification_id = ? AND channel = ?", notificationID, channel).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		var channels []ChannelDeliveryModel
		if err := tx.Where("notification_id = ?", notificationID).Find(&channels).Error; err != nil {
			return err
		}

		deliveries := make([]domain.ChannelDelivery, 0, len(channels))
		for _, ch := range channels {
			deliveries = append(deliveries, domain.ChannelDelivery{Channel: ch.Channel, Status: ch.Status})
		}

		return tx.Model(&NotificationModel{}).
			Where("id = ?", notificationID).
			Update("status", domain.DeriveStatus(deliveries)).Error
	})
}

// ClearChannelRetry unsets the retry timestamp after a retry is enqueued so
// the scanner does not re-publish the same delivery on the next tick.
func (r *GormNotificationRepo) ClearChannelRetry(ctx context.Context, notificationID string, channel domain.Channel) error {
	return r.db.WithContext(ctx).
		Model(&ChannelDeliveryModel{}).
		Where("notification_id = ? AND channel = ?", notificationID, channel).
		Update("next_retry_at", nil).Error
}

func (r *GormNotificationRepo) GetChannelsDueForRetry(ctx context.Context, now time.Time, limit int) ([]RetryItem, error) {
	var models []ChannelDeliveryModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", domain.DeliveryPending, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	items := make([]RetryItem, 0, len(models))
	for _, m := range models {
		items = append(items, RetryItem{NotificationID: m.NotificationID, Channel: m.Channel})
	}
	return items, nil
}
