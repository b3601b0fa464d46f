package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talentgrid/interview-engine/internal/channel"
	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/observability"
	"github.com/talentgrid/interview-engine/internal/queue"
	"github.com/talentgrid/interview-engine/internal/ratelimit"
	"github.com/talentgrid/interview-engine/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minWorkerConcurrency  = 1
	maxDeliveryAttempts   = 5
	maxRetryDelay         = 60 * time.Second
	baseRetryDelay        = time.Second
	maxRetryJitterMillis  = 250
	defaultAttemptTimeout = 15 * time.Second

	skipReasonExpired       = "expired"
	skipReasonDisabled      = "preference_disabled"
	skipReasonQuietHours    = "quiet_hours"
	skipReasonNoPushTargets = "no_push_targets"
)

// resolvedRecipient is the addressing data one delivery pass needs, looked up
// once per message.
type resolvedRecipient struct {
	email   channel.Recipient
	targets []channel.PushTarget
}

// DeliveryWorker consumes the delivery queue and drives each notification's
// pending channels through preference gates, quiet hours, rate limiting, and
// the channel adapters. A failed channel never fails the message; outcomes
// land on the channel records and the derived status follows.
type DeliveryWorker struct {
	notifications  repository.NotificationRepository
	preferences    repository.PreferenceRepository
	attempts       repository.AttemptRepository
	dir            directory.Directory
	consumer       queue.Consumer
	emailer        channel.Emailer
	pusher         channel.Pusher
	rateLimiter    ratelimit.RateLimiter
	logger         *zap.Logger
	metrics        *observability.Metrics
	concurrency    int
	attemptTimeout time.Duration
	now            func() time.Time
	randIntn       func(n int) int
}

func NewDeliveryWorker(
	notifications repository.NotificationRepository,
	preferences repository.PreferenceRepository,
	attempts repository.AttemptRepository,
	dir directory.Directory,
	consumer queue.Consumer,
	emailer channel.Emailer,
	pusher channel.Pusher,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*DeliveryWorker, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if preferences == nil {
		return nil, fmt.Errorf("preference repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryWorker{
		notifications:  notifications,
		preferences:    preferences,
		attempts:       attempts,
		dir:            dir,
		consumer:       consumer,
		emailer:        emailer,
		pusher:         pusher,
		rateLimiter:    rateLimiter,
		logger:         logger,
		concurrency:    concurrency,
		attemptTimeout: defaultAttemptTimeout,
		now:            time.Now,
		randIntn:       rand.Intn,
	}, nil
}

func (w *DeliveryWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes the delivery queue until context cancellation.
func (w *DeliveryWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("delivery worker started", zap.Int("workerId", workerID))

			err := w.consumer.Consume(groupCtx, queue.DeliveryQueueName, w.processMessage)
			if err != nil {
				w.logger.Error("delivery worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("delivery worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *DeliveryWorker) processMessage(ctx context.Context, msg queue.DeliveryMessage) error {
	notification, err := w.notifications.GetByID(ctx, msg.NotificationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.logger.Warn("notification not found during delivery, skipping",
				zap.String("notificationId", msg.NotificationID),
			)
			return nil
		}
		return fmt.Errorf("failed to load notification: %w", err)
	}

	now := w.now().UTC()
	if notification.IsExpired(now) {
		w.skipPendingChannels(ctx, notification, msg.Channel, skipReasonExpired)
		return nil
	}

	pref, err := w.loadPreference(ctx, notification.RecipientID, notification.RecipientType)
	if err != nil {
		return err
	}

	recipient, err := w.resolveRecipient(ctx, notification)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.logger.Warn("recipient not found during delivery, skipping",
				zap.String("notificationId", notification.ID),
				zap.String("recipientId", notification.RecipientID),
			)
			return nil
		}
		return err
	}

	for i := range notification.Channels {
		ch := notification.Channels[i]
		if msg.Channel != nil && ch.Channel != *msg.Channel {
			continue
		}
		if ch.Status != domain.DeliveryPending {
			continue
		}

		if err := w.deliverChannel(ctx, notification, ch, pref, recipient); err != nil {
			w.logger.Error("channel delivery bookkeeping failed",
				zap.String("notificationId", notification.ID),
				zap.String("channel", ch.Channel.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (w *DeliveryWorker) deliverChannel(
	ctx context.Context,
	notification *domain.Notification,
	ch domain.ChannelDelivery,
	pref *domain.NotificationPreference,
	recipient *resolvedRecipient,
) error {
	channelName := strings.ToLower(ch.Channel.String())
	now := w.now().UTC()

	if !ch.Enabled || !pref.ChannelEnabled(notification.Type, ch.Channel) {
		return w.skipChannel(ctx, notification.ID, ch.Channel, skipReasonDisabled)
	}
	if pref.InQuietHours(now, notification.Priority) {
		return w.skipChannel(ctx, notification.ID, ch.Channel, skipReasonQuietHours)
	}
	if ch.Channel == domain.ChannelPush && notification.RecipientType == domain.RecipientCompany {
		return w.skipChannel(ctx, notification.ID, ch.Channel, skipReasonNoPushTargets)
	}

	if w.metrics != nil {
		w.metrics.IncWorkerInFlight(channelName)
		defer w.metrics.DecWorkerInFlight(channelName)
	}

	if w.rateLimiter != nil {
		if err := w.rateLimiter.Wait(ctx, channelName); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	attemptNumber := ch.Attempts + 1
	attemptCtx, cancel := context.WithTimeout(ctx, w.attemptTimeout)
	sendStart := w.now()
	sendErr := w.send(attemptCtx, notification, ch.Channel, recipient)
	cancel()
	if w.metrics != nil {
		w.metrics.ObserveDeliveryDuration(channelName, w.now().Sub(sendStart))
	}

	if err := w.recordAttempt(ctx, notification.ID, ch.Channel, attemptNumber, sendErr); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	attemptedAt := w.now().UTC()
	if sendErr == nil {
		outcome := repository.ChannelOutcome{
			Status:           domain.DeliverySent,
			AttemptedAt:      &attemptedAt,
			IncrementAttempt: true,
		}
		if err := w.notifications.UpdateChannelOutcome(ctx, notification.ID, ch.Channel, outcome); err != nil {
			return fmt.Errorf("failed to record sent outcome: %w", err)
		}
		if w.metrics != nil {
			w.metrics.IncDeliverySent(channelName)
		}
		return nil
	}

	errText := sendErr.Error()
	isTransient := channel.IsTransient(sendErr)

	if isTransient && attemptNumber < maxDeliveryAttempts {
		nextRetryAt := w.now().Add(w.computeRetryDelay(attemptNumber))
		outcome := repository.ChannelOutcome{
			Status:           domain.DeliveryPending,
			AttemptedAt:      &attemptedAt,
			NextRetryAt:      &nextRetryAt,
			Error:            &errText,
			IncrementAttempt: true,
		}
		if err := w.notifications.UpdateChannelOutcome(ctx, notification.ID, ch.Channel, outcome); err != nil {
			return fmt.Errorf("failed to schedule retry: %w", err)
		}
		if w.metrics != nil {
			w.metrics.IncRetryScheduled(channelName)
		}
		return nil
	}

	outcome := repository.ChannelOutcome{
		Status:           domain.DeliveryFailed,
		AttemptedAt:      &attemptedAt,
		Error:            &errText,
		IncrementAttempt: true,
	}
	if err := w.notifications.UpdateChannelOutcome(ctx, notification.ID, ch.Channel, outcome); err != nil {
		return fmt.Errorf("failed to record failed outcome: %w", err)
	}
	if w.metrics != nil {
		reason := "permanent_error"
		if isTransient {
			reason = "retry_exhausted"
		}
		w.metrics.IncDeliveryFailed(channelName, reason)
	}

	return nil
}

func (w *DeliveryWorker) send(
	ctx context.Context,
	notification *domain.Notification,
	c domain.Channel,
	recipient *resolvedRecipient,
) error {
	switch c {
	case domain.ChannelEmail:
		if w.emailer == nil {
			return &channel.AdapterError{Message: "email adapter is not configured", Transient: false}
		}
		return w.emailer.Send(ctx, *notification, recipient.email)
	case domain.ChannelPush:
		if w.pusher == nil {
			return &channel.AdapterError{Message: "push adapter is not configured", Transient: false}
		}
		_, err := w.pusher.Send(ctx, *notification, recipient.targets)
		return err
	default:
		return &channel.AdapterError{Message: fmt.Sprintf("unsupported channel %q", c), Transient: false}
	}
}

// loadPreference returns the recipient's preference row, creating the default
// lazily on first delivery.
func (w *DeliveryWorker) loadPreference(
	ctx context.Context,
	recipientID string,
	recipientType domain.RecipientType,
) (*domain.NotificationPreference, error) {
	pref, err := w.preferences.Get(ctx, recipientID, recipientType)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	pref = domain.DefaultPreference(recipientID, recipientType)
	if saveErr := w.preferences.Save(ctx, pref); saveErr != nil {
		w.logger.Warn("failed to persist default preferences",
			zap.String("recipientId", recipientID),
			zap.Error(saveErr),
		)
	}
	return pref, nil
}

func (w *DeliveryWorker) resolveRecipient(ctx context.Context, n *domain.Notification) (*resolvedRecipient, error) {
	if w.dir == nil {
		return nil, fmt.Errorf("recipient directory is required")
	}

	switch n.RecipientType {
	case domain.RecipientUser:
		user, err := w.dir.FindUser(ctx, n.RecipientID)
		if err != nil {
			return nil, err
		}
		targets := make([]channel.PushTarget, 0, len(user.DeviceSubscriptions))
		for _, sub := range user.ActiveSubscriptions() {
			targets = append(targets, channel.PushTarget{
				Endpoint: sub.Endpoint,
				Token:    sub.Token,
				Platform: sub.Platform,
			})
		}
		return &resolvedRecipient{
			email:   channel.Recipient{Name: user.Name, Email: user.Email},
			targets: targets,
		}, nil
	case domain.RecipientCompany:
		company, err := w.dir.FindCompany(ctx, n.RecipientID)
		if err != nil {
			return nil, err
		}
		return &resolvedRecipient{
			email: channel.Recipient{Name: company.Name, Email: company.Email},
		}, nil
	default:
		return nil, fmt.Errorf("%w: invalid recipient type %q", domain.ErrValidation, n.RecipientType)
	}
}

func (w *DeliveryWorker) skipPendingChannels(
	ctx context.Context,
	notification *domain.Notification,
	only *domain.Channel,
	reason string,
) {
	for i := range notification.Channels {
		ch := notification.Channels[i]
		if only != nil && ch.Channel != *only {
			continue
		}
		if ch.Status != domain.DeliveryPending {
			continue
		}
		if err := w.skipChannel(ctx, notification.ID, ch.Channel, reason); err != nil {
			w.logger.Error("failed to skip channel",
				zap.String("notificationId", notification.ID),
				zap.String("channel", ch.Channel.String()),
				zap.Error(err),
			)
		}
	}
}

func (w *DeliveryWorker) skipChannel(ctx context.Context, notificationID string, c domain.Channel, reason string) error {
	outcome := repository.ChannelOutcome{
		Status: domain.DeliverySkipped,
		Error:  &reason,
	}
	if err := w.notifications.UpdateChannelOutcome(ctx, notificationID, c, outcome); err != nil {
		return fmt.Errorf("failed to record skipped outcome: %w", err)
	}
	if w.metrics != nil {
		w.metrics.IncDeliverySkipped(strings.ToLower(c.String()), reason)
	}
	return nil
}

func (w *DeliveryWorker) computeRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := baseRetryDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}

	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	jitterMillis := 0
	if w.randIntn != nil && maxRetryJitterMillis > 0 {
		jitterMillis = w.randIntn(maxRetryJitterMillis + 1)
	}

	return delay + time.Duration(jitterMillis)*time.Millisecond
}

func (w *DeliveryWorker) recordAttempt(
	ctx context.Context,
	notificationID string,
	c domain.Channel,
	attemptNumber int,
	sendErr error,
) error {
	if w.attempts == nil {
		return nil
	}

	var statusCode *int
	var attemptErr *string

	if sendErr != nil {
		value := sendErr.Error()
		attemptErr = &value

		var adapterErr *channel.AdapterError
		if errors.As(sendErr, &adapterErr) && adapterErr.StatusCode > 0 {
			code := adapterErr.StatusCode
			statusCode = &code
		}
	}

	attempt := &domain.DeliveryAttempt{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		Channel:        c,
		AttemptNumber:  attemptNumber,
		StatusCode:     statusCode,
		Error:          attemptErr,
		CreatedAt:      w.now().UTC(),
	}

	return w.attempts.Create(ctx, attempt)
}
