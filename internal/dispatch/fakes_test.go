package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/talentgrid/interview-engine/internal/channel"
	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/queue"
	"github.com/talentgrid/interview-engine/internal/repository"
)

type outcomeCall struct {
	notificationID string
	channel        domain.Channel
	outcome        repository.ChannelOutcome
}

type fakeNotificationRepo struct {
	mu sync.Mutex

	createFunc   func(ctx context.Context, n *domain.Notification) error
	getByIDFunc  func(ctx context.Context, id string) (*domain.Notification, error)
	retryDueFunc func(ctx context.Context, now time.Time, limit int) ([]repository.RetryItem, error)

	created  []*domain.Notification
	outcomes []outcomeCall
	cleared  []repository.RetryItem
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	f.mu.Lock()
	f.created = append(f.created, n)
	f.mu.Unlock()
	if f.createFunc != nil {
		return f.createFunc(ctx, n)
	}
	return nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if f.getByIDFunc != nil {
		return f.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNotificationRepo) List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, int64, error) {
	return nil, 0, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, recipientID string, at time.Time) error {
	return nil
}

func (f *fakeNotificationRepo) UpdateChannelOutcome(ctx context.Context, notificationID string, c domain.Channel, outcome repository.ChannelOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcomeCall{notificationID: notificationID, channel: c, outcome: outcome})
	return nil
}

func (f *fakeNotificationRepo) GetChannelsDueForRetry(ctx context.Context, now time.Time, limit int) ([]repository.RetryItem, error) {
	if f.retryDueFunc != nil {
		return f.retryDueFunc(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeNotificationRepo) ClearChannelRetry(ctx context.Context, notificationID string, c domain.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, repository.RetryItem{NotificationID: notificationID, Channel: c})
	return nil
}

func (f *fakeNotificationRepo) outcomesFor(notificationID string) []outcomeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]outcomeCall, 0, len(f.outcomes))
	for _, call := range f.outcomes {
		if call.notificationID == notificationID {
			calls = append(calls, call)
		}
	}
	return calls
}

type fakeBroadcastRepo struct {
	mu sync.Mutex

	createFunc func(ctx context.Context, broadcast *domain.Broadcast) error

	created  []*domain.Broadcast
	statuses map[string]domain.BroadcastStatus
}

func (f *fakeBroadcastRepo) Create(ctx context.Context, broadcast *domain.Broadcast) error {
	f.mu.Lock()
	f.created = append(f.created, broadcast)
	f.mu.Unlock()
	if f.createFunc != nil {
		return f.createFunc(ctx, broadcast)
	}
	return nil
}

func (f *fakeBroadcastRepo) GetByID(ctx context.Context, id string) (*domain.Broadcast, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeBroadcastRepo) UpdateStatus(ctx context.Context, id string, status domain.BroadcastStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = make(map[string]domain.BroadcastStatus)
	}
	f.statuses[id] = status
	return nil
}

type fakePublisher struct {
	mu sync.Mutex

	publishFunc func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error

	published []queue.DeliveryMessage
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
	if f.publishFunc != nil {
		if err := f.publishFunc(ctx, queueName, msg); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeDirectory struct {
	findUserFunc        func(ctx context.Context, id string) (*directory.User, error)
	listByRoleFunc      func(ctx context.Context, role domain.Role) ([]directory.User, error)
	findCompanyFunc     func(ctx context.Context, id string) (*directory.Company, error)
	findJobFunc         func(ctx context.Context, id string) (*directory.Job, error)
	findApplicationFunc func(ctx context.Context, id string) (*directory.Application, error)
}

func (f *fakeDirectory) FindUser(ctx context.Context, id string) (*directory.User, error) {
	if f.findUserFunc != nil {
		return f.findUserFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDirectory) ListByRole(ctx context.Context, role domain.Role) ([]directory.User, error) {
	if f.listByRoleFunc != nil {
		return f.listByRoleFunc(ctx, role)
	}
	return nil, nil
}

func (f *fakeDirectory) FindCompany(ctx context.Context, id string) (*directory.Company, error) {
	if f.findCompanyFunc != nil {
		return f.findCompanyFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDirectory) FindJob(ctx context.Context, id string) (*directory.Job, error) {
	if f.findJobFunc != nil {
		return f.findJobFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDirectory) FindApplication(ctx context.Context, id string) (*directory.Application, error) {
	if f.findApplicationFunc != nil {
		return f.findApplicationFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakePreferenceRepo struct {
	mu sync.Mutex

	getFunc func(ctx context.Context, recipientID string, recipientType domain.RecipientType) (*domain.NotificationPreference, error)

	saved []*domain.NotificationPreference
}

func (f *fakePreferenceRepo) Get(ctx context.Context, recipientID string, recipientType domain.RecipientType) (*domain.NotificationPreference, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, recipientID, recipientType)
	}
	return nil, domain.ErrNotFound
}

func (f *fakePreferenceRepo) Save(ctx context.Context, pref *domain.NotificationPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, pref)
	return nil
}

type fakeAttemptRepo struct {
	mu sync.Mutex

	attempts []*domain.DeliveryAttempt
}

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
	return nil
}

type fakeEmailer struct {
	mu sync.Mutex

	sendFunc func(ctx context.Context, n domain.Notification, recipient channel.Recipient) error

	sent []channel.Recipient
}

func (f *fakeEmailer) Send(ctx context.Context, n domain.Notification, recipient channel.Recipient) error {
	f.mu.Lock()
	f.sent = append(f.sent, recipient)
	f.mu.Unlock()
	if f.sendFunc != nil {
		return f.sendFunc(ctx, n, recipient)
	}
	return nil
}

type fakePusher struct {
	mu sync.Mutex

	sendFunc func(ctx context.Context, n domain.Notification, targets []channel.PushTarget) (*channel.PushOutcome, error)

	sent [][]channel.PushTarget
}

func (f *fakePusher) Send(ctx context.Context, n domain.Notification, targets []channel.PushTarget) (*channel.PushOutcome, error) {
	f.mu.Lock()
	f.sent = append(f.sent, targets)
	f.mu.Unlock()
	if f.sendFunc != nil {
		return f.sendFunc(ctx, n, targets)
	}
	return &channel.PushOutcome{Delivered: len(targets)}, nil
}

type fakeRateLimiter struct {
	mu sync.Mutex

	waits []string
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channelName string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channelName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits = append(f.waits, channelName)
	return nil
}
