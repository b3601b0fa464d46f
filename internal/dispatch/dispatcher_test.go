package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/queue"
)

func testIntent() Intent {
	return Intent{
		RecipientID:   "user-1",
		RecipientType: domain.RecipientUser,
		Type:          domain.TypeInterviewInvitation,
		Title:         "Interview Invitation",
		Message:       "Acme invited you to an interview.",
		Priority:      domain.PriorityHigh,
		Data: map[string]string{
			"jobTitle":    "Backend Engineer",
			"companyName": "Acme",
		},
	}
}

func TestDispatcherDispatch(t *testing.T) {
	t.Parallel()

	notifications := &fakeNotificationRepo{}
	publisher := &fakePublisher{}

	dispatcher, err := NewDispatcher(notifications, nil, nil, publisher, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	notification, err := dispatcher.Dispatch(context.Background(), testIntent())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if notification.ID == "" {
		t.Fatal("dispatched notification should carry an id")
	}
	if notification.Status != domain.StatusPending {
		t.Fatalf("status = %v, want pending", notification.Status)
	}
	if len(notification.Channels) != len(domain.ConfiguredChannels()) {
		t.Fatalf("channels = %d, want %d", len(notification.Channels), len(domain.ConfiguredChannels()))
	}
	for _, ch := range notification.Channels {
		if ch.Status != domain.DeliveryPending || !ch.Enabled {
			t.Fatalf("channel %v should start pending and enabled, got %+v", ch.Channel, ch)
		}
	}

	if len(notifications.created) != 1 {
		t.Fatalf("persisted %d notifications, want 1", len(notifications.created))
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(publisher.published))
	}
	if publisher.published[0].NotificationID != notification.ID {
		t.Fatal("published message should reference the persisted notification")
	}
	if publisher.published[0].Channel != nil {
		t.Fatal("fresh dispatch should target all pending channels")
	}
}

func TestDispatcherDispatchDefaultsPriority(t *testing.T) {
	t.Parallel()

	dispatcher, err := NewDispatcher(&fakeNotificationRepo{}, nil, nil, &fakePublisher{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	intent := testIntent()
	intent.Priority = ""
	notification, err := dispatcher.Dispatch(context.Background(), intent)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if notification.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %v, want medium default", notification.Priority)
	}
}

func TestDispatcherDispatchInvalidIntent(t *testing.T) {
	t.Parallel()

	notifications := &fakeNotificationRepo{}
	dispatcher, err := NewDispatcher(notifications, nil, nil, &fakePublisher{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	intent := testIntent()
	intent.Title = ""
	if _, err := dispatcher.Dispatch(context.Background(), intent); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Dispatch() error = %v, want ErrValidation", err)
	}
	if len(notifications.created) != 0 {
		t.Fatal("invalid intent must not be persisted")
	}
}

func TestDispatcherDispatchPublishFailure(t *testing.T) {
	t.Parallel()

	notifications := &fakeNotificationRepo{}
	publisher := &fakePublisher{
		publishFunc: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			return fmt.Errorf("broker unavailable")
		},
	}

	dispatcher, err := NewDispatcher(notifications, nil, nil, publisher, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	notification, err := dispatcher.Dispatch(context.Background(), testIntent())
	if err == nil {
		t.Fatal("Dispatch() should surface the publish failure")
	}
	if notification == nil {
		t.Fatal("the persisted entry must be returned alongside the error")
	}

	// Every pending channel is marked failed so nothing sits pending forever.
	outcomes := notifications.outcomesFor(notification.ID)
	if len(outcomes) != len(domain.ConfiguredChannels()) {
		t.Fatalf("recorded %d outcomes, want %d", len(outcomes), len(domain.ConfiguredChannels()))
	}
	for _, call := range outcomes {
		if call.outcome.Status != domain.DeliveryFailed {
			t.Fatalf("outcome for %v = %v, want failed", call.channel, call.outcome.Status)
		}
	}
	if notification.Status != domain.StatusFailed {
		t.Fatalf("derived status = %v, want failed", notification.Status)
	}
}

func TestDispatcherBroadcastToRole(t *testing.T) {
	t.Parallel()

	admins := []directory.User{
		{ID: "admin-1", Name: "Admin One", Role: domain.RoleAdmin},
		{ID: "admin-2", Name: "Admin Two", Role: domain.RoleAdmin},
		{ID: "admin-3", Name: "Admin Three", Role: domain.RoleAdmin},
	}

	notifications := &fakeNotificationRepo{}
	broadcasts := &fakeBroadcastRepo{}
	users := &fakeDirectory{
		listByRoleFunc: func(ctx context.Context, role domain.Role) ([]directory.User, error) {
			return admins, nil
		},
	}

	dispatcher, err := NewDispatcher(notifications, broadcasts, users, &fakePublisher{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	intent := testIntent()
	intent.Type = domain.TypeInterviewPendingApproval
	intent.Data = map[string]string{"jobTitle": "Backend Engineer"}

	summary, err := dispatcher.BroadcastToRole(context.Background(), domain.RoleAdmin, intent)
	if err != nil {
		t.Fatalf("BroadcastToRole() error = %v", err)
	}

	if summary.TotalCount != 3 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 3 recipients and no failures", summary)
	}
	if summary.Status != domain.BroadcastCompleted {
		t.Fatalf("status = %v, want completed", summary.Status)
	}
	if len(notifications.created) != 3 {
		t.Fatalf("persisted %d notifications, want 3", len(notifications.created))
	}
	for _, n := range notifications.created {
		if n.BroadcastID == nil || *n.BroadcastID != summary.BroadcastID {
			t.Fatalf("notification should carry the broadcast id, got %+v", n.BroadcastID)
		}
	}
	if broadcasts.statuses[summary.BroadcastID] != domain.BroadcastCompleted {
		t.Fatalf("broadcast row status = %v, want completed", broadcasts.statuses[summary.BroadcastID])
	}
}

func TestDispatcherBroadcastToRolePartialFailure(t *testing.T) {
	t.Parallel()

	admins := []directory.User{
		{ID: "admin-1", Role: domain.RoleAdmin},
		{ID: "admin-2", Role: domain.RoleAdmin},
	}

	notifications := &fakeNotificationRepo{
		createFunc: func(ctx context.Context, n *domain.Notification) error {
			if n.RecipientID == "admin-2" {
				return fmt.Errorf("constraint violation")
			}
			return nil
		},
	}
	broadcasts := &fakeBroadcastRepo{}
	users := &fakeDirectory{
		listByRoleFunc: func(ctx context.Context, role domain.Role) ([]directory.User, error) {
			return admins, nil
		},
	}

	dispatcher, err := NewDispatcher(notifications, broadcasts, users, &fakePublisher{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	summary, err := dispatcher.BroadcastToRole(context.Background(), domain.RoleAdmin, testIntent())
	if err != nil {
		t.Fatalf("BroadcastToRole() should not abort on a single failure, error = %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	if summary.Status != domain.BroadcastPartialFailure {
		t.Fatalf("status = %v, want partial failure", summary.Status)
	}
}

func TestDispatcherBroadcastToRoleNoRecipients(t *testing.T) {
	t.Parallel()

	broadcasts := &fakeBroadcastRepo{}
	users := &fakeDirectory{
		listByRoleFunc: func(ctx context.Context, role domain.Role) ([]directory.User, error) {
			return nil, nil
		},
	}

	dispatcher, err := NewDispatcher(&fakeNotificationRepo{}, broadcasts, users, &fakePublisher{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	summary, err := dispatcher.BroadcastToRole(context.Background(), domain.RoleAdmin, testIntent())
	if err != nil {
		t.Fatalf("BroadcastToRole() error = %v", err)
	}
	if summary.TotalCount != 0 || summary.BroadcastID != "" {
		t.Fatalf("summary = %+v, want empty fan-out without a broadcast row", summary)
	}
	if len(broadcasts.created) != 0 {
		t.Fatal("no broadcast row should be created for an empty recipient set")
	}
}

func TestDispatcherBroadcastToRoleInvalidRole(t *testing.T) {
	t.Parallel()

	dispatcher, err := NewDispatcher(&fakeNotificationRepo{}, &fakeBroadcastRepo{}, &fakeDirectory{}, &fakePublisher{}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	if _, err := dispatcher.BroadcastToRole(context.Background(), "SUPERUSER", testIntent()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("BroadcastToRole() error = %v, want ErrValidation", err)
	}
}
