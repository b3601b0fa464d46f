// Package queue carries delivery work from the dispatcher to the background
// worker pool. Delivery is fire-and-forget within the process, so the default
// implementation is an in-memory queue; the Publisher/Consumer ports keep a
// broker swappable behind it.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/talentgrid/interview-engine/internal/domain"
)

// DeliveryQueueName is the single work queue for notification delivery.
const DeliveryQueueName = "deliveries"

// DeliveryMessage is the work item for one notification's channel delivery.
// A nil Channel means all pending channels; retries name the one channel due.
type DeliveryMessage struct {
	NotificationID string          `json:"notificationId"`
	Channel        *domain.Channel `json:"channel,omitempty"`
	Priority       domain.Priority `json:"priority"`
}

func (m DeliveryMessage) Validate() error {
	if strings.TrimSpace(m.NotificationID) == "" {
		return fmt.Errorf("notificationId is required")
	}
	if m.Channel != nil && !m.Channel.IsValid() {
		return fmt.Errorf("invalid channel %q", *m.Channel)
	}
	if !m.Priority.IsValid() {
		return fmt.Errorf("invalid priority %q", m.Priority)
	}
	return nil
}

// Publisher publishes delivery messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DeliveryMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg DeliveryMessage) error

// Consumer consumes delivery messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
