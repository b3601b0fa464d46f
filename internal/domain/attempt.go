package domain

import "time"

// DeliveryAttempt records a single channel delivery attempt for a notification.
type DeliveryAttempt struct {
	ID             string
	NotificationID string
	Channel        Channel
	AttemptNumber  int
	StatusCode     *int
	ResponseBody   *string
	Error          *string
	CreatedAt      time.Time
}
