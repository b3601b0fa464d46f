package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType selects the typed template a notification renders with.
// Types without a dedicated template fall back to the generic one.
type NotificationType string

const (
	TypeInterviewInvitation      NotificationType = "INTERVIEW_INVITATION"
	TypeInterviewPendingApproval NotificationType = "INTERVIEW_PENDING_APPROVAL"
	TypeInterviewDecision        NotificationType = "INTERVIEW_DECISION"
	TypeInterviewResponse        NotificationType = "INTERVIEW_RESPONSE"
	TypeInterviewReminder        NotificationType = "INTERVIEW_REMINDER"
	TypeFeedbackPending          NotificationType = "FEEDBACK_PENDING"
	TypeFeedbackAvailable        NotificationType = "FEEDBACK_AVAILABLE"
	TypeNewApplication           NotificationType = "NEW_APPLICATION"
	TypeApplicationStatus        NotificationType = "APPLICATION_STATUS"
	TypeJobRecommendation        NotificationType = "JOB_RECOMMENDATION"
	TypeGeneric                  NotificationType = "GENERIC"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) IsValid() bool {
	switch t {
	case TypeInterviewInvitation, TypeInterviewPendingApproval, TypeInterviewDecision,
		TypeInterviewResponse, TypeInterviewReminder, TypeFeedbackPending,
		TypeFeedbackAvailable, TypeNewApplication, TypeApplicationStatus,
		TypeJobRecommendation, TypeGeneric:
		return true
	}
	return false
}

func ParseNotificationTypeFromString(s string) (NotificationType, error) {
	t := NotificationType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid notification type %q", ErrValidation, s)
	}
	return t, nil
}

// RecipientType distinguishes user and company inboxes.
type RecipientType string

const (
	RecipientUser    RecipientType = "USER"
	RecipientCompany RecipientType = "COMPANY"
)

func (t RecipientType) String() string { return string(t) }

func (t RecipientType) IsValid() bool {
	switch t {
	case RecipientUser, RecipientCompany:
		return true
	}
	return false
}

// Priority represents the message priority level. Urgent bypasses quiet hours.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ParsePriorityFromString(s string) (Priority, error) {
	pr := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !pr.IsValid() {
		return "", fmt.Errorf("%w: invalid priority %q", ErrValidation, s)
	}
	return pr, nil
}

// Channel represents a delivery mechanism. The persisted notification row is
// itself the in-app channel, so only outbound channels appear here.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelPush  Channel = "PUSH"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelPush:
		return true
	}
	return false
}

// ConfiguredChannels are the outbound channels every notification starts with.
func ConfiguredChannels() []Channel {
	return []Channel{ChannelEmail, ChannelPush}
}

// DeliveryStatus is the per-channel delivery state.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySkipped DeliveryStatus = "SKIPPED"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
	// DeliveryDelivered is reserved for channels that confirm receipt
	// (push receipts); SENT means handed to the transport.
	DeliveryDelivered DeliveryStatus = "DELIVERED"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryPending, DeliverySkipped, DeliverySent, DeliveryFailed, DeliveryDelivered:
		return true
	}
	return false
}

// NotificationStatus is the derived overall state; see DeriveStatus.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "PENDING"
	StatusSent    NotificationStatus = "SENT"
	StatusFailed  NotificationStatus = "FAILED"
	StatusSkipped NotificationStatus = "SKIPPED"
)

func (s NotificationStatus) String() string { return string(s) }

// ChannelDelivery is one channel's delivery record on a notification.
type ChannelDelivery struct {
	Channel       Channel
	Enabled       bool
	Status        DeliveryStatus
	Attempts      int
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time
	ErrorMessage  *string
}

// DeriveStatus computes the notification's overall status from its channel
// outcomes: SENT if any channel succeeded, FAILED only if every attempted
// channel failed, SKIPPED if nothing was attempted at all. The overall status
// is never written independently of channel outcomes.
func DeriveStatus(channels []ChannelDelivery) NotificationStatus {
	anySent := false
	anyFailed := false
	anyPending := false
	attempted := 0

	for _, ch := range channels {
		switch ch.Status {
		case DeliverySent, DeliveryDelivered:
			anySent = true
			attempted++
		case DeliveryFailed:
			anyFailed = true
			attempted++
		case DeliveryPending:
			anyPending = true
		}
	}

	switch {
	case anySent:
		return StatusSent
	case anyPending:
		return StatusPending
	case anyFailed && attempted > 0:
		return StatusFailed
	default:
		return StatusSkipped
	}
}

// Notification is a dispatch record: the in-app entry plus the per-channel
// delivery bookkeeping appended asynchronously.
type Notification struct {
	ID            string
	RecipientID   string
	RecipientType RecipientType
	BroadcastID   *string
	Type          NotificationType
	Title         string
	Message       string
	Priority      Priority
	Data          map[string]string
	Channels      []ChannelDelivery
	Status        NotificationStatus
	ReadAt        *time.Time
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (n *Notification) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: notification is required", ErrValidation)
	}
	if strings.TrimSpace(n.RecipientID) == "" {
		return fmt.Errorf("%w: recipient id is required", ErrValidation)
	}
	if !n.RecipientType.IsValid() {
		return fmt.Errorf("%w: invalid recipient type %q", ErrValidation, n.RecipientType)
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("%w: invalid notification type %q", ErrValidation, n.Type)
	}
	if !n.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, n.Priority)
	}
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	return ValidateData(n.Type, n.Data)
}

// IsExpired reports whether the notification is no longer eligible for
// delivery attempts.
func (n *Notification) IsExpired(now time.Time) bool {
	return n != nil && n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// Channel returns the delivery record for a channel, or nil.
func (n *Notification) Channel(c Channel) *ChannelDelivery {
	if n == nil {
		return nil
	}
	for i := range n.Channels {
		if n.Channels[i].Channel == c {
			return &n.Channels[i]
		}
	}
	return nil
}

// Payload keys shared by every notification type.
var commonDataKeys = []string{"actionUrl"}

// dataKeysByType is the documented set of recognized payload keys per type.
// Free-form values outside these keys are rejected at the dispatcher boundary.
var dataKeysByType = map[NotificationType][]string{
	TypeInterviewInvitation:      {"interviewId", "jobTitle", "companyName", "scheduledDate", "mode", "location", "meetingUrl"},
	TypeInterviewPendingApproval: {"interviewId", "jobTitle", "companyName", "candidateName", "scheduledDate"},
	TypeInterviewDecision:        {"interviewId", "jobTitle", "candidateName", "decision", "adminComments"},
	TypeInterviewResponse:        {"interviewId", "jobTitle", "candidateName", "response", "candidateComments"},
	TypeInterviewReminder:        {"interviewId", "jobTitle", "companyName", "scheduledDate", "mode", "location", "meetingUrl"},
	TypeFeedbackPending:          {"interviewId", "jobTitle", "companyName", "candidateName"},
	TypeFeedbackAvailable:        {"interviewId", "jobTitle", "companyName"},
	TypeNewApplication:           {"applicationId", "jobTitle", "candidateName"},
	TypeApplicationStatus:        {"applicationId", "jobTitle", "status"},
	TypeJobRecommendation:        {"jobId", "jobTitle", "companyName"},
	TypeGeneric:                  {},
}

// ValidateData checks that every payload key is recognized for the type.
func ValidateData(t NotificationType, data map[string]string) error {
	if len(data) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(dataKeysByType[t])+len(commonDataKeys))
	for _, key := range dataKeysByType[t] {
		allowed[key] = struct{}{}
	}
	for _, key := range commonDataKeys {
		allowed[key] = struct{}{}
	}

	for key := range data {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("%w: unrecognized payload key %q for type %s", ErrValidation, key, t)
		}
	}
	return nil
}
