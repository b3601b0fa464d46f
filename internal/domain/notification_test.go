package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels []ChannelDelivery
		want     NotificationStatus
	}{
		{
			name: "all sent",
			channels: []ChannelDelivery{
				{Channel: ChannelEmail, Status: DeliverySent},
				{Channel: ChannelPush, Status: DeliverySent},
			},
			want: StatusSent,
		},
		{
			name: "one sent one failed is still sent",
			channels: []ChannelDelivery{
				{Channel: ChannelEmail, Status: DeliveryFailed},
				{Channel: ChannelPush, Status: DeliverySent},
			},
			want: StatusSent,
		},
		{
			name: "delivered counts as sent",
			channels: []ChannelDelivery{
				{Channel: ChannelPush, Status: DeliveryDelivered},
			},
			want: StatusSent,
		},
		{
			name: "all attempted failed",
			channels: []ChannelDelivery{
				{Channel: ChannelEmail, Status: DeliveryFailed},
				{Channel: ChannelPush, Status: DeliveryFailed},
			},
			want: StatusFailed,
		},
		{
			name: "failed plus skipped is failed",
			channels: []ChannelDelivery{
				{Channel: ChannelEmail, Status: DeliveryFailed},
				{Channel: ChannelPush, Status: DeliverySkipped},
			},
			want: StatusFailed,
		},
		{
			name: "pending outranks failed",
			channels: []ChannelDelivery{
				{Channel: ChannelEmail, Status: DeliveryFailed},
				{Channel: ChannelPush, Status: DeliveryPending},
			},
			want: StatusPending,
		},
		{
			name: "nothing attempted",
			channels: []ChannelDelivery{
				{Channel: ChannelEmail, Status: DeliverySkipped},
				{Channel: ChannelPush, Status: DeliverySkipped},
			},
			want: StatusSkipped,
		},
		{
			name:     "no channels",
			channels: nil,
			want:     StatusSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DeriveStatus(tt.channels)
			if got != tt.want {
				t.Fatalf("DeriveStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotificationValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Notification {
		return &Notification{
			ID:            "notif-1",
			RecipientID:   "user-1",
			RecipientType: RecipientUser,
			Type:          TypeInterviewInvitation,
			Title:         "Interview Invitation",
			Message:       "You have been invited to an interview.",
			Priority:      PriorityHigh,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Notification)
	}{
		{"missing recipient", func(n *Notification) { n.RecipientID = "" }},
		{"invalid recipient type", func(n *Notification) { n.RecipientType = "ROBOT" }},
		{"invalid type", func(n *Notification) { n.Type = "NOPE" }},
		{"invalid priority", func(n *Notification) { n.Priority = "WHENEVER" }},
		{"missing title", func(n *Notification) { n.Title = " " }},
		{"missing message", func(n *Notification) { n.Message = "" }},
		{"unrecognized data key", func(n *Notification) {
			n.Data = map[string]string{"favoriteColor": "green"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := valid()
			tt.mutate(n)
			if err := n.Validate(); !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestValidateData(t *testing.T) {
	t.Parallel()

	data := map[string]string{
		"interviewId":   "int-1",
		"jobTitle":      "Backend Engineer",
		"companyName":   "Acme",
		"scheduledDate": "2026-09-10T14:00:00Z",
		"actionUrl":     "/interviews/int-1",
	}
	if err := ValidateData(TypeInterviewInvitation, data); err != nil {
		t.Fatalf("ValidateData() unexpected error = %v", err)
	}

	if err := ValidateData(TypeGeneric, map[string]string{"actionUrl": "/x"}); err != nil {
		t.Fatalf("ValidateData() common key should be allowed, error = %v", err)
	}

	err := ValidateData(TypeFeedbackAvailable, map[string]string{"decision": "approved"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ValidateData() error = %v, want ErrValidation", err)
	}

	if err := ValidateData(TypeGeneric, nil); err != nil {
		t.Fatalf("ValidateData() with empty data error = %v", err)
	}
}

func TestNotificationIsExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&Notification{ExpiresAt: &future}).IsExpired(now) {
		t.Fatal("notification with future expiry should not be expired")
	}
	if !(&Notification{ExpiresAt: &past}).IsExpired(now) {
		t.Fatal("notification with past expiry should be expired")
	}
	if (&Notification{}).IsExpired(now) {
		t.Fatal("notification without expiry should never expire")
	}
}

func TestNotificationChannel(t *testing.T) {
	t.Parallel()

	n := &Notification{
		Channels: []ChannelDelivery{
			{Channel: ChannelEmail, Status: DeliveryPending},
			{Channel: ChannelPush, Status: DeliverySent},
		},
	}

	ch := n.Channel(ChannelPush)
	if ch == nil || ch.Status != DeliverySent {
		t.Fatalf("Channel(push) = %+v, want sent record", ch)
	}

	ch.Status = DeliveryFailed
	if n.Channels[1].Status != DeliveryFailed {
		t.Fatal("Channel() should return a pointer into the slice")
	}

	if n.Channel("SMS") != nil {
		t.Fatal("Channel() for unknown channel should be nil")
	}
}
