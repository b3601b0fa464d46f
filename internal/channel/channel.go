// Package channel holds the outbound delivery adapters. Adapters are
// stateless: they render a typed template and hand it to a transport. Every
// rule about when to send lives in the dispatcher, not here.
package channel

import (
	"context"

	"github.com/talentgrid/interview-engine/internal/domain"
)

// Recipient is the resolved address an email delivery targets.
type Recipient struct {
	Name  string
	Email string
}

// PushTarget is one registered device endpoint a push delivery fans out to.
type PushTarget struct {
	Endpoint string
	Token    string
	Platform string
}

// Emailer renders and sends a notification over email.
type Emailer interface {
	Send(ctx context.Context, n domain.Notification, recipient Recipient) error
}

// PushOutcome counts per-subscription results of one push fan-out.
type PushOutcome struct {
	Delivered int
	Failed    int
}

// Pusher renders and sends a notification to every target. An empty target
// set is a vacuous success, not a failure.
type Pusher interface {
	Send(ctx context.Context, n domain.Notification, targets []PushTarget) (*PushOutcome, error)
}
