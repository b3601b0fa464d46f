package channel

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"github.com/talentgrid/interview-engine/internal/domain"
	"gopkg.in/gomail.v2"
)

// EmailMessage is a fully rendered message handed to the SMTP transport.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// SMTPTransport is the outbound SMTP port, kept narrow so tests can fake it.
type SMTPTransport interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPConfig configures the gomail dialer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// GomailTransport sends through an SMTP server via gomail.
type GomailTransport struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewGomailTransport(cfg SMTPConfig) (*GomailTransport, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid smtp port: %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("from address is required")
	}

	return &GomailTransport{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}, nil
}

func (t *GomailTransport) Send(ctx context.Context, msg EmailMessage) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.from, t.fromName)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	// gomail has no context support; run the dial in a goroutine so the
	// attempt timeout still applies.
	done := make(chan error, 1)
	go func() {
		done <- t.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// EmailAdapter renders the typed template for a notification and submits it
// over SMTP.
type EmailAdapter struct {
	transport SMTPTransport
}

func NewEmailAdapter(transport SMTPTransport) (*EmailAdapter, error) {
	if transport == nil {
		return nil, fmt.Errorf("smtp transport is required")
	}
	return &EmailAdapter{transport: transport}, nil
}

var _ Emailer = (*EmailAdapter)(nil)

func (a *EmailAdapter) Send(ctx context.Context, n domain.Notification, recipient Recipient) error {
	if strings.TrimSpace(recipient.Email) == "" {
		return &AdapterError{Message: "recipient has no email address", Transient: false}
	}

	content := RenderEmail(n)
	msg := EmailMessage{
		To:      recipient.Email,
		ToName:  recipient.Name,
		Subject: content.Subject,
		HTML:    content.HTML,
		Text:    content.Text,
	}

	if err := a.transport.Send(ctx, msg); err != nil {
		return &AdapterError{
			Message:   "smtp send failed",
			Transient: IsTransient(err) || isTemporarySMTPFailure(err),
			Cause:     err,
		}
	}
	return nil
}

// 4xx SMTP replies are temporary per RFC 5321.
func isTemporarySMTPFailure(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	return false
}
