package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChannelToggles is the per-type opt-in matrix entry.
type ChannelToggles struct {
	Email bool
	Push  bool
}

func (t ChannelToggles) For(c Channel) bool {
	switch c {
	case ChannelEmail:
		return t.Email
	case ChannelPush:
		return t.Push
	}
	return false
}

// QuietHours is a daily window during which non-urgent delivery is suppressed.
// Start and End are "HH:MM" in the recipient's timezone; Start > End means the
// window wraps around midnight.
type QuietHours struct {
	Start    string
	End      string
	Timezone string
}

func (q *QuietHours) Validate() error {
	if q == nil {
		return nil
	}
	if _, err := parseMinuteOfDay(q.Start); err != nil {
		return fmt.Errorf("%w: invalid quiet hours start %q", ErrValidation, q.Start)
	}
	if _, err := parseMinuteOfDay(q.End); err != nil {
		return fmt.Errorf("%w: invalid quiet hours end %q", ErrValidation, q.End)
	}
	if q.Timezone != "" {
		if _, err := time.LoadLocation(q.Timezone); err != nil {
			return fmt.Errorf("%w: invalid quiet hours timezone %q", ErrValidation, q.Timezone)
		}
	}
	return nil
}

// Contains reports whether now falls inside the window. An unparseable window
// is treated as not containing anything rather than silencing delivery.
func (q *QuietHours) Contains(now time.Time) bool {
	if q == nil {
		return false
	}

	start, err := parseMinuteOfDay(q.Start)
	if err != nil {
		return false
	}
	end, err := parseMinuteOfDay(q.End)
	if err != nil {
		return false
	}

	local := now
	if q.Timezone != "" {
		if loc, err := time.LoadLocation(q.Timezone); err == nil {
			local = now.In(loc)
		}
	}
	minute := local.Hour()*60 + local.Minute()

	if start <= end {
		return minute >= start && minute <= end
	}
	// Wrap-around midnight, e.g. 22:00-08:00.
	return minute >= start || minute <= end
}

func parseMinuteOfDay(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// NotificationPreference is a recipient's opt-in matrix keyed by notification
// type, plus an optional quiet-hours window. Absent entries default to all
// channels enabled.
type NotificationPreference struct {
	RecipientID   string
	RecipientType RecipientType
	Types         map[NotificationType]ChannelToggles
	Quiet         *QuietHours
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DefaultPreference is the lazily-created preference for recipients who never
// set one: every channel enabled, no quiet hours.
func DefaultPreference(recipientID string, recipientType RecipientType) *NotificationPreference {
	return &NotificationPreference{
		RecipientID:   recipientID,
		RecipientType: recipientType,
		Types:         map[NotificationType]ChannelToggles{},
	}
}

func (p *NotificationPreference) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: preference is required", ErrValidation)
	}
	if strings.TrimSpace(p.RecipientID) == "" {
		return fmt.Errorf("%w: recipient id is required", ErrValidation)
	}
	if !p.RecipientType.IsValid() {
		return fmt.Errorf("%w: invalid recipient type %q", ErrValidation, p.RecipientType)
	}
	for t := range p.Types {
		if !t.IsValid() {
			return fmt.Errorf("%w: invalid notification type %q", ErrValidation, t)
		}
	}
	return p.Quiet.Validate()
}

// ChannelEnabled reports whether the recipient accepts this type on this
// channel. Types without an explicit entry are enabled.
func (p *NotificationPreference) ChannelEnabled(t NotificationType, c Channel) bool {
	if p == nil || p.Types == nil {
		return true
	}
	toggles, ok := p.Types[t]
	if !ok {
		return true
	}
	return toggles.For(c)
}

// InQuietHours reports whether delivery should be suppressed at now for the
// given priority. Urgent notifications are never suppressed.
func (p *NotificationPreference) InQuietHours(now time.Time, priority Priority) bool {
	if p == nil || p.Quiet == nil {
		return false
	}
	if priority == PriorityUrgent {
		return false
	}
	return p.Quiet.Contains(now)
}
