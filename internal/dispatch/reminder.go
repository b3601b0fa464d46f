package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultReminderScanInterval = time.Minute
	defaultReminderWindow       = 24 * time.Hour
	defaultReminderScanLimit    = 100
)

// Notifier is the dispatch port the scanners and the workflow engine consume.
type Notifier interface {
	Dispatch(ctx context.Context, intent Intent) (*domain.Notification, error)
	BroadcastToRole(ctx context.Context, role domain.Role, intent Intent) (*BroadcastSummary, error)
}

var _ Notifier = (*Dispatcher)(nil)

// ReminderScanner periodically notifies candidates about confirmed interviews
// inside the reminder window. The reminder mark is a guarded update, so a
// scanner racing another instance sends at most one reminder per interview.
type ReminderScanner struct {
	interviews repository.InterviewRepository
	dir        directory.Directory
	notifier   Notifier
	logger     *zap.Logger
	interval   time.Duration
	window     time.Duration
	limit      int
	now        func() time.Time
}

func NewReminderScanner(
	interviews repository.InterviewRepository,
	dir directory.Directory,
	notifier Notifier,
	interval time.Duration,
	window time.Duration,
	limit int,
	logger *zap.Logger,
) (*ReminderScanner, error) {
	if interviews == nil {
		return nil, fmt.Errorf("interview repository is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if interval <= 0 {
		interval = defaultReminderScanInterval
	}
	if window <= 0 {
		window = defaultReminderWindow
	}
	if limit <= 0 {
		limit = defaultReminderScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderScanner{
		interviews: interviews,
		dir:        dir,
		notifier:   notifier,
		logger:     logger,
		interval:   interval,
		window:     window,
		limit:      limit,
		now:        time.Now,
	}, nil
}

func (s *ReminderScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("reminder scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("reminder scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *ReminderScanner) scanDue(ctx context.Context) error {
	now := s.now().UTC()
	due, err := s.interviews.ListDueForReminder(ctx, now, now.Add(s.window), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch interviews due for reminder: %w", err)
	}

	for i := range due {
		interview := due[i]

		marked, err := s.interviews.MarkReminderSent(ctx, interview.ID, now)
		if err != nil {
			s.logger.Error("failed to mark reminder sent",
				zap.String("interviewId", interview.ID),
				zap.Error(err),
			)
			continue
		}
		if !marked {
			continue
		}

		if _, err := s.notifier.Dispatch(ctx, s.reminderIntent(ctx, interview)); err != nil {
			s.logger.Error("failed to dispatch interview reminder",
				zap.String("interviewId", interview.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *ReminderScanner) reminderIntent(ctx context.Context, interview domain.Interview) Intent {
	data := map[string]string{
		"interviewId":   interview.ID,
		"scheduledDate": interview.ScheduledDate.UTC().Format(time.RFC3339),
		"mode":          interview.Mode.String(),
	}
	if interview.Location != "" {
		data["location"] = interview.Location
	}
	if interview.MeetingURL != "" {
		data["meetingUrl"] = interview.MeetingURL
	}

	companyName := interview.CompanyID
	if s.dir != nil {
		if company, err := s.dir.FindCompany(ctx, interview.CompanyID); err == nil {
			companyName = company.Name
			data["companyName"] = company.Name
		}
	}
	if s.dir != nil && interview.JobID != nil {
		if job, err := s.dir.FindJob(ctx, *interview.JobID); err == nil {
			data["jobTitle"] = job.Title
		}
	}

	return Intent{
		RecipientID:   interview.CandidateID,
		RecipientType: domain.RecipientUser,
		Type:          domain.TypeInterviewReminder,
		Title:         "Interview reminder",
		Message:       fmt.Sprintf("Your interview with %s is coming up.", companyName),
		Priority:      domain.PriorityHigh,
		Data:          data,
	}
}
