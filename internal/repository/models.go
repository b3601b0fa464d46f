package repository

import (
	"encoding/json"
	"time"

	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/domain"
)

// InterviewModel is the persistence model for the interviews table.
type InterviewModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	CandidateID   string  `gorm:"type:uuid;not null;index"`
	CompanyID     string  `gorm:"type:uuid;not null;index"`
	JobID         *string `gorm:"type:uuid"`
	ApplicationID *string `gorm:"type:uuid"`

	Title            string    `gorm:"type:varchar(255);not null"`
	Description      string    `gorm:"type:text"`
	ScheduledDate    time.Time `gorm:"type:timestamptz;not null"`
	DurationMinutes  int       `gorm:"not null"`
	Mode             domain.InterviewMode `gorm:"type:varchar(20);not null"`
	Location         string    `gorm:"type:varchar(255)"`
	MeetingURL       string    `gorm:"type:varchar(512)"`
	InterviewerName  string    `gorm:"type:varchar(255)"`
	InterviewerEmail string    `gorm:"type:varchar(255)"`
	InterviewerPhone string    `gorm:"type:varchar(50)"`
	Notes            string    `gorm:"type:text"`

	OverallStatus domain.OverallStatus `gorm:"type:varchar(20);not null;index"`

	AdminStatus     domain.AdminStatus `gorm:"type:varchar(10);not null"`
	AdminComments   string             `gorm:"type:text"`
	AdminApprovedBy *string            `gorm:"type:uuid"`
	AdminApprovedAt *time.Time

	CandidateResponse    domain.CandidateResponse `gorm:"type:varchar(10);not null"`
	CandidateComments    string                   `gorm:"type:text"`
	CandidateRespondedAt *time.Time

	Outcome *domain.InterviewOutcome `gorm:"type:varchar(10)"`

	FeedbackTechnicalScore     *int
	FeedbackCommunicationScore *int
	FeedbackExperienceScore    *int
	FeedbackOverallScore       *int
	FeedbackComments           string  `gorm:"type:text"`
	FeedbackSubmittedBy        *string `gorm:"type:uuid"`
	FeedbackSubmittedAt        *time.Time

	FeedbackStatus        domain.FeedbackStatus `gorm:"type:varchar(10);not null"`
	FeedbackApprovedBy    *string               `gorm:"type:uuid"`
	FeedbackApprovedAt    *time.Time
	FeedbackAdminComments string `gorm:"type:text"`

	CandidateRating              *int
	CandidateFeedbackComments    string `gorm:"type:text"`
	CandidateFeedbackSubmittedAt *time.Time

	ReminderSentAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (InterviewModel) TableName() string { return "interviews" }

// NotificationModel is the persistence model for the notifications table.
// The free-form payload is stored as a JSON document.
type NotificationModel struct {
	ID            string               `gorm:"type:uuid;primaryKey"`
	RecipientID   string               `gorm:"type:uuid;not null;index"`
	RecipientType domain.RecipientType `gorm:"type:varchar(10);not null"`
	BroadcastID   *string              `gorm:"type:uuid"`
	Type          domain.NotificationType   `gorm:"type:varchar(40);not null"`
	Title         string               `gorm:"type:varchar(255);not null"`
	Message       string               `gorm:"type:text;not null"`
	Priority      domain.Priority      `gorm:"type:varchar(10);not null"`
	Data          string               `gorm:"type:jsonb;not null;default:'{}'"`
	Status        domain.NotificationStatus `gorm:"type:varchar(10);not null"`
	ReadAt        *time.Time
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Channels []ChannelDeliveryModel `gorm:"foreignKey:NotificationID"`
}

func (NotificationModel) TableName() string { return "notifications" }

// ChannelDeliveryModel is the per-channel delivery record for a notification.
type ChannelDeliveryModel struct {
	ID             string                `gorm:"type:uuid;primaryKey"`
	NotificationID string                `gorm:"type:uuid;not null;index"`
	Channel        domain.Channel        `gorm:"type:varchar(10);not null"`
	Enabled        bool                  `gorm:"not null;default:true"`
	Status         domain.DeliveryStatus `gorm:"type:varchar(10);not null"`
	Attempts       int                   `gorm:"not null;default:0"`
	LastAttemptAt  *time.Time
	NextRetryAt    *time.Time
	ErrorMessage   *string `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ChannelDeliveryModel) TableName() string { return "notification_channels" }

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	NotificationID string         `gorm:"type:uuid;not null"`
	Channel        domain.Channel `gorm:"type:varchar(10);not null"`
	AttemptNumber  int            `gorm:"not null"`
	StatusCode     *int           `gorm:"type:int"`
	ResponseBody   *string        `gorm:"type:text"`
	Error          *string        `gorm:"type:text"`
	CreatedAt      time.Time
}

func (DeliveryAttemptModel) TableName() string { return "delivery_attempts" }

// BroadcastModel is the persistence model for broadcasts.
type BroadcastModel struct {
	ID         string                 `gorm:"type:uuid;primaryKey"`
	Role       domain.Role            `gorm:"type:varchar(10);not null"`
	TotalCount int                    `gorm:"not null"`
	Status     domain.BroadcastStatus `gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (BroadcastModel) TableName() string { return "broadcasts" }

// PreferenceModel is the persistence model for notification_preferences.
// The per-type channel matrix is stored as a JSON document.
type PreferenceModel struct {
	RecipientID   string               `gorm:"type:uuid;primaryKey"`
	RecipientType domain.RecipientType `gorm:"type:varchar(10);primaryKey"`
	Types         string               `gorm:"type:jsonb;not null;default:'{}'"`
	QuietStart    *string              `gorm:"type:varchar(5)"`
	QuietEnd      *string              `gorm:"type:varchar(5)"`
	QuietTimezone *string              `gorm:"type:varchar(64)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (PreferenceModel) TableName() string { return "notification_preferences" }

// Directory models mirror the platform tables this core reads from.

type UserModel struct {
	ID    string      `gorm:"type:uuid;primaryKey"`
	Name  string      `gorm:"type:varchar(255);not null"`
	Email string      `gorm:"type:varchar(255);not null"`
	Role  domain.Role `gorm:"type:varchar(10);not null;index"`

	DeviceSubscriptions []DeviceSubscriptionModel `gorm:"foreignKey:UserID"`
}

func (UserModel) TableName() string { return "users" }

type DeviceSubscriptionModel struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	UserID   string `gorm:"type:uuid;not null;index"`
	Endpoint string `gorm:"type:varchar(512);not null"`
	Token    string `gorm:"type:varchar(512);not null"`
	Platform string `gorm:"type:varchar(20);not null"`
	Active   bool   `gorm:"not null;default:true"`
}

func (DeviceSubscriptionModel) TableName() string { return "device_subscriptions" }

type CompanyModel struct {
	ID    string `gorm:"type:uuid;primaryKey"`
	Name  string `gorm:"type:varchar(255);not null"`
	Email string `gorm:"type:varchar(255);not null"`
}

func (CompanyModel) TableName() string { return "companies" }

type JobModel struct {
	ID    string `gorm:"type:uuid;primaryKey"`
	Title string `gorm:"type:varchar(255);not null"`
}

func (JobModel) TableName() string { return "jobs" }

type ApplicationModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	CandidateID string `gorm:"type:uuid;not null"`
	JobID       string `gorm:"type:uuid;not null"`
	Status      string `gorm:"type:varchar(30);not null"`
}

func (ApplicationModel) TableName() string { return "applications" }

func interviewModelFromDomain(i *domain.Interview) *InterviewModel {
	if i == nil {
		return nil
	}

	m := &InterviewModel{
		ID:                   i.ID,
		CandidateID:          i.CandidateID,
		CompanyID:            i.CompanyID,
		JobID:                i.JobID,
		ApplicationID:        i.ApplicationID,
		Title:                i.Title,
		Description:          i.Description,
		ScheduledDate:        i.ScheduledDate,
		DurationMinutes:      i.DurationMinutes,
		Mode:                 i.Mode,
		Location:             i.Location,
		MeetingURL:           i.MeetingURL,
		InterviewerName:      i.InterviewerName,
		InterviewerEmail:     i.InterviewerEmail,
		InterviewerPhone:     i.InterviewerPhone,
		Notes:                i.Notes,
		OverallStatus:        i.OverallStatus,
		AdminStatus:          i.AdminStatus,
		AdminComments:        i.AdminComments,
		AdminApprovedBy:      i.AdminApprovedBy,
		AdminApprovedAt:      i.AdminApprovedAt,
		CandidateResponse:    i.CandidateResponse,
		CandidateComments:    i.CandidateComments,
		CandidateRespondedAt: i.CandidateRespondedAt,
		Outcome:              i.Outcome,
		FeedbackStatus:       i.FeedbackStatus,
		FeedbackApprovedBy:   i.FeedbackApprovedBy,
		FeedbackApprovedAt:   i.FeedbackApprovedAt,
		FeedbackAdminComments: i.FeedbackAdminComments,
		ReminderSentAt:       i.ReminderSentAt,
		CreatedAt:            i.CreatedAt,
		UpdatedAt:            i.UpdatedAt,
	}

	if fb := i.CompanyFeedback; fb != nil {
		technical, communication := fb.TechnicalScore, fb.CommunicationScore
		experience, overall := fb.ExperienceScore, fb.OverallScore
		submittedBy, submittedAt := fb.SubmittedBy, fb.SubmittedAt
		m.FeedbackTechnicalScore = &technical
		m.FeedbackCommunicationScore = &communication
		m.FeedbackExperienceScore = &experience
		m.FeedbackOverallScore = &overall
		m.FeedbackComments = fb.Comments
		m.FeedbackSubmittedBy = &submittedBy
		m.FeedbackSubmittedAt = &submittedAt
	}

	if fb := i.CandidateFeedback; fb != nil {
		rating, submittedAt := fb.Rating, fb.SubmittedAt
		m.CandidateRating = &rating
		m.CandidateFeedbackComments = fb.Comments
		m.CandidateFeedbackSubmittedAt = &submittedAt
	}

	return m
}

func interviewModelToDomain(m *InterviewModel) *domain.Interview {
	if m == nil {
		return nil
	}

	i := &domain.Interview{
		ID:                    m.ID,
		CandidateID:           m.CandidateID,
		CompanyID:             m.CompanyID,
		JobID:                 m.JobID,
		ApplicationID:         m.ApplicationID,
		Title:                 m.Title,
		Description:           m.Description,
		ScheduledDate:         m.ScheduledDate,
		DurationMinutes:       m.DurationMinutes,
		Mode:                  m.Mode,
		Location:              m.Location,
		MeetingURL:            m.MeetingURL,
		InterviewerName:       m.InterviewerName,
		InterviewerEmail:      m.InterviewerEmail,
		InterviewerPhone:      m.InterviewerPhone,
		Notes:                 m.Notes,
		OverallStatus:         m.OverallStatus,
		AdminStatus:           m.AdminStatus,
		AdminComments:         m.AdminComments,
		AdminApprovedBy:       m.AdminApprovedBy,
		AdminApprovedAt:       m.AdminApprovedAt,
		CandidateResponse:     m.CandidateResponse,
		CandidateComments:     m.CandidateComments,
		CandidateRespondedAt:  m.CandidateRespondedAt,
		Outcome:               m.Outcome,
		FeedbackStatus:        m.FeedbackStatus,
		FeedbackApprovedBy:    m.FeedbackApprovedBy,
		FeedbackApprovedAt:    m.FeedbackApprovedAt,
		FeedbackAdminComments: m.FeedbackAdminComments,
		ReminderSentAt:        m.ReminderSentAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}

	if m.FeedbackOverallScore != nil && m.FeedbackSubmittedAt != nil {
		submittedBy := ""
		if m.FeedbackSubmittedBy != nil {
			submittedBy = *m.FeedbackSubmittedBy
		}
		i.CompanyFeedback = &domain.CompanyFeedback{
			TechnicalScore:     derefInt(m.FeedbackTechnicalScore),
			CommunicationScore: derefInt(m.FeedbackCommunicationScore),
			ExperienceScore:    derefInt(m.FeedbackExperienceScore),
			OverallScore:       derefInt(m.FeedbackOverallScore),
			Comments:           m.FeedbackComments,
			SubmittedBy:        submittedBy,
			SubmittedAt:        *m.FeedbackSubmittedAt,
		}
	}

	if m.CandidateRating != nil && m.CandidateFeedbackSubmittedAt != nil {
		i.CandidateFeedback = &domain.CandidateFeedback{
			Rating:      *m.CandidateRating,
			Comments:    m.CandidateFeedbackComments,
			SubmittedAt: *m.CandidateFeedbackSubmittedAt,
		}
	}

	return i
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func notificationModelFromDomain(n *domain.Notification) (*NotificationModel, error) {
	if n == nil {
		return nil, nil
	}

	data := n.Data
	if data == nil {
		data = map[string]string{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	m := &NotificationModel{
		ID:            n.ID,
		RecipientID:   n.RecipientID,
		RecipientType: n.RecipientType,
		BroadcastID:   n.BroadcastID,
		Type:          n.Type,
		Title:         n.Title,
		Message:       n.Message,
		Priority:      n.Priority,
		Data:          string(payload),
		Status:        n.Status,
		ReadAt:        n.ReadAt,
		ExpiresAt:     n.ExpiresAt,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}

	for _, ch := range n.Channels {
		m.Channels = append(m.Channels, ChannelDeliveryModel{
			NotificationID: n.ID,
			Channel:        ch.Channel,
			Enabled:        ch.Enabled,
			Status:         ch.Status,
			Attempts:       ch.Attempts,
			LastAttemptAt:  ch.LastAttemptAt,
			NextRetryAt:    ch.NextRetryAt,
			ErrorMessage:   ch.ErrorMessage,
		})
	}

	return m, nil
}

func notificationModelToDomain(m *NotificationModel) (*domain.Notification, error) {
	if m == nil {
		return nil, nil
	}

	data := map[string]string{}
	if m.Data != "" {
		if err := json.Unmarshal([]byte(m.Data), &data); err != nil {
			return nil, err
		}
	}

	n := &domain.Notification{
		ID:            m.ID,
		RecipientID:   m.RecipientID,
		RecipientType: m.RecipientType,
		BroadcastID:   m.BroadcastID,
		Type:          m.Type,
		Title:         m.Title,
		Message:       m.Message,
		Priority:      m.Priority,
		Data:          data,
		Status:        m.Status,
		ReadAt:        m.ReadAt,
		ExpiresAt:     m.ExpiresAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}

	for _, ch := range m.Channels {
		n.Channels = append(n.Channels, domain.ChannelDelivery{
			Channel:       ch.Channel,
			Enabled:       ch.Enabled,
			Status:        ch.Status,
			Attempts:      ch.Attempts,
			LastAttemptAt: ch.LastAttemptAt,
			NextRetryAt:   ch.NextRetryAt,
			ErrorMessage:  ch.ErrorMessage,
		})
	}

	return n, nil
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}
	return &DeliveryAttemptModel{
		ID:             a.ID,
		NotificationID: a.NotificationID,
		Channel:        a.Channel,
		AttemptNumber:  a.AttemptNumber,
		StatusCode:     a.StatusCode,
		ResponseBody:   a.ResponseBody,
		Error:          a.Error,
		CreatedAt:      a.CreatedAt,
	}
}

func broadcastModelFromDomain(b *domain.Broadcast) *BroadcastModel {
	if b == nil {
		return nil
	}
	return &BroadcastModel{
		ID:         b.ID,
		Role:       b.Role,
		TotalCount: b.TotalCount,
		Status:     b.Status,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func broadcastModelToDomain(m *BroadcastModel) *domain.Broadcast {
	if m == nil {
		return nil
	}
	return &domain.Broadcast{
		ID:         m.ID,
		Role:       m.Role,
		TotalCount: m.TotalCount,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func preferenceModelFromDomain(p *domain.NotificationPreference) (*PreferenceModel, error) {
	if p == nil {
		return nil, nil
	}

	types := p.Types
	if types == nil {
		types = map[domain.NotificationType]domain.ChannelToggles{}
	}
	payload, err := json.Marshal(types)
	if err != nil {
		return nil, err
	}

	m := &PreferenceModel{
		RecipientID:   p.RecipientID,
		RecipientType: p.RecipientType,
		Types:         string(payload),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}

	if q := p.Quiet; q != nil {
		start, end := q.Start, q.End
		m.QuietStart = &start
		m.QuietEnd = &end
		if q.Timezone != "" {
			tz := q.Timezone
			m.QuietTimezone = &tz
		}
	}

	return m, nil
}

func preferenceModelToDomain(m *PreferenceModel) (*domain.NotificationPreference, error) {
	if m == nil {
		return nil, nil
	}

	types := map[domain.NotificationType]domain.ChannelToggles{}
	if m.Types != "" {
		if err := json.Unmarshal([]byte(m.Types), &types); err != nil {
			return nil, err
		}
	}

	p := &domain.NotificationPreference{
		RecipientID:   m.RecipientID,
		RecipientType: m.RecipientType,
		Types:         types,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}

	if m.QuietStart != nil && m.QuietEnd != nil {
		p.Quiet = &domain.QuietHours{Start: *m.QuietStart, End: *m.QuietEnd}
		if m.QuietTimezone != nil {
			p.Quiet.Timezone = *m.QuietTimezone
		}
	}

	return p, nil
}

func userModelToDirectory(m *UserModel) *directory.User {
	if m == nil {
		return nil
	}
	u := &directory.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
		Role:  m.Role,
	}
	for _, sub := range m.DeviceSubscriptions {
		u.DeviceSubscriptions = append(u.DeviceSubscriptions, directory.DeviceSubscription{
			ID:       sub.ID,
			Endpoint: sub.Endpoint,
			Token:    sub.Token,
			Platform: sub.Platform,
			Active:   sub.Active,
		})
	}
	return u
}
