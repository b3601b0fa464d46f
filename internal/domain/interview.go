package domain

import (
	"fmt"
	"strings"
	"time"
)

// OverallStatus is the interview's main lifecycle axis. It is always computed
// by ResolveOverallStatus from the granular decision fields, never set ad hoc.
type OverallStatus string

const (
	OverallPendingApproval OverallStatus = "PENDING_APPROVAL"
	OverallScheduled       OverallStatus = "SCHEDULED"
	OverallConfirmed       OverallStatus = "CONFIRMED"
	OverallCompleted       OverallStatus = "COMPLETED"
	OverallCancelled       OverallStatus = "CANCELLED"
	OverallNoShow          OverallStatus = "NO_SHOW"
	OverallRejected        OverallStatus = "REJECTED"
)

func (s OverallStatus) String() string { return string(s) }

func (s OverallStatus) IsValid() bool {
	switch s {
	case OverallPendingApproval, OverallScheduled, OverallConfirmed,
		OverallCompleted, OverallCancelled, OverallNoShow, OverallRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further main-axis transition is defined.
func (s OverallStatus) IsTerminal() bool {
	switch s {
	case OverallCompleted, OverallCancelled, OverallNoShow, OverallRejected:
		return true
	}
	return false
}

func ParseOverallStatusFromString(s string) (OverallStatus, error) {
	st := OverallStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid overall status %q", ErrValidation, s)
	}
	return st, nil
}

// ActiveOverallStatuses are the non-terminal states that block a second
// interview for the same application.
func ActiveOverallStatuses() []OverallStatus {
	return []OverallStatus{OverallPendingApproval, OverallScheduled, OverallConfirmed}
}

// AdminStatus is the moderation decision on a proposed interview.
type AdminStatus string

const (
	AdminPending  AdminStatus = "PENDING"
	AdminApproved AdminStatus = "APPROVED"
	AdminRejected AdminStatus = "REJECTED"
)

func (s AdminStatus) String() string { return string(s) }

func (s AdminStatus) IsValid() bool {
	switch s {
	case AdminPending, AdminApproved, AdminRejected:
		return true
	}
	return false
}

// CandidateResponse is the candidate's answer to a scheduled interview.
type CandidateResponse string

const (
	ResponsePending  CandidateResponse = "PENDING"
	ResponseAccepted CandidateResponse = "ACCEPTED"
	ResponseRejected CandidateResponse = "REJECTED"
)

func (s CandidateResponse) String() string { return string(s) }

func (s CandidateResponse) IsValid() bool {
	switch s {
	case ResponsePending, ResponseAccepted, ResponseRejected:
		return true
	}
	return false
}

// FeedbackStatus is the moderation decision on company feedback.
type FeedbackStatus string

const (
	FeedbackPending  FeedbackStatus = "PENDING"
	FeedbackApproved FeedbackStatus = "APPROVED"
	FeedbackRejected FeedbackStatus = "REJECTED"
)

func (s FeedbackStatus) String() string { return string(s) }

func (s FeedbackStatus) IsValid() bool {
	switch s {
	case FeedbackPending, FeedbackApproved, FeedbackRejected:
		return true
	}
	return false
}

// InterviewOutcome is the operator-recorded post-session result.
type InterviewOutcome string

const (
	OutcomeCompleted InterviewOutcome = "COMPLETED"
	OutcomeNoShow    InterviewOutcome = "NO_SHOW"
	OutcomeCancelled InterviewOutcome = "CANCELLED"
)

func (o InterviewOutcome) String() string { return string(o) }

func (o InterviewOutcome) IsValid() bool {
	switch o {
	case OutcomeCompleted, OutcomeNoShow, OutcomeCancelled:
		return true
	}
	return false
}

func ParseInterviewOutcomeFromString(s string) (InterviewOutcome, error) {
	o := InterviewOutcome(strings.ToUpper(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: invalid outcome %q", ErrValidation, s)
	}
	return o, nil
}

// InterviewMode is how the session is held.
type InterviewMode string

const (
	ModePresential InterviewMode = "PRESENTIAL"
	ModeOnline     InterviewMode = "ONLINE"
	ModePhone      InterviewMode = "PHONE"
)

func (m InterviewMode) String() string { return string(m) }

func (m InterviewMode) IsValid() bool {
	switch m {
	case ModePresential, ModeOnline, ModePhone:
		return true
	}
	return false
}

func ParseInterviewModeFromString(s string) (InterviewMode, error) {
	m := InterviewMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid mode %q", ErrValidation, s)
	}
	return m, nil
}

// Transition names a guarded state change for diagnostics and metrics.
type Transition string

const (
	TransitionCreate                  Transition = "create"
	TransitionAdminApprove            Transition = "admin_approve"
	TransitionAdminReject             Transition = "admin_reject"
	TransitionCandidateAccept         Transition = "candidate_accept"
	TransitionCandidateReject         Transition = "candidate_reject"
	TransitionRecordOutcome           Transition = "record_outcome"
	TransitionSubmitCompanyFeedback   Transition = "submit_company_feedback"
	TransitionApproveFeedback         Transition = "approve_feedback"
	TransitionRejectFeedback          Transition = "reject_feedback"
	TransitionSubmitCandidateFeedback Transition = "submit_candidate_feedback"
)

func (t Transition) String() string { return string(t) }

// CompanyFeedback is the company's post-session evaluation, submitted once.
type CompanyFeedback struct {
	TechnicalScore     int
	CommunicationScore int
	ExperienceScore    int
	OverallScore       int
	Comments           string
	SubmittedBy        string
	SubmittedAt        time.Time
}

const (
	minScore = 1
	maxScore = 5
)

func (f *CompanyFeedback) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: feedback is required", ErrValidation)
	}
	scores := map[string]int{
		"technical":     f.TechnicalScore,
		"communication": f.CommunicationScore,
		"experience":    f.ExperienceScore,
		"overall":       f.OverallScore,
	}
	for name, score := range scores {
		if score < minScore || score > maxScore {
			return fmt.Errorf("%w: %s score must be between %d and %d (got %d)",
				ErrValidation, name, minScore, maxScore, score)
		}
	}
	return nil
}

// CandidateFeedback is the candidate's rating of the interview experience.
// There is no moderation step for it; it is recorded once and kept as-is.
type CandidateFeedback struct {
	Rating      int
	Comments    string
	SubmittedAt time.Time
}

func (f *CandidateFeedback) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: feedback is required", ErrValidation)
	}
	if f.Rating < minScore || f.Rating > maxScore {
		return fmt.Errorf("%w: rating must be between %d and %d (got %d)",
			ErrValidation, minScore, maxScore, f.Rating)
	}
	return nil
}

// Interview is the core workflow entity. Company, candidate, and admin each
// own disjoint subsets of its mutable fields; the transition guards in the
// repository enforce that split.
type Interview struct {
	ID            string
	CandidateID   string
	CompanyID     string
	JobID         *string
	ApplicationID *string

	Title            string
	Description      string
	ScheduledDate    time.Time
	DurationMinutes  int
	Mode             InterviewMode
	Location         string
	MeetingURL       string
	InterviewerName  string
	InterviewerEmail string
	InterviewerPhone string
	Notes            string

	OverallStatus OverallStatus

	AdminStatus     AdminStatus
	AdminComments   string
	AdminApprovedBy *string
	AdminApprovedAt *time.Time

	CandidateResponse    CandidateResponse
	CandidateComments    string
	CandidateRespondedAt *time.Time

	Outcome *InterviewOutcome

	CompanyFeedback       *CompanyFeedback
	FeedbackStatus        FeedbackStatus
	FeedbackApprovedBy    *string
	FeedbackApprovedAt    *time.Time
	FeedbackAdminComments string

	CandidateFeedback *CandidateFeedback

	ReminderSentAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *Interview) Validate() error {
	if i == nil {
		return fmt.Errorf("%w: interview is required", ErrValidation)
	}
	if strings.TrimSpace(i.CandidateID) == "" {
		return fmt.Errorf("%w: candidate id is required", ErrValidation)
	}
	if strings.TrimSpace(i.CompanyID) == "" {
		return fmt.Errorf("%w: company id is required", ErrValidation)
	}
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if i.ScheduledDate.IsZero() {
		return fmt.Errorf("%w: scheduled date is required", ErrValidation)
	}
	if i.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive (got %d)", ErrValidation, i.DurationMinutes)
	}
	if !i.Mode.IsValid() {
		return fmt.Errorf("%w: invalid mode %q", ErrValidation, i.Mode)
	}

	switch i.Mode {
	case ModePresential:
		if strings.TrimSpace(i.Location) == "" {
			return fmt.Errorf("%w: location is required for presential interviews", ErrValidation)
		}
	case ModeOnline:
		if strings.TrimSpace(i.MeetingURL) == "" {
			return fmt.Errorf("%w: meeting url is required for online interviews", ErrValidation)
		}
	}

	return nil
}

// ResolveOverallStatus computes the main-axis status from the granular
// decision fields. Every transition runs it exactly once, so the status can
// never drift from the fields it is derived from. A recorded outcome wins
// over everything else.
func ResolveOverallStatus(admin AdminStatus, response CandidateResponse, outcome *InterviewOutcome) OverallStatus {
	if outcome != nil {
		switch *outcome {
		case OutcomeCompleted:
			return OverallCompleted
		case OutcomeNoShow:
			return OverallNoShow
		case OutcomeCancelled:
			return OverallCancelled
		}
	}

	switch admin {
	case AdminPending:
		return OverallPendingApproval
	case AdminRejected:
		return OverallRejected
	}

	switch response {
	case ResponseAccepted:
		return OverallConfirmed
	case ResponseRejected:
		return OverallCancelled
	}

	return OverallScheduled
}
