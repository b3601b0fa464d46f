// Package workflow is the interview approval and feedback state machine. Every
// transition is permission-checked against the acting identity, applied as a
// single guarded update, and only then followed by notification dispatch, so
// durable state never depends on delivery.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/dispatch"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/observability"
	"github.com/talentgrid/interview-engine/internal/repository"
	"go.uber.org/zap"
)

// Notifier is the slice of the dispatcher the engine consumes.
type Notifier interface {
	Dispatch(ctx context.Context, intent dispatch.Intent) (*domain.Notification, error)
	BroadcastToRole(ctx context.Context, role domain.Role, intent dispatch.Intent) (*dispatch.BroadcastSummary, error)
}

// CreateInput is the company's interview proposal.
type CreateInput struct {
	CandidateID   string
	JobID         *string
	ApplicationID *string

	Title            string
	Description      string
	ScheduledDate    time.Time
	DurationMinutes  int
	Mode             domain.InterviewMode
	Location         string
	MeetingURL       string
	InterviewerName  string
	InterviewerEmail string
	InterviewerPhone string
	Notes            string
}

// InterviewDetail is an interview joined with its directory collaborators.
type InterviewDetail struct {
	Interview domain.Interview
	Candidate *directory.User
	Company   *directory.Company
	Job       *directory.Job
}

type Engine struct {
	interviews repository.InterviewRepository
	dir        directory.Directory
	notifier   Notifier
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewEngine(
	interviews repository.InterviewRepository,
	dir directory.Directory,
	notifier Notifier,
	logger *zap.Logger,
) (*Engine, error) {
	if interviews == nil {
		return nil, fmt.Errorf("interview repository is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		interviews: interviews,
		dir:        dir,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (e *Engine) SetMetrics(metrics *observability.Metrics) {
	if e == nil {
		return
	}
	e.metrics = metrics
}

// Create validates the proposal against the directory and persists it in
// pending-approval state. Admins are notified; the candidate is not, because
// nothing is scheduled until an admin approves.
func (e *Engine) Create(ctx context.Context, actor domain.Actor, input CreateInput) (*domain.Interview, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleCompany {
		return nil, fmt.Errorf("%w: only companies create interviews", domain.ErrPermissionDenied)
	}

	candidate, err := e.dir.FindUser(ctx, strings.TrimSpace(input.CandidateID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: candidate %q", domain.ErrNotFound, input.CandidateID)
		}
		return nil, err
	}
	if candidate.Role != domain.RoleCandidate {
		return nil, fmt.Errorf("%w: user %q is not a candidate", domain.ErrValidation, input.CandidateID)
	}

	company, err := e.dir.FindCompany(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: company %q", domain.ErrNotFound, actor.ID)
		}
		return nil, err
	}

	if input.JobID != nil {
		if _, err := e.dir.FindJob(ctx, *input.JobID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: job %q", domain.ErrNotFound, *input.JobID)
			}
			return nil, err
		}
	}
	if input.ApplicationID != nil {
		application, err := e.dir.FindApplication(ctx, *input.ApplicationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: application %q", domain.ErrNotFound, *input.ApplicationID)
			}
			return nil, err
		}
		if application.CandidateID != candidate.ID {
			return nil, fmt.Errorf("%w: application %q does not belong to candidate %q",
				domain.ErrValidation, *input.ApplicationID, candidate.ID)
		}
	}

	interview := &domain.Interview{
		ID:                uuid.NewString(),
		CandidateID:       candidate.ID,
		CompanyID:         company.ID,
		JobID:             input.JobID,
		ApplicationID:     input.ApplicationID,
		Title:             strings.TrimSpace(input.Title),
		Description:       strings.TrimSpace(input.Description),
		ScheduledDate:     input.ScheduledDate,
		DurationMinutes:   input.DurationMinutes,
		Mode:              input.Mode,
		Location:          strings.TrimSpace(input.Location),
		MeetingURL:        strings.TrimSpace(input.MeetingURL),
		InterviewerName:   strings.TrimSpace(input.InterviewerName),
		InterviewerEmail:  strings.TrimSpace(input.InterviewerEmail),
		InterviewerPhone:  strings.TrimSpace(input.InterviewerPhone),
		Notes:             strings.TrimSpace(input.Notes),
		AdminStatus:       domain.AdminPending,
		CandidateResponse: domain.ResponsePending,
		FeedbackStatus:    domain.FeedbackPending,
	}
	interview.OverallStatus = domain.ResolveOverallStatus(
		interview.AdminStatus, interview.CandidateResponse, interview.Outcome)

	if err := interview.Validate(); err != nil {
		e.recordTransition(domain.TransitionCreate, err)
		return nil, err
	}

	if err := e.interviews.Create(ctx, interview); err != nil {
		e.recordTransition(domain.TransitionCreate, err)
		return nil, err
	}
	e.recordTransition(domain.TransitionCreate, nil)

	e.notifyPendingApproval(ctx, interview, candidate, company)
	return interview, nil
}

// ApproveInterview moves a pending proposal to scheduled and invites the
// candidate.
func (e *Engine) ApproveInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	if err := e.requireAdmin(actor); err != nil {
		return nil, err
	}

	interview, err := e.interviews.ApplyAdminDecision(ctx, id, domain.AdminApproved, actor.ID, comments, e.now().UTC())
	e.recordTransition(domain.TransitionAdminApprove, err)
	if err != nil {
		return nil, err
	}

	e.notifyInvitation(ctx, interview)
	e.notifyAdminDecision(ctx, interview, "approved")
	return interview, nil
}

// RejectInterview declines a pending proposal. Both sides hear the decision:
// the candidate gets a "not approved" note, the company the rejection.
func (e *Engine) RejectInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	if err := e.requireAdmin(actor); err != nil {
		return nil, err
	}

	interview, err := e.interviews.ApplyAdminDecision(ctx, id, domain.AdminRejected, actor.ID, comments, e.now().UTC())
	e.recordTransition(domain.TransitionAdminReject, err)
	if err != nil {
		return nil, err
	}

	e.notifyCandidateRejection(ctx, interview)
	e.notifyAdminDecision(ctx, interview, "rejected")
	return interview, nil
}

// AcceptInterview records the candidate's confirmation of a scheduled
// interview.
func (e *Engine) AcceptInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	return e.respond(ctx, actor, id, domain.ResponseAccepted, comments)
}

// DeclineInterview records the candidate's rejection of a scheduled interview.
func (e *Engine) DeclineInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	return e.respond(ctx, actor, id, domain.ResponseRejected, comments)
}

func (e *Engine) respond(
	ctx context.Context,
	actor domain.Actor,
	id string,
	response domain.CandidateResponse,
	comments string,
) (*domain.Interview, error) {
	transition := domain.TransitionCandidateAccept
	if response == domain.ResponseRejected {
		transition = domain.TransitionCandidateReject
	}

	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleCandidate {
		return nil, fmt.Errorf("%w: only the candidate responds to an interview", domain.ErrPermissionDenied)
	}

	if err := e.requireOwnership(ctx, id, actor); err != nil {
		return nil, err
	}

	interview, err := e.interviews.ApplyCandidateResponse(ctx, id, response, comments, e.now().UTC())
	e.recordTransition(transition, err)
	if err != nil {
		return nil, err
	}

	e.notifyResponse(ctx, interview, response)
	return interview, nil
}

// RecordOutcome closes a confirmed interview with what actually happened.
func (e *Engine) RecordOutcome(ctx context.Context, actor domain.Actor, id string, outcome domain.InterviewOutcome) (*domain.Interview, error) {
	if err := e.requireAdmin(actor); err != nil {
		return nil, err
	}
	if !outcome.IsValid() {
		return nil, fmt.Errorf("%w: invalid outcome %q", domain.ErrValidation, outcome)
	}

	interview, err := e.interviews.RecordOutcome(ctx, id, outcome, e.now().UTC())
	e.recordTransition(domain.TransitionRecordOutcome, err)
	if err != nil {
		return nil, err
	}

	return interview, nil
}

// SubmitCompanyFeedback stores the company's scores on a completed interview
// and queues them for admin review.
func (e *Engine) SubmitCompanyFeedback(ctx context.Context, actor domain.Actor, id string, feedback domain.CompanyFeedback) (*domain.Interview, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleCompany {
		return nil, fmt.Errorf("%w: only the company submits interview feedback", domain.ErrPermissionDenied)
	}

	if err := e.requireOwnership(ctx, id, actor); err != nil {
		return nil, err
	}

	feedback.SubmittedBy = actor.ID
	feedback.SubmittedAt = e.now().UTC()
	if err := feedback.Validate(); err != nil {
		return nil, err
	}

	interview, err := e.interviews.SubmitCompanyFeedback(ctx, id, feedback)
	e.recordTransition(domain.TransitionSubmitCompanyFeedback, err)
	if err != nil {
		return nil, err
	}

	e.notifyFeedbackPending(ctx, interview)
	return interview, nil
}

// ApproveFeedback releases the company's feedback to the candidate.
func (e *Engine) ApproveFeedback(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	if err := e.requireAdmin(actor); err != nil {
		return nil, err
	}

	interview, err := e.interviews.ApplyFeedbackDecision(ctx, id, domain.FeedbackApproved, actor.ID, comments, e.now().UTC())
	e.recordTransition(domain.TransitionApproveFeedback, err)
	if err != nil {
		return nil, err
	}

	e.notifyFeedbackAvailable(ctx, interview)
	return interview, nil
}

// RejectFeedback withholds the company's feedback. The candidate is not
// notified; rejected feedback is invisible to them.
func (e *Engine) RejectFeedback(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	if err := e.requireAdmin(actor); err != nil {
		return nil, err
	}

	interview, err := e.interviews.ApplyFeedbackDecision(ctx, id, domain.FeedbackRejected, actor.ID, comments, e.now().UTC())
	e.recordTransition(domain.TransitionRejectFeedback, err)
	if err != nil {
		return nil, err
	}

	return interview, nil
}

// SubmitCandidateFeedback records the candidate's one-time experience rating.
// It is unmoderated and triggers no notifications.
func (e *Engine) SubmitCandidateFeedback(ctx context.Context, actor domain.Actor, id string, feedback domain.CandidateFeedback) (*domain.Interview, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleCandidate {
		return nil, fmt.Errorf("%w: only the candidate rates the interview", domain.ErrPermissionDenied)
	}

	if err := e.requireOwnership(ctx, id, actor); err != nil {
		return nil, err
	}

	feedback.SubmittedAt = e.now().UTC()
	if err := feedback.Validate(); err != nil {
		return nil, err
	}

	interview, err := e.interviews.SubmitCandidateFeedback(ctx, id, feedback)
	e.recordTransition(domain.TransitionSubmitCandidateFeedback, err)
	if err != nil {
		return nil, err
	}

	return interview, nil
}

// GetInterview loads an interview with its directory collaborators, applying
// the same visibility rules as listings. Company feedback is redacted for
// candidates until an admin approves it.
func (e *Engine) GetInterview(ctx context.Context, actor domain.Actor, id string) (*InterviewDetail, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	interview, err := e.interviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVisibility(actor, interview); err != nil {
		return nil, err
	}

	if actor.Role == domain.RoleCandidate && interview.FeedbackStatus != domain.FeedbackApproved {
		interview.CompanyFeedback = nil
	}

	detail := &InterviewDetail{Interview: *interview}
	if candidate, err := e.dir.FindUser(ctx, interview.CandidateID); err == nil {
		detail.Candidate = candidate
	}
	if company, err := e.dir.FindCompany(ctx, interview.CompanyID); err == nil {
		detail.Company = company
	}
	if interview.JobID != nil {
		if job, err := e.dir.FindJob(ctx, *interview.JobID); err == nil {
			detail.Job = job
		}
	}

	return detail, nil
}

func (e *Engine) requireAdmin(actor domain.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: admin role required", domain.ErrPermissionDenied)
	}
	return nil
}

// requireOwnership loads the interview and verifies the actor sits on the
// right side of it. The subsequent guarded update still re-checks state, so
// the load here is a permission gate, not the transition itself.
func (e *Engine) requireOwnership(ctx context.Context, id string, actor domain.Actor) error {
	interview, err := e.interviews.GetByID(ctx, id)
	if err != nil {
		return err
	}

	switch actor.Role {
	case domain.RoleCandidate:
		if interview.CandidateID != actor.ID {
			return fmt.Errorf("%w: interview belongs to another candidate", domain.ErrPermissionDenied)
		}
	case domain.RoleCompany:
		if interview.CompanyID != actor.ID {
			return fmt.Errorf("%w: interview belongs to another company", domain.ErrPermissionDenied)
		}
	}
	return nil
}

func checkVisibility(actor domain.Actor, interview *domain.Interview) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleCandidate:
		if interview.CandidateID == actor.ID {
			return nil
		}
	case domain.RoleCompany:
		if interview.CompanyID == actor.ID {
			return nil
		}
	}
	return fmt.Errorf("%w: not a participant of this interview", domain.ErrPermissionDenied)
}

func (e *Engine) recordTransition(transition domain.Transition, err error) {
	if e.metrics == nil {
		return
	}

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidTransition):
		outcome = "invalid_transition"
	case errors.Is(err, domain.ErrValidation):
		outcome = "validation_error"
	case errors.Is(err, domain.ErrDuplicateActiveInterview):
		outcome = "duplicate"
	default:
		outcome = "error"
	}
	e.metrics.IncTransition(transition.String(), outcome)
}
