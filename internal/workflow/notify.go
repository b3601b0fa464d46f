package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/dispatch"
	"github.com/talentgrid/interview-engine/internal/domain"
	"go.uber.org/zap"
)

// participantNames carries the display names a notification payload embeds,
// resolved best effort: a missing directory row degrades the copy, not the
// transition.
type participantNames struct {
	candidateName string
	companyName   string
	jobTitle      string
}

func (e *Engine) resolveNames(ctx context.Context, interview *domain.Interview) participantNames {
	names := participantNames{}

	if candidate, err := e.dir.FindUser(ctx, interview.CandidateID); err == nil {
		names.candidateName = candidate.Name
	}
	if company, err := e.dir.FindCompany(ctx, interview.CompanyID); err == nil {
		names.companyName = company.Name
	}
	if interview.JobID != nil {
		if job, err := e.dir.FindJob(ctx, *interview.JobID); err == nil {
			names.jobTitle = job.Title
		}
	}
	if names.jobTitle == "" {
		names.jobTitle = interview.Title
	}

	return names
}

func (e *Engine) dispatchIntent(ctx context.Context, interviewID string, intent dispatch.Intent) {
	if _, err := e.notifier.Dispatch(ctx, intent); err != nil {
		e.logger.Error("failed to dispatch workflow notification",
			zap.String("interviewId", interviewID),
			zap.String("type", intent.Type.String()),
			zap.Error(err),
		)
	}
}

func (e *Engine) broadcastIntent(ctx context.Context, interviewID string, role domain.Role, intent dispatch.Intent) {
	if _, err := e.notifier.BroadcastToRole(ctx, role, intent); err != nil {
		e.logger.Error("failed to broadcast workflow notification",
			zap.String("interviewId", interviewID),
			zap.String("type", intent.Type.String()),
			zap.String("role", role.String()),
			zap.Error(err),
		)
	}
}

func (e *Engine) notifyPendingApproval(
	ctx context.Context,
	interview *domain.Interview,
	candidate *directory.User,
	company *directory.Company,
) {
	e.broadcastIntent(ctx, interview.ID, domain.RoleAdmin, dispatch.Intent{
		Type:     domain.TypeInterviewPendingApproval,
		Title:    "Interview pending approval",
		Message:  fmt.Sprintf("%s proposed an interview with %s.", company.Name, candidate.Name),
		Priority: domain.PriorityHigh,
		Data: map[string]string{
			"interviewId":   interview.ID,
			"jobTitle":      interview.Title,
			"companyName":   company.Name,
			"candidateName": candidate.Name,
			"scheduledDate": interview.ScheduledDate.UTC().Format(time.RFC3339),
		},
	})
}

func (e *Engine) notifyInvitation(ctx context.Context, interview *domain.Interview) {
	names := e.resolveNames(ctx, interview)

	data := map[string]string{
		"interviewId":   interview.ID,
		"jobTitle":      names.jobTitle,
		"companyName":   names.companyName,
		"scheduledDate": interview.ScheduledDate.UTC().Format(time.RFC3339),
		"mode":          interview.Mode.String(),
	}
	if interview.Location != "" {
		data["location"] = interview.Location
	}
	if interview.MeetingURL != "" {
		data["meetingUrl"] = interview.MeetingURL
	}

	e.dispatchIntent(ctx, interview.ID, dispatch.Intent{
		RecipientID:   interview.CandidateID,
		RecipientType: domain.RecipientUser,
		Type:          domain.TypeInterviewInvitation,
		Title:         "You have been invited to an interview",
		Message:       fmt.Sprintf("%s invited you to interview for %s.", names.companyName, names.jobTitle),
		Priority:      domain.PriorityHigh,
		Data:          data,
	})
}

func (e *Engine) notifyAdminDecision(ctx context.Context, interview *domain.Interview, decision string) {
	names := e.resolveNames(ctx, interview)

	data := map[string]string{
		"interviewId":   interview.ID,
		"jobTitle":      names.jobTitle,
		"candidateName": names.candidateName,
		"decision":      decision,
	}
	if interview.AdminComments != "" {
		data["adminComments"] = interview.AdminComments
	}

	e.dispatchIntent(ctx, interview.ID, dispatch.Intent{
		RecipientID:   interview.CompanyID,
		RecipientType: domain.RecipientCompany,
		Type:          domain.TypeInterviewDecision,
		Title:         fmt.Sprintf("Interview proposal %s", decision),
		Message:       fmt.Sprintf("Your interview proposal for %s was %s.", names.candidateName, decision),
		Priority:      domain.PriorityMedium,
		Data:          data,
	})
}

func (e *Engine) notifyCandidateRejection(ctx context.Context, interview *domain.Interview) {
	names := e.resolveNames(ctx, interview)

	e.dispatchIntent(ctx, interview.ID, dispatch.Intent{
		RecipientID:   interview.CandidateID,
		RecipientType: domain.RecipientUser,
		Type:          domain.TypeInterviewDecision,
		Title:         "Interview not approved",
		Message:       fmt.Sprintf("The proposed interview for %s was not approved.", names.jobTitle),
		Priority:      domain.PriorityMedium,
		Data: map[string]string{
			"interviewId": interview.ID,
			"jobTitle":    names.jobTitle,
			"decision":    "rejected",
		},
	})
}

func (e *Engine) notifyResponse(ctx context.Context, interview *domain.Interview, response domain.CandidateResponse) {
	names := e.resolveNames(ctx, interview)

	verb := "accepted"
	if response == domain.ResponseRejected {
		verb = "declined"
	}

	data := map[string]string{
		"interviewId":   interview.ID,
		"jobTitle":      names.jobTitle,
		"candidateName": names.candidateName,
		"response":      response.String(),
	}
	if interview.CandidateComments != "" {
		data["candidateComments"] = interview.CandidateComments
	}

	intent := dispatch.Intent{
		RecipientID:   interview.CompanyID,
		RecipientType: domain.RecipientCompany,
		Type:          domain.TypeInterviewResponse,
		Title:         fmt.Sprintf("Candidate %s the interview", verb),
		Message:       fmt.Sprintf("%s %s the interview for %s.", names.candidateName, verb, names.jobTitle),
		Priority:      domain.PriorityMedium,
		Data:          data,
	}
	e.dispatchIntent(ctx, interview.ID, intent)

	// Admins track confirmations for scheduling oversight.
	e.broadcastIntent(ctx, interview.ID, domain.RoleAdmin, intent)
}

func (e *Engine) notifyFeedbackPending(ctx context.Context, interview *domain.Interview) {
	names := e.resolveNames(ctx, interview)

	e.broadcastIntent(ctx, interview.ID, domain.RoleAdmin, dispatch.Intent{
		Type:     domain.TypeFeedbackPending,
		Title:    "Interview feedback awaiting review",
		Message:  fmt.Sprintf("%s submitted feedback for %s.", names.companyName, names.candidateName),
		Priority: domain.PriorityMedium,
		Data: map[string]string{
			"interviewId":   interview.ID,
			"jobTitle":      names.jobTitle,
			"companyName":   names.companyName,
			"candidateName": names.candidateName,
		},
	})
}

func (e *Engine) notifyFeedbackAvailable(ctx context.Context, interview *domain.Interview) {
	names := e.resolveNames(ctx, interview)

	e.dispatchIntent(ctx, interview.ID, dispatch.Intent{
		RecipientID:   interview.CandidateID,
		RecipientType: domain.RecipientUser,
		Type:          domain.TypeFeedbackAvailable,
		Title:         "Your interview feedback is available",
		Message:       fmt.Sprintf("Feedback from your interview with %s is now available.", names.companyName),
		Priority:      domain.PriorityMedium,
		Data: map[string]string{
			"interviewId": interview.ID,
			"jobTitle":    names.jobTitle,
			"companyName": names.companyName,
		},
	})
}
