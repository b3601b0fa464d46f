package workflow

import (
	"context"
	"fmt"

	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/repository"
)

// ListFilter is the caller-facing filter; role scoping is applied on top of
// it, so a candidate cannot list another candidate's interviews no matter
// what they pass.
type ListFilter struct {
	CandidateID    *string
	CompanyID      *string
	AdminStatus    *domain.AdminStatus
	OverallStatus  *domain.OverallStatus
	FeedbackStatus *domain.FeedbackStatus
	Page           int
	PageSize       int
}

// Queries is the read side of the workflow, split from the Engine so the
// handlers that only list never hold a notifier.
type Queries struct {
	interviews repository.InterviewRepository
}

func NewQueries(interviews repository.InterviewRepository) (*Queries, error) {
	if interviews == nil {
		return nil, fmt.Errorf("interview repository is required")
	}
	return &Queries{interviews: interviews}, nil
}

// List returns the page of interviews visible to the actor plus the unpaged
// total. Redaction matches GetInterview: candidates never see unapproved
// company feedback.
func (q *Queries) List(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.Interview, int64, error) {
	if err := actor.Validate(); err != nil {
		return nil, 0, err
	}

	repoFilter := repository.InterviewFilter{
		CandidateID:    filter.CandidateID,
		CompanyID:      filter.CompanyID,
		AdminStatus:    filter.AdminStatus,
		OverallStatus:  filter.OverallStatus,
		FeedbackStatus: filter.FeedbackStatus,
		Page:           filter.Page,
		PageSize:       filter.PageSize,
	}

	switch actor.Role {
	case domain.RoleCandidate:
		id := actor.ID
		repoFilter.CandidateID = &id
	case domain.RoleCompany:
		id := actor.ID
		repoFilter.CompanyID = &id
	}

	interviews, total, err := q.interviews.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	if actor.Role == domain.RoleCandidate {
		for i := range interviews {
			if interviews[i].FeedbackStatus != domain.FeedbackApproved {
				interviews[i].CompanyFeedback = nil
			}
		}
	}

	return interviews, total, nil
}
