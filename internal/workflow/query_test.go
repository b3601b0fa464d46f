package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/repository"
)

func listingRepo(captured *repository.InterviewFilter, results []domain.Interview) *fakeInterviewRepo {
	return &fakeInterviewRepo{
		listFunc: func(ctx context.Context, filter repository.InterviewFilter) ([]domain.Interview, int64, error) {
			*captured = filter
			// Callers redact in place, so each listing gets its own copy.
			page := make([]domain.Interview, len(results))
			copy(page, results)
			return page, int64(len(results)), nil
		},
	}
}

func TestQueriesListCandidateScope(t *testing.T) {
	t.Parallel()

	var captured repository.InterviewFilter
	queries, err := NewQueries(listingRepo(&captured, nil))
	if err != nil {
		t.Fatalf("NewQueries() error = %v", err)
	}

	// A candidate asking for someone else's interviews gets their own scope.
	other := "cand-2"
	_, _, err = queries.List(context.Background(), candidateActor, ListFilter{CandidateID: &other})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if captured.CandidateID == nil || *captured.CandidateID != candidateActor.ID {
		t.Fatalf("candidate filter = %v, want forced to the actor's own id", captured.CandidateID)
	}
}

func TestQueriesListCompanyScope(t *testing.T) {
	t.Parallel()

	var captured repository.InterviewFilter
	queries, err := NewQueries(listingRepo(&captured, nil))
	if err != nil {
		t.Fatalf("NewQueries() error = %v", err)
	}

	other := "comp-2"
	_, _, err = queries.List(context.Background(), companyActor, ListFilter{CompanyID: &other})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if captured.CompanyID == nil || *captured.CompanyID != companyActor.ID {
		t.Fatalf("company filter = %v, want forced to the actor's own id", captured.CompanyID)
	}
}

func TestQueriesListAdminPassthrough(t *testing.T) {
	t.Parallel()

	var captured repository.InterviewFilter
	queries, err := NewQueries(listingRepo(&captured, nil))
	if err != nil {
		t.Fatalf("NewQueries() error = %v", err)
	}

	candidateID := "cand-2"
	status := domain.OverallScheduled
	_, _, err = queries.List(context.Background(), adminActor, ListFilter{
		CandidateID:   &candidateID,
		OverallStatus: &status,
		Page:          2,
		PageSize:      25,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if captured.CandidateID == nil || *captured.CandidateID != candidateID {
		t.Fatalf("candidate filter = %v, want passed through for admins", captured.CandidateID)
	}
	if captured.OverallStatus == nil || *captured.OverallStatus != status {
		t.Fatalf("status filter = %v, want passed through", captured.OverallStatus)
	}
	if captured.Page != 2 || captured.PageSize != 25 {
		t.Fatalf("pagination = %d/%d, want 2/25", captured.Page, captured.PageSize)
	}
}

func TestQueriesListRedactsUnapprovedFeedback(t *testing.T) {
	t.Parallel()

	feedback := domain.CompanyFeedback{
		TechnicalScore: 4, CommunicationScore: 4, ExperienceScore: 4, OverallScore: 4,
	}
	results := []domain.Interview{
		{ID: "int-1", CandidateID: "cand-1", CompanyFeedback: &feedback, FeedbackStatus: domain.FeedbackPending},
		{ID: "int-2", CandidateID: "cand-1", CompanyFeedback: &feedback, FeedbackStatus: domain.FeedbackApproved},
		{ID: "int-3", CandidateID: "cand-1", CompanyFeedback: &feedback, FeedbackStatus: domain.FeedbackRejected},
	}

	var captured repository.InterviewFilter
	queries, err := NewQueries(listingRepo(&captured, results))
	if err != nil {
		t.Fatalf("NewQueries() error = %v", err)
	}

	listed, total, err := queries.List(context.Background(), candidateActor, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if listed[0].CompanyFeedback != nil {
		t.Fatal("pending feedback must be hidden from the candidate")
	}
	if listed[1].CompanyFeedback == nil {
		t.Fatal("approved feedback is visible to the candidate")
	}
	if listed[2].CompanyFeedback != nil {
		t.Fatal("rejected feedback must be hidden from the candidate")
	}

	// The same rows listed by an admin keep every feedback block.
	adminListed, _, err := queries.List(context.Background(), adminActor, ListFilter{})
	if err != nil {
		t.Fatalf("List() as admin error = %v", err)
	}
	for _, interview := range adminListed {
		if interview.CompanyFeedback == nil {
			t.Fatalf("interview %s feedback should survive an admin listing", interview.ID)
		}
	}
}

func TestQueriesListInvalidActor(t *testing.T) {
	t.Parallel()

	queries, err := NewQueries(&fakeInterviewRepo{})
	if err != nil {
		t.Fatalf("NewQueries() error = %v", err)
	}

	if _, _, err := queries.List(context.Background(), domain.Actor{}, ListFilter{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("List() error = %v, want ErrValidation", err)
	}
}
