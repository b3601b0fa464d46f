package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/transport"
	"github.com/talentgrid/interview-engine/internal/workflow"
	"go.uber.org/zap"
)

type fakeWorkflow struct {
	createFunc  func(ctx context.Context, actor domain.Actor, input workflow.CreateInput) (*domain.Interview, error)
	approveFunc func(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	acceptFunc  func(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	declineFunc func(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	outcomeFunc func(ctx context.Context, actor domain.Actor, id string, outcome domain.InterviewOutcome) (*domain.Interview, error)
	getFunc     func(ctx context.Context, actor domain.Actor, id string) (*workflow.InterviewDetail, error)
}

func sampleInterview() *domain.Interview {
	return &domain.Interview{
		ID:                "int-1",
		CandidateID:       "cand-1",
		CompanyID:         "comp-1",
		Title:             "Backend Engineer",
		ScheduledDate:     time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		DurationMinutes:   60,
		Mode:              domain.ModeOnline,
		MeetingURL:        "https://meet.example.com/abc",
		OverallStatus:     domain.OverallPendingApproval,
		AdminStatus:       domain.AdminPending,
		CandidateResponse: domain.ResponsePending,
		FeedbackStatus:    domain.FeedbackPending,
	}
}

func (f *fakeWorkflow) Create(ctx context.Context, actor domain.Actor, input workflow.CreateInput) (*domain.Interview, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, actor, input)
	}
	return sampleInterview(), nil
}

func (f *fakeWorkflow) ApproveInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	if f.approveFunc != nil {
		return f.approveFunc(ctx, actor, id, comments)
	}
	return sampleInterview(), nil
}

func (f *fakeWorkflow) RejectInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	return sampleInterview(), nil
}

func (f *fakeWorkflow) AcceptInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	if f.acceptFunc != nil {
		return f.acceptFunc(ctx, actor, id, comments)
	}
	return sampleInterview(), nil
}

func (f *fakeWorkflow) DeclineInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	if f.declineFunc != nil {
		return f.declineFunc(ctx, actor, id, comments)
	}
	return sampleInterview(), nil
}

func (f *fakeWorkflow) RecordOutcome(ctx context.Context, actor domain.Actor, id string, outcome domain.InterviewOutcome) (*domain.Interview, error) {
	if f.outcomeFunc != nil {
		return f.outcomeFunc(ctx, actor, id, outcome)
	}
	return sampleInterview(), nil
}

func (f *fakeWorkflow) SubmitCompanyFeedback(ctx context.Context, actor domain.Actor, id string, feedback domain.CompanyFeedback) (*domain.Interview, error) {
	return sampleInterview(), nil
}

func (f *fakeWorkflow) ApproveFeedback(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	return sampleInterview(), nil
}

func (f *fakeWorkflow) RejectFeedback(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
	return sampleInterview(), nil
}

func (f *fakeWorkflow) SubmitCandidateFeedback(ctx context.Context, actor domain.Actor, id string, feedback domain.CandidateFeedback) (*domain.Interview, error) {
	return sampleInterview(), nil
}

func (f *fakeWorkflow) GetInterview(ctx context.Context, actor domain.Actor, id string) (*workflow.InterviewDetail, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, actor, id)
	}
	return &workflow.InterviewDetail{Interview: *sampleInterview()}, nil
}

type fakeQueries struct {
	listFunc func(ctx context.Context, actor domain.Actor, filter workflow.ListFilter) ([]domain.Interview, int64, error)
}

func (f *fakeQueries) List(ctx context.Context, actor domain.Actor, filter workflow.ListFilter) ([]domain.Interview, int64, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, actor, filter)
	}
	return nil, 0, nil
}

func newTestApp(t *testing.T, engine WorkflowService, queries InterviewQueries) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	if err := RegisterInterviewRoutes(app, engine, queries); err != nil {
		t.Fatalf("RegisterInterviewRoutes() error = %v", err)
	}
	return app
}

func jsonRequest(t *testing.T, method, target string, body any, actorID, actorRole string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-Id", actorID)
	}
	if actorRole != "" {
		req.Header.Set("X-Actor-Role", actorRole)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		t.Fatalf("decode body %q: %v", payload, err)
	}
}

func TestCreateInterviewEndpoint(t *testing.T) {
	t.Parallel()

	var gotActor domain.Actor
	var gotInput workflow.CreateInput
	engine := &fakeWorkflow{
		createFunc: func(ctx context.Context, actor domain.Actor, input workflow.CreateInput) (*domain.Interview, error) {
			gotActor = actor
			gotInput = input
			return sampleInterview(), nil
		},
	}
	app := newTestApp(t, engine, &fakeQueries{})

	req := jsonRequest(t, http.MethodPost, "/v1/interviews", map[string]any{
		"candidateId":     "cand-1",
		"title":           "Backend Engineer",
		"scheduledDate":   "2026-09-10T14:00:00Z",
		"durationMinutes": 60,
		"mode":            "online",
		"meetingUrl":      "https://meet.example.com/abc",
	}, "comp-1", "company")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	if gotActor.ID != "comp-1" || gotActor.Role != domain.RoleCompany {
		t.Fatalf("actor = %+v, want company comp-1 from the identity headers", gotActor)
	}
	if gotInput.Mode != domain.ModeOnline {
		t.Fatalf("mode = %v, want parsed to online", gotInput.Mode)
	}

	var body struct {
		ID            string `json:"id"`
		OverallStatus string `json:"overallStatus"`
	}
	decodeBody(t, resp, &body)
	if body.ID != "int-1" || body.OverallStatus != "PENDING_APPROVAL" {
		t.Fatalf("body = %+v, want the created interview", body)
	}
}

func TestCreateInterviewMissingIdentity(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &fakeWorkflow{}, &fakeQueries{})

	req := jsonRequest(t, http.MethodPost, "/v1/interviews", map[string]any{"mode": "ONLINE"}, "", "")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without identity headers", resp.StatusCode)
	}
}

func TestCreateInterviewInvalidMode(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &fakeWorkflow{}, &fakeQueries{})

	req := jsonRequest(t, http.MethodPost, "/v1/interviews", map[string]any{
		"candidateId": "cand-1",
		"mode":        "HOLOGRAM",
	}, "comp-1", "COMPANY")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an unknown mode", resp.StatusCode)
	}
}

func TestApproveInterviewEndpoint(t *testing.T) {
	t.Parallel()

	var gotID, gotComments string
	engine := &fakeWorkflow{
		approveFunc: func(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
			gotID, gotComments = id, comments
			interview := sampleInterview()
			interview.AdminStatus = domain.AdminApproved
			interview.OverallStatus = domain.OverallScheduled
			return interview, nil
		},
	}
	app := newTestApp(t, engine, &fakeQueries{})

	req := jsonRequest(t, http.MethodPost, "/v1/interviews/int-1/approve",
		map[string]any{"comments": "looks good"}, "admin-1", "ADMIN")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gotID != "int-1" || gotComments != "looks good" {
		t.Fatalf("approve called with (%q, %q), want the path id and body comments", gotID, gotComments)
	}

	var body struct {
		OverallStatus string `json:"overallStatus"`
	}
	decodeBody(t, resp, &body)
	if body.OverallStatus != "SCHEDULED" {
		t.Fatalf("overallStatus = %q, want SCHEDULED", body.OverallStatus)
	}
}

func TestApproveInterviewEmptyBody(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &fakeWorkflow{}, &fakeQueries{})

	// Decision endpoints accept an empty body; comments are optional.
	req := httptest.NewRequest(http.MethodPost, "/v1/interviews/int-1/approve", nil)
	req.Header.Set("X-Actor-Id", "admin-1")
	req.Header.Set("X-Actor-Role", "ADMIN")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200 for an empty body", resp.StatusCode)
	}
}

func TestRespondToInterviewEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		response    string
		wantAccept  bool
		wantDecline bool
		wantStatus  int
	}{
		{name: "accepted routes to accept", response: "accepted", wantAccept: true, wantStatus: fiber.StatusOK},
		{name: "rejected routes to decline", response: "REJECTED", wantDecline: true, wantStatus: fiber.StatusOK},
		{name: "unknown response rejected", response: "maybe", wantStatus: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			accepted, declined := false, false
			engine := &fakeWorkflow{
				acceptFunc: func(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
					accepted = true
					return sampleInterview(), nil
				},
				declineFunc: func(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
					declined = true
					return sampleInterview(), nil
				},
			}
			app := newTestApp(t, engine, &fakeQueries{})

			req := jsonRequest(t, http.MethodPost, "/v1/interviews/int-1/response",
				map[string]any{"response": tt.response}, "cand-1", "CANDIDATE")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if accepted != tt.wantAccept || declined != tt.wantDecline {
				t.Fatalf("accept=%v decline=%v, want accept=%v decline=%v",
					accepted, declined, tt.wantAccept, tt.wantDecline)
			}
		})
	}
}

func TestRecordOutcomeEndpoint(t *testing.T) {
	t.Parallel()

	var gotOutcome domain.InterviewOutcome
	engine := &fakeWorkflow{
		outcomeFunc: func(ctx context.Context, actor domain.Actor, id string, outcome domain.InterviewOutcome) (*domain.Interview, error) {
			gotOutcome = outcome
			return sampleInterview(), nil
		},
	}
	app := newTestApp(t, engine, &fakeQueries{})

	req := jsonRequest(t, http.MethodPost, "/v1/interviews/int-1/outcome",
		map[string]any{"outcome": "no_show"}, "admin-1", "ADMIN")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gotOutcome != domain.OutcomeNoShow {
		t.Fatalf("outcome = %v, want parsed to no-show", gotOutcome)
	}
}

func TestInterviewErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation maps to 400", err: fmt.Errorf("%w: bad input", domain.ErrValidation), wantStatus: fiber.StatusBadRequest},
		{name: "not found maps to 404", err: fmt.Errorf("%w: interview", domain.ErrNotFound), wantStatus: fiber.StatusNotFound},
		{name: "permission maps to 403", err: fmt.Errorf("%w: admin role required", domain.ErrPermissionDenied), wantStatus: fiber.StatusForbidden},
		{name: "invalid transition maps to 409", err: domain.NewInvalidTransition(domain.TransitionAdminApprove, "SCHEDULED"), wantStatus: fiber.StatusConflict},
		{name: "duplicate maps to 409", err: fmt.Errorf("%w: app-1", domain.ErrDuplicateActiveInterview), wantStatus: fiber.StatusConflict},
		{name: "unknown error maps to 500", err: fmt.Errorf("connection reset"), wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &fakeWorkflow{
				approveFunc: func(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error) {
					return nil, tt.err
				},
			}
			app := newTestApp(t, engine, &fakeQueries{})

			req := jsonRequest(t, http.MethodPost, "/v1/interviews/int-1/approve", nil, "admin-1", "ADMIN")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body struct {
				Error string `json:"error"`
			}
			decodeBody(t, resp, &body)
			if body.Error == "" {
				t.Fatal("error body should carry a message")
			}
		})
	}
}

func TestListInterviewsEndpoint(t *testing.T) {
	t.Parallel()

	var gotFilter workflow.ListFilter
	queries := &fakeQueries{
		listFunc: func(ctx context.Context, actor domain.Actor, filter workflow.ListFilter) ([]domain.Interview, int64, error) {
			gotFilter = filter
			return []domain.Interview{*sampleInterview()}, 7, nil
		},
	}
	app := newTestApp(t, &fakeWorkflow{}, queries)

	req := jsonRequest(t, http.MethodGet,
		"/v1/interviews?page=2&pageSize=5&overallStatus=scheduled", nil, "admin-1", "ADMIN")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if gotFilter.Page != 2 || gotFilter.PageSize != 5 {
		t.Fatalf("pagination = %d/%d, want 2/5", gotFilter.Page, gotFilter.PageSize)
	}
	if gotFilter.OverallStatus == nil || *gotFilter.OverallStatus != domain.OverallScheduled {
		t.Fatalf("status filter = %v, want scheduled", gotFilter.OverallStatus)
	}

	var body listInterviewsResponse
	decodeBody(t, resp, &body)
	if len(body.Data) != 1 || body.Meta.Total != 7 {
		t.Fatalf("body = %+v, want 1 row and total 7", body.Meta)
	}
}

func TestListInterviewsInvalidPagination(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &fakeWorkflow{}, &fakeQueries{})

	for _, target := range []string{
		"/v1/interviews?page=0",
		"/v1/interviews?pageSize=0",
		"/v1/interviews?pageSize=500",
		"/v1/interviews?overallStatus=bogus",
	} {
		req := jsonRequest(t, http.MethodGet, target, nil, "admin-1", "ADMIN")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test(%s) error = %v", target, err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("status for %s = %d, want 400", target, resp.StatusCode)
		}
	}
}

func TestGetInterviewEndpoint(t *testing.T) {
	t.Parallel()

	engine := &fakeWorkflow{
		getFunc: func(ctx context.Context, actor domain.Actor, id string) (*workflow.InterviewDetail, error) {
			return &workflow.InterviewDetail{
				Interview: *sampleInterview(),
				Candidate: &directory.User{ID: "cand-1", Name: "Jane Doe"},
				Company:   &directory.Company{ID: "comp-1", Name: "Acme"},
				Job:       &directory.Job{ID: "job-1", Title: "Backend Engineer"},
			}, nil
		},
	}
	app := newTestApp(t, engine, &fakeQueries{})

	req := jsonRequest(t, http.MethodGet, "/v1/interviews/int-1", nil, "cand-1", "CANDIDATE")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		ID            string `json:"id"`
		CandidateName string `json:"candidateName"`
		CompanyName   string `json:"companyName"`
		JobTitle      string `json:"jobTitle"`
	}
	decodeBody(t, resp, &body)
	if body.ID != "int-1" || body.CandidateName != "Jane Doe" || body.CompanyName != "Acme" || body.JobTitle != "Backend Engineer" {
		t.Fatalf("body = %+v, want the enriched detail", body)
	}
}
