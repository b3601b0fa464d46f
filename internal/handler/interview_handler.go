package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/workflow"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// WorkflowService is the transition surface the HTTP layer drives.
type WorkflowService interface {
	Create(ctx context.Context, actor domain.Actor, input workflow.CreateInput) (*domain.Interview, error)
	ApproveInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	RejectInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	AcceptInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	DeclineInterview(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	RecordOutcome(ctx context.Context, actor domain.Actor, id string, outcome domain.InterviewOutcome) (*domain.Interview, error)
	SubmitCompanyFeedback(ctx context.Context, actor domain.Actor, id string, feedback domain.CompanyFeedback) (*domain.Interview, error)
	ApproveFeedback(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	RejectFeedback(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error)
	SubmitCandidateFeedback(ctx context.Context, actor domain.Actor, id string, feedback domain.CandidateFeedback) (*domain.Interview, error)
	GetInterview(ctx context.Context, actor domain.Actor, id string) (*workflow.InterviewDetail, error)
}

// InterviewQueries is the listing surface.
type InterviewQueries interface {
	List(ctx context.Context, actor domain.Actor, filter workflow.ListFilter) ([]domain.Interview, int64, error)
}

type InterviewHandler struct {
	engine  WorkflowService
	queries InterviewQueries
}

func NewInterviewHandler(engine WorkflowService, queries InterviewQueries) (*InterviewHandler, error) {
	if engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if queries == nil {
		return nil, fmt.Errorf("interview queries are required")
	}
	return &InterviewHandler{engine: engine, queries: queries}, nil
}

func RegisterInterviewRoutes(router fiber.Router, engine WorkflowService, queries InterviewQueries) error {
	h, err := NewInterviewHandler(engine, queries)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/interviews", h.CreateInterview)
	v1.Get("/interviews", h.ListInterviews)
	v1.Get("/interviews/:id", h.GetInterview)
	v1.Post("/interviews/:id/approve", h.ApproveInterview)
	v1.Post("/interviews/:id/reject", h.RejectInterview)
	v1.Post("/interviews/:id/response", h.RespondToInterview)
	v1.Post("/interviews/:id/outcome", h.RecordOutcome)
	v1.Post("/interviews/:id/feedback", h.SubmitCompanyFeedback)
	v1.Post("/interviews/:id/feedback/approve", h.ApproveFeedback)
	v1.Post("/interviews/:id/feedback/reject", h.RejectFeedback)
	v1.Post("/interviews/:id/candidate-feedback", h.SubmitCandidateFeedback)

	return nil
}

type createInterviewRequest struct {
	CandidateID      string    `json:"candidateId"`
	JobID            *string   `json:"jobId,omitempty"`
	ApplicationID    *string   `json:"applicationId,omitempty"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ScheduledDate    time.Time `json:"scheduledDate"`
	DurationMinutes  int       `json:"durationMinutes"`
	Mode             string    `json:"mode"`
	Location         string    `json:"location,omitempty"`
	MeetingURL       string    `json:"meetingUrl,omitempty"`
	InterviewerName  string    `json:"interviewerName,omitempty"`
	InterviewerEmail string    `json:"interviewerEmail,omitempty"`
	InterviewerPhone string    `json:"interviewerPhone,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

type commentsRequest struct {
	Comments string `json:"comments"`
}

type respondRequest struct {
	Response string `json:"response"`
	Comments string `json:"comments"`
}

type outcomeRequest struct {
	Outcome string `json:"outcome"`
}

type companyFeedbackRequest struct {
	TechnicalScore     int    `json:"technicalScore"`
	CommunicationScore int    `json:"communicationScore"`
	ExperienceScore    int    `json:"experienceScore"`
	OverallScore       int    `json:"overallScore"`
	Comments           string `json:"comments"`
}

type candidateFeedbackRequest struct {
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
}

type companyFeedbackResponse struct {
	TechnicalScore     int       `json:"technicalScore"`
	CommunicationScore int       `json:"communicationScore"`
	ExperienceScore    int       `json:"experienceScore"`
	OverallScore       int       `json:"overallScore"`
	Comments           string    `json:"comments,omitempty"`
	SubmittedBy        string    `json:"submittedBy"`
	SubmittedAt        time.Time `json:"submittedAt"`
}

type candidateFeedbackResponse struct {
	Rating      int       `json:"rating"`
	Comments    string    `json:"comments,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type interviewResponse struct {
	ID            string  `json:"id"`
	CandidateID   string  `json:"candidateId"`
	CompanyID     string  `json:"companyId"`
	JobID         *string `json:"jobId,omitempty"`
	ApplicationID *string `json:"applicationId,omitempty"`

	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	ScheduledDate    time.Time `json:"scheduledDate"`
	DurationMinutes  int       `json:"durationMinutes"`
	Mode             string    `json:"mode"`
	Location         string    `json:"location,omitempty"`
	MeetingURL       string    `json:"meetingUrl,omitempty"`
	InterviewerName  string    `json:"interviewerName,omitempty"`
	InterviewerEmail string    `json:"interviewerEmail,omitempty"`
	Notes            string    `json:"notes,omitempty"`

	OverallStatus string `json:"overallStatus"`
	AdminStatus   string `json:"adminStatus"`
	AdminComments string `json:"adminComments,omitempty"`

	CandidateResponse string `json:"candidateResponse"`
	CandidateComments string `json:"candidateComments,omitempty"`

	Outcome *string `json:"outcome,omitempty"`

	FeedbackStatus    string                     `json:"feedbackStatus"`
	CompanyFeedback   *companyFeedbackResponse   `json:"companyFeedback,omitempty"`
	CandidateFeedback *candidateFeedbackResponse `json:"candidateFeedback,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type interviewDetailResponse struct {
	interviewResponse
	CandidateName string `json:"candidateName,omitempty"`
	CompanyName   string `json:"companyName,omitempty"`
	JobTitle      string `json:"jobTitle,omitempty"`
}

type listInterviewsResponse struct {
	Data []interviewResponse `json:"data"`
	Meta listMeta            `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *InterviewHandler) CreateInterview(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	var req createInterviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	mode, err := domain.ParseInterviewModeFromString(req.Mode)
	if err != nil {
		return toHTTPError(err)
	}

	interview, err := h.engine.Create(c.Context(), actor, workflow.CreateInput{
		CandidateID:      req.CandidateID,
		JobID:            req.JobID,
		ApplicationID:    req.ApplicationID,
		Title:            req.Title,
		Description:      req.Description,
		ScheduledDate:    req.ScheduledDate,
		DurationMinutes:  req.DurationMinutes,
		Mode:             mode,
		Location:         req.Location,
		MeetingURL:       req.MeetingURL,
		InterviewerName:  req.InterviewerName,
		InterviewerEmail: req.InterviewerEmail,
		InterviewerPhone: req.InterviewerPhone,
		Notes:            req.Notes,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toInterviewResponse(interview))
}

func (h *InterviewHandler) GetInterview(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	detail, err := h.engine.GetInterview(c.Context(), actor, strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	resp := interviewDetailResponse{interviewResponse: toInterviewResponse(&detail.Interview)}
	if detail.Candidate != nil {
		resp.CandidateName = detail.Candidate.Name
	}
	if detail.Company != nil {
		resp.CompanyName = detail.Company.Name
	}
	if detail.Job != nil {
		resp.JobTitle = detail.Job.Title
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *InterviewHandler) ListInterviews(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	filter, err := parseListFilter(c)
	if err != nil {
		return toHTTPError(err)
	}

	interviews, total, err := h.queries.List(c.Context(), actor, filter)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]interviewResponse, 0, len(interviews))
	for i := range interviews {
		data = append(data, toInterviewResponse(&interviews[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listInterviewsResponse{
		Data: data,
		Meta: listMeta{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Total:    total,
		},
	})
}

func (h *InterviewHandler) ApproveInterview(c *fiber.Ctx) error {
	return h.adminDecision(c, h.engine.ApproveInterview)
}

func (h *InterviewHandler) RejectInterview(c *fiber.Ctx) error {
	return h.adminDecision(c, h.engine.RejectInterview)
}

func (h *InterviewHandler) adminDecision(
	c *fiber.Ctx,
	apply func(ctx context.Context, actor domain.Actor, id, comments string) (*domain.Interview, error),
) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	var req commentsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	interview, err := apply(c.Context(), actor, strings.TrimSpace(c.Params("id")), req.Comments)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toInterviewResponse(interview))
}

func (h *InterviewHandler) RespondToInterview(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	var req respondRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := strings.TrimSpace(c.Params("id"))
	var interview *domain.Interview
	switch strings.ToUpper(strings.TrimSpace(req.Response)) {
	case domain.ResponseAccepted.String():
		interview, err = h.engine.AcceptInterview(c.Context(), actor, id, req.Comments)
	case domain.ResponseRejected.String():
		interview, err = h.engine.DeclineInterview(c.Context(), actor, id, req.Comments)
	default:
		return toHTTPError(fmt.Errorf("%w: response must be %s or %s",
			domain.ErrValidation, domain.ResponseAccepted, domain.ResponseRejected))
	}
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toInterviewResponse(interview))
}

func (h *InterviewHandler) RecordOutcome(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	var req outcomeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	outcome, err := domain.ParseInterviewOutcomeFromString(req.Outcome)
	if err != nil {
		return toHTTPError(err)
	}

	interview, err := h.engine.RecordOutcome(c.Context(), actor, strings.TrimSpace(c.Params("id")), outcome)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toInterviewResponse(interview))
}

func (h *InterviewHandler) SubmitCompanyFeedback(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	var req companyFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	interview, err := h.engine.SubmitCompanyFeedback(c.Context(), actor, strings.TrimSpace(c.Params("id")), domain.CompanyFeedback{
		TechnicalScore:     req.TechnicalScore,
		CommunicationScore: req.CommunicationScore,
		ExperienceScore:    req.ExperienceScore,
		OverallScore:       req.OverallScore,
		Comments:           strings.TrimSpace(req.Comments),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toInterviewResponse(interview))
}

func (h *InterviewHandler) ApproveFeedback(c *fiber.Ctx) error {
	return h.adminDecision(c, h.engine.ApproveFeedback)
}

func (h *InterviewHandler) RejectFeedback(c *fiber.Ctx) error {
	return h.adminDecision(c, h.engine.RejectFeedback)
}

func (h *InterviewHandler) SubmitCandidateFeedback(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	var req candidateFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	interview, err := h.engine.SubmitCandidateFeedback(c.Context(), actor, strings.TrimSpace(c.Params("id")), domain.CandidateFeedback{
		Rating:   req.Rating,
		Comments: strings.TrimSpace(req.Comments),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toInterviewResponse(interview))
}

func parseListFilter(c *fiber.Ctx) (workflow.ListFilter, error) {
	filter := workflow.ListFilter{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if filter.Page < 1 {
		return workflow.ListFilter{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if filter.PageSize < 1 || filter.PageSize > maxPageSize {
		return workflow.ListFilter{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if raw := strings.TrimSpace(c.Query("overallStatus")); raw != "" {
		status, err := domain.ParseOverallStatusFromString(raw)
		if err != nil {
			return workflow.ListFilter{}, err
		}
		filter.OverallStatus = &status
	}
	if raw := strings.TrimSpace(c.Query("adminStatus")); raw != "" {
		status := domain.AdminStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return workflow.ListFilter{}, fmt.Errorf("%w: invalid admin status %q", domain.ErrValidation, raw)
		}
		filter.AdminStatus = &status
	}
	if raw := strings.TrimSpace(c.Query("feedbackStatus")); raw != "" {
		status := domain.FeedbackStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return workflow.ListFilter{}, fmt.Errorf("%w: invalid feedback status %q", domain.ErrValidation, raw)
		}
		filter.FeedbackStatus = &status
	}
	if raw := strings.TrimSpace(c.Query("candidateId")); raw != "" {
		filter.CandidateID = &raw
	}
	if raw := strings.TrimSpace(c.Query("companyId")); raw != "" {
		filter.CompanyID = &raw
	}

	return filter, nil
}

func toInterviewResponse(interview *domain.Interview) interviewResponse {
	if interview == nil {
		return interviewResponse{}
	}

	resp := interviewResponse{
		ID:                interview.ID,
		CandidateID:       interview.CandidateID,
		CompanyID:         interview.CompanyID,
		JobID:             interview.JobID,
		ApplicationID:     interview.ApplicationID,
		Title:             interview.Title,
		Description:       interview.Description,
		ScheduledDate:     interview.ScheduledDate,
		DurationMinutes:   interview.DurationMinutes,
		Mode:              interview.Mode.String(),
		Location:          interview.Location,
		MeetingURL:        interview.MeetingURL,
		InterviewerName:   interview.InterviewerName,
		InterviewerEmail:  interview.InterviewerEmail,
		Notes:             interview.Notes,
		OverallStatus:     interview.OverallStatus.String(),
		AdminStatus:       interview.AdminStatus.String(),
		AdminComments:     interview.AdminComments,
		CandidateResponse: interview.CandidateResponse.String(),
		CandidateComments: interview.CandidateComments,
		FeedbackStatus:    interview.FeedbackStatus.String(),
		CreatedAt:         interview.CreatedAt,
		UpdatedAt:         interview.UpdatedAt,
	}

	if interview.Outcome != nil {
		outcome := interview.Outcome.String()
		resp.Outcome = &outcome
	}
	if interview.CompanyFeedback != nil {
		resp.CompanyFeedback = &companyFeedbackResponse{
			TechnicalScore:     interview.CompanyFeedback.TechnicalScore,
			CommunicationScore: interview.CompanyFeedback.CommunicationScore,
			ExperienceScore:    interview.CompanyFeedback.ExperienceScore,
			OverallScore:       interview.CompanyFeedback.OverallScore,
			Comments:           interview.CompanyFeedback.Comments,
			SubmittedBy:        interview.CompanyFeedback.SubmittedBy,
			SubmittedAt:        interview.CompanyFeedback.SubmittedAt,
		}
	}
	if interview.CandidateFeedback != nil {
		resp.CandidateFeedback = &candidateFeedbackResponse{
			Rating:      interview.CandidateFeedback.Rating,
			Comments:    interview.CandidateFeedback.Comments,
			SubmittedAt: interview.CandidateFeedback.SubmittedAt,
		}
	}

	return resp
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDuplicateActiveInterview):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
