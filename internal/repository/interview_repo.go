package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/talentgrid/interview-engine/internal/domain"
	"gorm.io/gorm"
)

// InterviewFilter is the conjunctive filter set for dashboard listings.
type InterviewFilter struct {
	CandidateID    *string
	CompanyID      *string
	AdminStatus    *domain.AdminStatus
	OverallStatus  *domain.OverallStatus
	FeedbackStatus *domain.FeedbackStatus
	Page           int
	PageSize       int
}

// InterviewRepository owns the interview lifecycle writes. Every transition is
// a single conditional UPDATE against the expected pre-state, so two
// concurrent requests for the same record resolve to one winner and one
// invalid-transition error.
type InterviewRepository interface {
	Create(ctx context.Context, interview *domain.Interview) error
	GetByID(ctx context.Context, id string) (*domain.Interview, error)
	List(ctx context.Context, filter InterviewFilter) ([]domain.Interview, int64, error)

	ApplyAdminDecision(ctx context.Context, id string, decision domain.AdminStatus, reviewerID, comments string, at time.Time) (*domain.Interview, error)
	ApplyCandidateResponse(ctx context.Context, id string, response domain.CandidateResponse, comments string, at time.Time) (*domain.Interview, error)
	RecordOutcome(ctx context.Context, id string, outcome domain.InterviewOutcome, at time.Time) (*domain.Interview, error)
	SubmitCompanyFeedback(ctx context.Context, id string, feedback domain.CompanyFeedback) (*domain.Interview, error)
	ApplyFeedbackDecision(ctx context.Context, id string, decision domain.FeedbackStatus, reviewerID, comments string, at time.Time) (*domain.Interview, error)
	SubmitCandidateFeedback(ctx context.Context, id string, feedback domain.CandidateFeedback) (*domain.Interview, error)

	ListDueForReminder(ctx context.Context, from, to time.Time, limit int) ([]domain.Interview, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
}

type GormInterviewRepo struct {
	db *gorm.DB
}

func NewGormInterviewRepo(db *gorm.DB) *GormInterviewRepo {
	return &GormInterviewRepo{db: db}
}

func (r *GormInterviewRepo) Create(ctx context.Context, interview *domain.Interview) error {
	model := interviewModelFromDomain(interview)
	if model == nil {
		return domain.ErrValidation
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if model.ApplicationID != nil {
			var count int64
			err := tx.Model(&InterviewModel{}).
				Where("application_id = ? AND overall_status IN ?", *model.ApplicationID, domain.ActiveOverallStatuses()).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return domain.ErrDuplicateActiveInterview
			}
		}
		return tx.Create(model).Error
	})
	if err != nil {
		// The partial unique index backs up the in-transaction check.
		if isUniqueViolationError(err) {
			return domain.ErrDuplicateActiveInterview
		}
		return err
	}

	*interview = *interviewModelToDomain(model)
	return nil
}

func (r *GormInterviewRepo) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	var model InterviewModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return interviewModelToDomain(&model), nil
}

func (r *GormInterviewRepo) List(ctx context.Context, filter InterviewFilter) ([]domain.Interview, int64, error) {
	query := r.db.WithContext(ctx).Model(&InterviewModel{})

	if filter.CandidateID != nil {
		query = query.Where("candidate_id = ?", *filter.CandidateID)
	}
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.AdminStatus != nil {
		query = query.Where("admin_status = ?", *filter.AdminStatus)
	}
	if filter.OverallStatus != nil {
		query = query.Where("overall_status = ?", *filter.OverallStatus)
	}
	if filter.FeedbackStatus != nil {
		query = query.Where("feedback_status = ?", *filter.FeedbackStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(filter.Page, 1)
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	pageSize = min(pageSize, 100)

	var models []InterviewModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	interviews := make([]domain.Interview, 0, len(models))
	for i := range models {
		interviews = append(interviews, *interviewModelToDomain(&models[i]))
	}

	return interviews, total, nil
}

func (r *GormInterviewRepo) ApplyAdminDecision(
	ctx context.Context,
	id string,
	decision domain.AdminStatus,
	reviewerID, comments string,
	at time.Time,
) (*domain.Interview, error) {
	overall := domain.ResolveOverallStatus(decision, domain.ResponsePending, nil)
	transition := domain.TransitionAdminApprove
	if decision == domain.AdminRejected {
		transition = domain.TransitionAdminReject
	}

	result := r.db.WithContext(ctx).
		Model(&InterviewModel{}).
		Where("id = ? AND admin_status = ?", id, domain.AdminPending).
		Updates(map[string]any{
			"admin_status":      decision,
			"admin_comments":    comments,
			"admin_approved_by": reviewerID,
			"admin_approved_at": at,
			"overall_status":    overall,
		})

	return r.afterGuardedUpdate(ctx, id, result, transition)
}

func (r *GormInterviewRepo) ApplyCandidateResponse(
	ctx context.Context,
	id string,
	response domain.CandidateResponse,
	comments string,
	at time.Time,
) (*domain.Interview, error) {
	overall := domain.ResolveOverallStatus(domain.AdminApproved, response, nil)
	transition := domain.TransitionCandidateAccept
	if response == domain.ResponseRejected {
		transition = domain.TransitionCandidateReject
	}

	result := r.db.WithContext(ctx).
		Model(&InterviewModel{}).
		Where("id = ? AND admin_status = ? AND candidate_response = ?",
			id, domain.AdminApproved, domain.ResponsePending).
		Updates(map[string]any{
			"candidate_response":     response,
			"candidate_comments":     comments,
			"candidate_responded_at": at,
			"overall_status":         overall,
		})

	return r.afterGuardedUpdate(ctx, id, result, transition)
}

func (r *GormInterviewRepo) RecordOutcome(
	ctx context.Context,
	id string,
	outcome domain.InterviewOutcome,
	at time.Time,
) (*domain.Interview, error) {
	overall := domain.ResolveOverallStatus(domain.AdminApproved, domain.ResponseAccepted, &outcome)

	result := r.db.WithContext(ctx).
		Model(&InterviewModel{}).
		Where("id = ? AND overall_status = ? AND outcome IS NULL", id, domain.OverallConfirmed).
		Updates(map[string]any{
			"outcome":        outcome,
			"overall_status": overall,
		})

	return r.afterGuardedUpdate(ctx, id, result, domain.TransitionRecordOutcome)
}

func (r *GormInterviewRepo) SubmitCompanyFeedback(
	ctx context.Context,
	id string,
	feedback domain.CompanyFeedback,
) (*domain.Interview, error) {
	result := r.db.WithContext(ctx).
		Model(&InterviewModel{}).
		Where("id = ? AND overall_status = ? AND feedback_submitted_at IS NULL", id, domain.OverallCompleted).
		Updates(map[string]any{
			"feedback_technical_score":     feedback.TechnicalScore,
			"feedback_communication_score": feedback.CommunicationScore,
			"feedback_experience_score":    feedback.ExperienceScore,
			"feedback_overall_score":       feedback.OverallScore,
			"feedback_comments":            feedback.Comments,
			"feedback_submitted_by":        feedback.SubmittedBy,
			"feedback_submitted_at":        feedback.SubmittedAt,
			"feedback_status":              domain.FeedbackPending,
		})

	return r.afterGuardedUpdate(ctx, id, result, domain.TransitionSubmitCompanyFeedback)
}

func (r *GormInterviewRepo) ApplyFeedbackDecision(
	ctx context.Context,
	id string,
	decision domain.FeedbackStatus,
	reviewerID, comments string,
	at time.Time,
) (*domain.Interview, error) {
	transition := domain.TransitionApproveFeedback
	if decision == domain.FeedbackRejected {
		transition = domain.TransitionRejectFeedback
	}

	result := r.db.WithContext(ctx).
		Model(&InterviewModel{}).
		Where("id = ? AND feedback_status = ? AND feedback_submitted_at IS NOT NULL",
			id, domain.FeedbackPending).
		Updates(map[string]any{
			"feedback_status":         decision,
			"feedback_approved_by":    reviewerID,
			"feedback_approved_at":    at,
			"feedback_admin_comments": comments,
		})

	return r.afterGuardedUpdate(ctx, id, result, transition)
}

func (r *GormInterviewRepo) SubmitCandidateFeedback(
	ctx context.Context,
	id string,
	feedback domain.CandidateFeedback,
) (*domain.Interview, error) {
	result := r.db.WithContext(ctx).
		Model(&InterviewModel{}).
		Where("id = ? AND candidate_rating IS NULL", id).
		Updates(map[string]any{
			"candidate_rating":                feedback.Rating,
			"candidate_feedback_comments":     feedback.Comments,
			"candidate_feedback_submitted_at": feedback.SubmittedAt,
		})

	return r.afterGuardedUpdate(ctx, id, result, domain.TransitionSubmitCandidateFeedback)
}

func (r *GormInterviewRepo) ListDueForReminder(ctx context.Context, from, to time.Time, limit int) ([]domain.Interview, error) {
	var models []InterviewModel
	err := r.db.WithContext(ctx).
		Where("overall_status = ? AND reminder_sent_at IS NULL AND scheduled_date BETWEEN ? AND ?",
			domain.OverallConfirmed, from, to).
		Order("scheduled_date ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	interviews := make([]domain.Interview, 0, len(models))
	for i := range models {
		interviews = append(interviews, *interviewModelToDomain(&models[i]))
	}
	return interviews, nil
}

func (r *GormInterviewRepo) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&InterviewModel{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// afterGuardedUpdate resolves a zero-row conditional update into NotFound or
// an invalid-transition error carrying the state that rejected the guard.
func (r *GormInterviewRepo) afterGuardedUpdate(
	ctx context.Context,
	id string,
	result *gorm.DB,
	transition domain.Transition,
) (*domain.Interview, error) {
	if result.Error != nil {
		return nil, result.Error
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, domain.NewInvalidTransition(transition, current.OverallStatus.String())
	}
	return current, nil
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
