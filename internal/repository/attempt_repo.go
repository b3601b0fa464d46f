package repository

import (
	"context"

	"github.com/talentgrid/interview-engine/internal/domain"
	"gorm.io/gorm"
)

// AttemptRepository appends delivery-attempt audit records.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *domain.DeliveryAttempt) error
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) Create(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	model := attemptModelFromDomain(attempt)
	if model == nil {
		return domain.ErrValidation
	}
	return r.db.WithContext(ctx).Create(model).Error
}
