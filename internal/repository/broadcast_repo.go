package repository

import (
	"context"
	"errors"

	"github.com/talentgrid/interview-engine/internal/domain"
	"gorm.io/gorm"
)

// BroadcastRepository tracks role fan-out groups.
type BroadcastRepository interface {
	Create(ctx context.Context, broadcast *domain.Broadcast) error
	GetByID(ctx context.Context, id string) (*domain.Broadcast, error)
	UpdateStatus(ctx context.Context, id string, status domain.BroadcastStatus) error
}

type GormBroadcastRepo struct {
	db *gorm.DB
}

func NewGormBroadcastRepo(db *gorm.DB) *GormBroadcastRepo {
	return &GormBroadcastRepo{db: db}
}

func (r *GormBroadcastRepo) Create(ctx context.Context, broadcast *domain.Broadcast) error {
	model := broadcastModelFromDomain(broadcast)
	if model == nil {
		return domain.ErrValidation
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*broadcast = *broadcastModelToDomain(model)
	return nil
}

func (r *GormBroadcastRepo) GetByID(ctx context.Context, id string) (*domain.Broadcast, error) {
	var model BroadcastModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return broadcastModelToDomain(&model), nil
}

func (r *GormBroadcastRepo) UpdateStatus(ctx context.Context, id string, status domain.BroadcastStatus) error {
	result := r.db.WithContext(ctx).
		Model(&BroadcastModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
