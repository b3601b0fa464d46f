package repository

import (
	"context"
	"errors"

	"github.com/talentgrid/interview-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository reads the per-recipient opt-in matrix. The workflow
// core only ever writes the lazily-created default row; preference edits
// happen through the platform's own settings API.
type PreferenceRepository interface {
	Get(ctx context.Context, recipientID string, recipientType domain.RecipientType) (*domain.NotificationPreference, error)
	Save(ctx context.Context, pref *domain.NotificationPreference) error
}

type GormPreferenceRepo struct {
	db *gorm.DB
}

func NewGormPreferenceRepo(db *gorm.DB) *GormPreferenceRepo {
	return &GormPreferenceRepo{db: db}
}

func (r *GormPreferenceRepo) Get(
	ctx context.Context,
	recipientID string,
	recipientType domain.RecipientType,
) (*domain.NotificationPreference, error) {
	var model PreferenceModel
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND recipient_type = ?", recipientID, recipientType).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return preferenceModelToDomain(&model)
}

func (r *GormPreferenceRepo) Save(ctx context.Context, pref *domain.NotificationPreference) error {
	model, err := preferenceModelFromDomain(pref)
	if err != nil {
		return err
	}
	if model == nil {
		return domain.ErrValidation
	}

	// Lazy default creation can race with a concurrent dispatch; first
	// writer wins and the rows are identical anyway.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
}
