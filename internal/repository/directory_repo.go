package repository

import (
	"context"
	"errors"

	"github.com/talentgrid/interview-engine/internal/directory"
	"github.com/talentgrid/interview-engine/internal/domain"
	"gorm.io/gorm"
)

// GormDirectory reads the platform's user/company/job/application tables.
// It satisfies directory.Directory; the workflow core never writes through it.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

var _ directory.Directory = (*GormDirectory)(nil)

func (r *GormDirectory) FindUser(ctx context.Context, id string) (*directory.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).
		Preload("DeviceSubscriptions").
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userModelToDirectory(&model), nil
}

func (r *GormDirectory) ListByRole(ctx context.Context, role domain.Role) ([]directory.User, error) {
	var models []UserModel
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	users := make([]directory.User, 0, len(models))
	for i := range models {
		users = append(users, *userModelToDirectory(&models[i]))
	}
	return users, nil
}

func (r *GormDirectory) FindCompany(ctx context.Context, id string) (*directory.Company, error) {
	var model CompanyModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &directory.Company{ID: model.ID, Name: model.Name, Email: model.Email}, nil
}

func (r *GormDirectory) FindJob(ctx context.Context, id string) (*directory.Job, error) {
	var model JobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &directory.Job{ID: model.ID, Title: model.Title}, nil
}

func (r *GormDirectory) FindApplication(ctx context.Context, id string) (*directory.Application, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &directory.Application{
		ID:          model.ID,
		CandidateID: model.CandidateID,
		JobID:       model.JobID,
		Status:      model.Status,
	}, nil
}
