package repository

import (
	"context"
	"errors"

	"buildfund/internal/model"

	"gorm.io/gorm"
)

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	ProjectID   string
	LenderID    string
	Status      string
	InitiatedBy string
	Page        int
	Limit       int
}

type ApplicationRepository interface {
	Create(ctx context.Context, application *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	// GetDetailed preloads project, borrower, lender and product for the
	// full detail projection.
	GetDetailed(ctx context.Context, id string) (*model.Application, error)
	// FindByProjectAndLender returns (nil, nil) when no application exists
	// for the pair.
	FindByProjectAndLender(ctx context.Context, projectID, lenderID string) (*model.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]model.Application, int64, error)
	Update(ctx context.Context, application *model.Application) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, application *model.Application) error {
	return GetDB(ctx, r.db).Create(application).Error
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*model.Application, error) {
	var application model.Application
	if err := GetDB(ctx, r.db).First(&application, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *applicationRepository) GetDetailed(ctx context.Context, id string) (*model.Application, error) {
	var application model.Application
	err := GetDB(ctx, r.db).
		Preload("Project").
		Preload("Project.Borrower").
		Preload("Lender").
		Preload("Product").
		First(&application, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *applicationRepository) FindByProjectAndLender(ctx context.Context, projectID, lenderID string) (*model.Application, error) {
	var application model.Application
	err := GetDB(ctx, r.db).
		First(&application, "project_id = ? AND lender_id = ?", projectID, lenderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]model.Application, int64, error) {
	var applications []model.Application
	var total int64

	db := GetDB(ctx, r.db)
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.ProjectID != "" {
			q = q.Where("project_id = ?", filter.ProjectID)
		}
		if filter.LenderID != "" {
			q = q.Where("lender_id = ?", filter.LenderID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.InitiatedBy != "" {
			q = q.Where("initiated_by = ?", filter.InitiatedBy)
		}
		return q
	}

	if err := applyFilter(db.Model(&model.Application{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	err := applyFilter(db.Preload("Project").Preload("Lender").Preload("Product")).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&applications).Error
	if err != nil {
		return nil, 0, err
	}

	return applications, total, nil
}

func (r *applicationRepository) Update(ctx context.Context, application *model.Application) error {
	return GetDB(ctx, r.db).Save(application).Error
}

func (r *applicationRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := GetDB(ctx, r.db).Model(&model.Application{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
