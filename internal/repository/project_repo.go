package repository

import (
	"context"

	"buildfund/internal/model"

	"gorm.io/gorm"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context, borrowerID string, page, limit int) ([]model.Project, int64, error)
	Update(ctx context.Context, project *model.Project) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Create(project).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	if err := GetDB(ctx, r.db).Preload("Borrower").First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, borrowerID string, page, limit int) ([]model.Project, int64, error) {
	var projects []model.Project
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Project{})
	if borrowerID != "" {
		query = query.Where("borrower_id = ?", borrowerID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Borrower").Order("created_at DESC")
	if borrowerID != "" {
		fetch = fetch.Where("borrower_id = ?", borrowerID)
	}
	offset := (page - 1) * limit
	if err := fetch.Offset(offset).Limit(limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Save(project).Error
}
