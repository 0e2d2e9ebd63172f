package repository

import (
	"context"

	"buildfund/internal/model"

	"gorm.io/gorm"
)

type InformationRequestRepository interface {
	// Create persists the request and its items in one write; GORM cascades
	// the Items association so there is never a partial item set.
	Create(ctx context.Context, request *model.InformationRequest) error
	GetByID(ctx context.Context, id string) (*model.InformationRequest, error)
	ListByApplication(ctx context.Context, applicationID string) ([]model.InformationRequest, error)
	GetItem(ctx context.Context, itemID string) (*model.InformationRequestItem, error)
	UpdateItem(ctx context.Context, item *model.InformationRequestItem) error
}

type informationRequestRepository struct {
	db *gorm.DB
}

func NewInformationRequestRepository(db *gorm.DB) InformationRequestRepository {
	return &informationRequestRepository{db: db}
}

func (r *informationRequestRepository) Create(ctx context.Context, request *model.InformationRequest) error {
	return GetDB(ctx, r.db).Create(request).Error
}

func (r *informationRequestRepository) GetByID(ctx context.Context, id string) (*model.InformationRequest, error) {
	var request model.InformationRequest
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("information_request_items.created_at ASC")
		}).
		Preload("Items.DocumentType").
		Preload("Application").
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *informationRequestRepository) ListByApplication(ctx context.Context, applicationID string) ([]model.InformationRequest, error) {
	var requests []model.InformationRequest
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("information_request_items.created_at ASC")
		}).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *informationRequestRepository) GetItem(ctx context.Context, itemID string) (*model.InformationRequestItem, error) {
	var item model.InformationRequestItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *informationRequestRepository) UpdateItem(ctx context.Context, item *model.InformationRequestItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}
