package repository

import (
	"context"
	"errors"

	"buildfund/internal/model"

	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	// GetMeta loads the document row without the ciphertext column.
	GetMeta(ctx context.Context, id string) (*model.Document, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]model.Document, int64, error)

	ListDocumentTypes(ctx context.Context) ([]model.DocumentType, error)
	// GetDocumentType returns (nil, nil) for an unknown id.
	GetDocumentType(ctx context.Context, id int64) (*model.DocumentType, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, document *model.Document) error {
	return GetDB(ctx, r.db).Create(document).Error
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var document model.Document
	if err := GetDB(ctx, r.db).Preload("DocumentType").First(&document, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &document, nil
}

func (r *documentRepository) GetMeta(ctx context.Context, id string) (*model.Document, error) {
	var document model.Document
	err := GetDB(ctx, r.db).
		Omit("ciphertext").
		Preload("DocumentType").
		First(&document, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &document, nil
}

func (r *documentRepository) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]model.Document, int64, error) {
	var documents []model.Document
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Document{}).Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Omit("ciphertext").
		Preload("DocumentType").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&documents).Error
	if err != nil {
		return nil, 0, err
	}

	return documents, total, nil
}

func (r *documentRepository) ListDocumentTypes(ctx context.Context) ([]model.DocumentType, error) {
	var types []model.DocumentType
	if err := GetDB(ctx, r.db).Order("name").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *documentRepository) GetDocumentType(ctx context.Context, id int64) (*model.DocumentType, error) {
	var docType model.DocumentType
	err := GetDB(ctx, r.db).First(&docType, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &docType, nil
}
