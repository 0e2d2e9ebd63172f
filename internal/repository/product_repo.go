package repository

import (
	"context"

	"buildfund/internal/model"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, lenderID string, activeOnly bool, page, limit int) ([]model.Product, int64, error)
	Update(ctx context.Context, product *model.Product) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Lender").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, lenderID string, activeOnly bool, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db)
	base := db.Model(&model.Product{})
	if lenderID != "" {
		base = base.Where("lender_id = ?", lenderID)
	}
	if activeOnly {
		base = base.Where("active = true")
	}
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Lender").Order("created_at DESC")
	if lenderID != "" {
		fetch = fetch.Where("lender_id = ?", lenderID)
	}
	if activeOnly {
		fetch = fetch.Where("active = true")
	}
	offset := (page - 1) * limit
	if err := fetch.Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}
