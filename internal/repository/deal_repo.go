package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buildfund/internal/model"

	"gorm.io/gorm"
)

type DealRepository interface {
	Create(ctx context.Context, deal *model.Deal) error
	GetByID(ctx context.Context, id string) (*model.Deal, error)
	// GetByApplicationID returns (nil, nil) when the application has no deal.
	GetByApplicationID(ctx context.Context, applicationID string) (*model.Deal, error)
	List(ctx context.Context, page, limit int) ([]model.Deal, int64, error)
	// NextReferenceCode issues the next BF-YYYYMMDD-NNNNN code. Must be
	// called inside a transaction; a pg advisory lock serializes concurrent
	// issuers for the day's prefix.
	NextReferenceCode(ctx context.Context) (string, error)

	CreateEnquiry(ctx context.Context, enquiry *model.ProviderEnquiry) error
	ListEnquiriesByDeal(ctx context.Context, dealID string) ([]model.ProviderEnquiry, error)
	GetEnquiry(ctx context.Context, id string) (*model.ProviderEnquiry, error)
	UpdateEnquiry(ctx context.Context, enquiry *model.ProviderEnquiry) error
	ListActiveFirms(ctx context.Context) ([]model.ConsultantFirm, error)
}

type dealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

func (r *dealRepository) Create(ctx context.Context, deal *model.Deal) error {
	return GetDB(ctx, r.db).Create(deal).Error
}

func (r *dealRepository) GetByID(ctx context.Context, id string) (*model.Deal, error) {
	var deal model.Deal
	err := GetDB(ctx, r.db).
		Preload("Application").
		Preload("Application.Project").
		Preload("Application.Lender").
		First(&deal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) GetByApplicationID(ctx context.Context, applicationID string) (*model.Deal, error) {
	var deal model.Deal
	err := GetDB(ctx, r.db).First(&deal, "application_id = ?", applicationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) List(ctx context.Context, page, limit int) ([]model.Deal, int64, error) {
	var deals []model.Deal
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Deal{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Preload("Application").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&deals).Error
	if err != nil {
		return nil, 0, err
	}

	return deals, total, nil
}

func (r *dealRepository) NextReferenceCode(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)

	today := time.Now().Format("20060102")
	prefix := "BF-" + today + "-"

	// Advisory lock prevents concurrent duplicate reference codes
	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Deal{}).
		Where("reference_code LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (r *dealRepository) CreateEnquiry(ctx context.Context, enquiry *model.ProviderEnquiry) error {
	return GetDB(ctx, r.db).Create(enquiry).Error
}

func (r *dealRepository) ListEnquiriesByDeal(ctx context.Context, dealID string) ([]model.ProviderEnquiry, error) {
	var enquiries []model.ProviderEnquiry
	err := GetDB(ctx, r.db).
		Preload("Firm").
		Where("deal_id = ?", dealID).
		Order("created_at ASC").
		Find(&enquiries).Error
	if err != nil {
		return nil, err
	}
	return enquiries, nil
}

func (r *dealRepository) GetEnquiry(ctx context.Context, id string) (*model.ProviderEnquiry, error) {
	var enquiry model.ProviderEnquiry
	if err := GetDB(ctx, r.db).Preload("Firm").First(&enquiry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &enquiry, nil
}

func (r *dealRepository) UpdateEnquiry(ctx context.Context, enquiry *model.ProviderEnquiry) error {
	return GetDB(ctx, r.db).Save(enquiry).Error
}

func (r *dealRepository) ListActiveFirms(ctx context.Context) ([]model.ConsultantFirm, error) {
	var firms []model.ConsultantFirm
	err := GetDB(ctx, r.db).
		Where("active = true").
		Order("discipline, name").
		Find(&firms).Error
	if err != nil {
		return nil, err
	}
	return firms, nil
}
