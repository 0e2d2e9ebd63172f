package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// LenderPipeline is one row of the lender pipeline ranking.
type LenderPipeline struct {
	LenderID        string `json:"lender_id"`
	InstitutionName string `json:"institution_name"`
	Applications    int64  `json:"applications"`
	TotalProposed   string `json:"total_proposed"`
}

type StatisticsRepository interface {
	// GetLenderPipeline ranks lenders by application volume for one status.
	GetLenderPipeline(ctx context.Context, status string, limit int) ([]LenderPipeline, error)
	// GetProposedTotal sums proposed loan amounts across one status.
	GetProposedTotal(ctx context.Context, status string) (string, int64, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetLenderPipeline(ctx context.Context, status string, limit int) ([]LenderPipeline, error) {
	var rankings []LenderPipeline
	err := GetDB(ctx, r.db).Table("applications").
		Select("lender_profiles.id as lender_id, lender_profiles.institution_name, COUNT(applications.id) as applications, COALESCE(CAST(SUM(applications.proposed_loan_amount) AS TEXT), '0') as total_proposed").
		Joins("JOIN lender_profiles ON lender_profiles.id = applications.lender_id").
		Where("applications.status = ?", status).
		Group("lender_profiles.id, lender_profiles.institution_name").
		Order("applications DESC").
		Limit(limit).
		Scan(&rankings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query lender pipeline: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) GetProposedTotal(ctx context.Context, status string) (string, int64, error) {
	var result struct {
		Value string
		Count int64
	}
	err := GetDB(ctx, r.db).Table("applications").
		Select("COALESCE(CAST(SUM(proposed_loan_amount) AS TEXT), '0') as value, COUNT(*) as count").
		Where("status = ?", status).
		Scan(&result).Error
	if err != nil {
		return "", 0, fmt.Errorf("failed to query proposed totals: %w", err)
	}
	return result.Value, result.Count, nil
}
