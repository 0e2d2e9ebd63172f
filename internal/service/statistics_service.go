package service

import (
	"context"
	"fmt"

	"buildfund/internal/model"
	"buildfund/internal/repository"
)

// --- DTOs ---

type PipelineSummary struct {
	ApplicationsByStatus map[string]int64            `json:"applications_by_status"`
	PendingTotal         string                      `json:"pending_total"`
	PendingCount         int64                       `json:"pending_count"`
	AcceptedTotal        string                      `json:"accepted_total"`
	AcceptedCount        int64                       `json:"accepted_count"`
	TopLenders           []repository.LenderPipeline `json:"top_lenders"`
}

// --- Interface ---

type StatisticsService interface {
	// GetPipelineSummary aggregates application volume and proposed totals
	// across the marketplace, with a lender ranking for the given status.
	GetPipelineSummary(ctx context.Context, rankStatus string, rankLimit int) (PipelineSummary, error)
}

type statisticsService struct {
	stats repository.StatisticsRepository
	apps  repository.ApplicationRepository
}

func NewStatisticsService(stats repository.StatisticsRepository, apps repository.ApplicationRepository) StatisticsService {
	return &statisticsService{stats: stats, apps: apps}
}

// --- Implementation ---

func (s *statisticsService) GetPipelineSummary(ctx context.Context, rankStatus string, rankLimit int) (PipelineSummary, error) {
	if rankStatus == "" {
		rankStatus = model.ApplicationStatusPending
	}
	if rankLimit <= 0 || rankLimit > 50 {
		rankLimit = 10
	}

	byStatus, err := s.apps.CountByStatus(ctx)
	if err != nil {
		return PipelineSummary{}, fmt.Errorf("failed to count applications: %w", err)
	}

	pendingTotal, pendingCount, err := s.stats.GetProposedTotal(ctx, model.ApplicationStatusPending)
	if err != nil {
		return PipelineSummary{}, err
	}
	acceptedTotal, acceptedCount, err := s.stats.GetProposedTotal(ctx, model.ApplicationStatusAccepted)
	if err != nil {
		return PipelineSummary{}, err
	}

	topLenders, err := s.stats.GetLenderPipeline(ctx, rankStatus, rankLimit)
	if err != nil {
		return PipelineSummary{}, err
	}

	return PipelineSummary{
		ApplicationsByStatus: byStatus,
		PendingTotal:         pendingTotal,
		PendingCount:         pendingCount,
		AcceptedTotal:        acceptedTotal,
		AcceptedCount:        acceptedCount,
		TopLenders:           topLenders,
	}, nil
}
