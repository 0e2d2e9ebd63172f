package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"buildfund/internal/model"
	"buildfund/internal/repository"
	"buildfund/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProjectRequest struct {
	Title                 string           `json:"title" binding:"required"`
	Description           string           `json:"description"`
	SiteAddress           string           `json:"site_address"`
	LoanAmountRequired    decimal.Decimal  `json:"loan_amount_required" binding:"required"`
	TermRequiredMonths    int              `json:"term_required_months" binding:"required"`
	GrossDevelopmentValue *decimal.Decimal `json:"gross_development_value"`
}

type UpdateProjectStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT PUBLISHED FUNDED ARCHIVED"`
}

type ProjectResponse struct {
	ID                    string  `json:"id"`
	BorrowerID            string  `json:"borrower_id"`
	BorrowerCompany       string  `json:"borrower_company,omitempty"`
	Title                 string  `json:"title"`
	Description           string  `json:"description"`
	SiteAddress           string  `json:"site_address"`
	LoanAmountRequired    string  `json:"loan_amount_required"`
	TermRequiredMonths    int     `json:"term_required_months"`
	GrossDevelopmentValue *string `json:"gross_development_value"`
	Status                string  `json:"status"`
	CreatedAt             string  `json:"created_at"`
}

// --- Interface ---

type ProjectService interface {
	Create(ctx context.Context, actorUserID string, req CreateProjectRequest) (ProjectResponse, error)
	Get(ctx context.Context, id string) (ProjectResponse, error)
	List(ctx context.Context, borrowerUserID string, page, limit int) ([]ProjectResponse, int64, error)
	UpdateStatus(ctx context.Context, id, actorUserID string, req UpdateProjectStatusRequest) (ProjectResponse, error)
}

type projectService struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
	audit    repository.AuditRepository
	txm      repository.TransactionManager
	log      *zap.Logger
}

func NewProjectService(
	projects repository.ProjectRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	log *zap.Logger,
) ProjectService {
	if log == nil {
		log = zap.NewNop()
	}
	return &projectService{
		projects: projects,
		users:    users,
		audit:    audit,
		txm:      txm,
		log:      log,
	}
}

// --- Implementation ---

func (s *projectService) Create(ctx context.Context, actorUserID string, req CreateProjectRequest) (ProjectResponse, error) {
	actorID, err := uuid.Parse(actorUserID)
	if err != nil {
		return ProjectResponse{}, apperror.NewAuthorization("authentication required")
	}

	borrower, err := s.users.GetBorrowerProfile(ctx, actorUserID)
	if err != nil {
		return ProjectResponse{}, fmt.Errorf("failed to load borrower profile: %w", err)
	}
	if borrower == nil {
		return ProjectResponse{}, apperror.NewAuthorization("a borrower profile is required to create projects")
	}

	verr := apperror.NewValidation()
	if !req.LoanAmountRequired.IsPositive() {
		verr.Add("loan_amount_required", "must be greater than zero")
	}
	if req.LoanAmountRequired.GreaterThan(loanAmountMax) {
		verr.Add("loan_amount_required", fmt.Sprintf("must not exceed %s", loanAmountMax.String()))
	}
	if req.TermRequiredMonths <= 0 {
		verr.Add("term_required_months", "must be greater than zero")
	}
	if req.GrossDevelopmentValue != nil && req.GrossDevelopmentValue.IsNegative() {
		verr.Add("gross_development_value", "must not be negative")
	}
	if verr.HasErrors() {
		return ProjectResponse{}, verr
	}

	project := model.Project{
		BorrowerID:         borrower.ID,
		Title:              req.Title,
		Description:        req.Description,
		SiteAddress:        req.SiteAddress,
		LoanAmountRequired: req.LoanAmountRequired,
		TermRequiredMonths: req.TermRequiredMonths,
		Status:             model.ProjectStatusDraft,
	}
	if req.GrossDevelopmentValue != nil {
		project.GrossDevelopmentValue = *req.GrossDevelopmentValue
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.projects.Create(txCtx, &project); createErr != nil {
			return fmt.Errorf("failed to create project: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"loan_amount_required": project.LoanAmountRequired.StringFixed(2),
			"term_required_months": project.TermRequiredMonths,
		})
		entry := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateProject,
			EntityID:   project.ID.String(),
			EntityName: project.Title,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, &entry)
	})
	if err != nil {
		return ProjectResponse{}, err
	}

	s.log.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("borrower_id", borrower.ID.String()),
	)
	project.Borrower = borrower
	return toProjectResponse(project), nil
}

func (s *projectService) Get(ctx context.Context, id string) (ProjectResponse, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProjectResponse{}, apperror.NewNotFound("project", id)
		}
		return ProjectResponse{}, fmt.Errorf("failed to load project: %w", err)
	}
	return toProjectResponse(*project), nil
}

func (s *projectService) List(ctx context.Context, borrowerUserID string, page, limit int) ([]ProjectResponse, int64, error) {
	borrowerID := ""
	if borrowerUserID != "" {
		borrower, err := s.users.GetBorrowerProfile(ctx, borrowerUserID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load borrower profile: %w", err)
		}
		if borrower == nil {
			return []ProjectResponse{}, 0, nil
		}
		borrowerID = borrower.ID.String()
	}

	projects, total, err := s.projects.List(ctx, borrowerID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	result := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		result = append(result, toProjectResponse(project))
	}
	return result, total, nil
}

var projectStatusTargets = map[string][]string{
	model.ProjectStatusPublished: {model.ProjectStatusDraft},
	model.ProjectStatusFunded:    {model.ProjectStatusPublished},
	model.ProjectStatusArchived:  {model.ProjectStatusDraft, model.ProjectStatusPublished, model.ProjectStatusFunded},
	model.ProjectStatusDraft:     {model.ProjectStatusPublished},
}

func (s *projectService) UpdateStatus(ctx context.Context, id, actorUserID string, req UpdateProjectStatusRequest) (ProjectResponse, error) {
	actorID, err := uuid.Parse(actorUserID)
	if err != nil {
		return ProjectResponse{}, apperror.NewAuthorization("authentication required")
	}

	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProjectResponse{}, apperror.NewNotFound("project", id)
		}
		return ProjectResponse{}, fmt.Errorf("failed to load project: %w", err)
	}

	borrower, err := s.users.GetBorrowerProfile(ctx, actorUserID)
	if err != nil {
		return ProjectResponse{}, fmt.Errorf("failed to load borrower profile: %w", err)
	}
	if borrower == nil || borrower.ID != project.BorrowerID {
		return ProjectResponse{}, apperror.NewAuthorization("only the owning borrower may change project status")
	}

	allowed := false
	for _, from := range projectStatusTargets[req.Status] {
		if project.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return ProjectResponse{}, apperror.NewValidation().
			Add("status", fmt.Sprintf("cannot move from %s to %s", project.Status, req.Status))
	}

	previous := project.Status
	project.Status = req.Status

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.projects.Update(txCtx, project); updateErr != nil {
			return fmt.Errorf("failed to update project: %w", updateErr)
		}

		details, _ := json.Marshal(map[string]string{"from": previous, "to": req.Status})
		entry := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionUpdateProject,
			EntityID:   project.ID.String(),
			EntityName: project.Title,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, &entry)
	})
	if err != nil {
		return ProjectResponse{}, err
	}

	return toProjectResponse(*project), nil
}

// --- Helpers ---

func toProjectResponse(project model.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:                 project.ID.String(),
		BorrowerID:         project.BorrowerID.String(),
		Title:              project.Title,
		Description:        project.Description,
		SiteAddress:        project.SiteAddress,
		LoanAmountRequired: project.LoanAmountRequired.StringFixed(2),
		TermRequiredMonths: project.TermRequiredMonths,
		Status:             project.Status,
		CreatedAt:          project.CreatedAt.Format(time.RFC3339),
	}
	if !project.GrossDevelopmentValue.IsZero() {
		gdv := project.GrossDevelopmentValue.StringFixed(2)
		resp.GrossDevelopmentValue = &gdv
	}
	if project.Borrower != nil {
		resp.BorrowerCompany = project.Borrower.CompanyName
	}
	return resp
}
