package service

import (
	"context"
	"fmt"
	"time"

	"buildfund/internal/model"
	"buildfund/internal/repository"
)

// --- Projection DTOs ---

type ProjectSummary struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	SiteAddress        string `json:"site_address"`
	LoanAmountRequired string `json:"loan_amount_required"`
	TermRequiredMonths int    `json:"term_required_months"`
}

type BorrowerSummary struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
}

type LenderSummary struct {
	ID              string `json:"id"`
	InstitutionName string `json:"institution_name"`
}

type ProductSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RateFrom    string `json:"rate_from"`
	MaxLTVRatio string `json:"max_ltv_ratio"`
}

// DealLink is the derived deal linkage included once a deal exists.
type DealLink struct {
	ID            string `json:"id"`
	ReferenceCode string `json:"reference_code"`
}

type ApplicationResponse struct {
	ID                   string           `json:"id"`
	ProjectID            string           `json:"project_id"`
	ProductID            string           `json:"product_id"`
	LenderID             string           `json:"lender_id"`
	ProposedLoanAmount   string           `json:"proposed_loan_amount"`
	ProposedInterestRate *string          `json:"proposed_interest_rate"`
	ProposedTermMonths   int              `json:"proposed_term_months"`
	ProposedLTVRatio     *string          `json:"proposed_ltv_ratio"`
	Notes                string           `json:"notes"`
	Status               string           `json:"status"`
	StatusFeedback       string           `json:"status_feedback"`
	StatusChangedAt      *string          `json:"status_changed_at"`
	InitiatedBy          string           `json:"initiated_by"`
	CreatedAt            string           `json:"created_at"`
	Project              *ProjectSummary  `json:"project,omitempty"`
	Borrower             *BorrowerSummary `json:"borrower,omitempty"`
	Lender               *LenderSummary   `json:"lender,omitempty"`
	Product              *ProductSummary  `json:"product,omitempty"`
	Deal                 *DealLink        `json:"deal,omitempty"`
}

// DetailProjector shapes an application row into its response. The two
// implementations are selected explicitly at construction: a missing
// association is an error in the full projection, never a silent fallback
// to partial data.
type DetailProjector interface {
	Application(ctx context.Context, app *model.Application) (ApplicationResponse, error)
}

// baseApplicationResponse maps the scalar columns plus whatever associations
// are already loaded on the row.
func baseApplicationResponse(app *model.Application) ApplicationResponse {
	resp := ApplicationResponse{
		ID:                 app.ID.String(),
		ProjectID:          app.ProjectID.String(),
		ProductID:          app.ProductID.String(),
		LenderID:           app.LenderID.String(),
		ProposedLoanAmount: app.ProposedLoanAmount.StringFixed(2),
		ProposedTermMonths: app.ProposedTermMonths,
		Notes:              app.Notes,
		Status:             app.Status,
		StatusFeedback:     app.StatusFeedback,
		InitiatedBy:        app.InitiatedBy,
		CreatedAt:          app.CreatedAt.Format(time.RFC3339),
	}

	if app.ProposedInterestRate != nil {
		s := app.ProposedInterestRate.StringFixed(2)
		resp.ProposedInterestRate = &s
	}
	if app.ProposedLTVRatio != nil {
		s := app.ProposedLTVRatio.StringFixed(2)
		resp.ProposedLTVRatio = &s
	}
	if app.StatusChangedAt != nil {
		s := app.StatusChangedAt.Format(time.RFC3339)
		resp.StatusChangedAt = &s
	}

	if app.Project != nil {
		resp.Project = &ProjectSummary{
			ID:                 app.Project.ID.String(),
			Title:              app.Project.Title,
			SiteAddress:        app.Project.SiteAddress,
			LoanAmountRequired: app.Project.LoanAmountRequired.StringFixed(2),
			TermRequiredMonths: app.Project.TermRequiredMonths,
		}
		if app.Project.Borrower != nil {
			resp.Borrower = &BorrowerSummary{
				ID:          app.Project.Borrower.ID.String(),
				CompanyName: app.Project.Borrower.CompanyName,
			}
		}
	}
	if app.Lender != nil {
		resp.Lender = &LenderSummary{
			ID:              app.Lender.ID.String(),
			InstitutionName: app.Lender.InstitutionName,
		}
	}
	if app.Product != nil {
		resp.Product = &ProductSummary{
			ID:          app.Product.ID.String(),
			Name:        app.Product.Name,
			RateFrom:    app.Product.RateFrom.StringFixed(2),
			MaxLTVRatio: app.Product.MaxLTVRatio.StringFixed(2),
		}
	}

	return resp
}

// FullProjector reloads the row with its associations and the derived deal
// linkage. Lookup failures surface as errors.
type FullProjector struct {
	apps  repository.ApplicationRepository
	deals repository.DealRepository
}

func NewFullProjector(apps repository.ApplicationRepository, deals repository.DealRepository) *FullProjector {
	return &FullProjector{apps: apps, deals: deals}
}

func (p *FullProjector) Application(ctx context.Context, app *model.Application) (ApplicationResponse, error) {
	loaded, err := p.apps.GetDetailed(ctx, app.ID.String())
	if err != nil {
		return ApplicationResponse{}, fmt.Errorf("failed to load application detail: %w", err)
	}

	resp := baseApplicationResponse(loaded)

	deal, err := p.deals.GetByApplicationID(ctx, app.ID.String())
	if err != nil {
		return ApplicationResponse{}, fmt.Errorf("failed to load deal linkage: %w", err)
	}
	if deal != nil {
		resp.Deal = &DealLink{ID: deal.ID.String(), ReferenceCode: deal.ReferenceCode}
	}

	return resp, nil
}

// MinimalProjector maps only the locally available fields. Used where the
// caller does not need, or cannot reach, the association detail.
type MinimalProjector struct{}

func NewMinimalProjector() *MinimalProjector { return &MinimalProjector{} }

func (p *MinimalProjector) Application(_ context.Context, app *model.Application) (ApplicationResponse, error) {
	return baseApplicationResponse(app), nil
}
