package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"buildfund/internal/metrics"
	"buildfund/internal/model"
	"buildfund/internal/repository"
	"buildfund/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateApplicationRequest struct {
	ProjectID            string           `json:"project_id" binding:"required"`
	ProductID            string           `json:"product_id" binding:"required"`
	ProposedLoanAmount   *decimal.Decimal `json:"proposed_loan_amount"`
	ProposedInterestRate *decimal.Decimal `json:"proposed_interest_rate"`
	ProposedTermMonths   *int             `json:"proposed_term_months"`
	ProposedLTVRatio     *decimal.Decimal `json:"proposed_ltv_ratio"`
	Notes                string           `json:"notes"`
}

type UpdateApplicationStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Feedback string `json:"feedback"`
}

// Actor is the authenticated caller with whichever role profiles exist for
// them. Intake requires exactly one of the two to be present.
type Actor struct {
	UserID   uuid.UUID
	Borrower *model.BorrowerProfile
	Lender   *model.LenderProfile
}

// ResolvedFields is the fully-populated outcome of the role branch. Every
// field is set on success; there is no partially-resolved state.
type ResolvedFields struct {
	LenderID    uuid.UUID
	InitiatedBy string
	LoanAmount  decimal.Decimal
	TermMonths  int
}

var (
	loanAmountMax = decimal.New(1, 9) // 1e9
	percentMax    = decimal.NewFromInt(100)
)

// EventBroadcaster pushes workflow events to connected clients.
type EventBroadcaster interface {
	Publish(eventType string, payload interface{})
}

// --- Interface ---

type ApplicationService interface {
	Create(ctx context.Context, actorUserID string, req CreateApplicationRequest) (ApplicationResponse, error)
	Get(ctx context.Context, id string) (ApplicationResponse, error)
	List(ctx context.Context, filter repository.ApplicationFilter) ([]ApplicationResponse, int64, error)
	UpdateStatus(ctx context.Context, id, actorUserID string, req UpdateApplicationStatusRequest) (ApplicationResponse, error)
}

type applicationService struct {
	apps      repository.ApplicationRepository
	projects  repository.ProjectRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	deals     repository.DealRepository
	audit     repository.AuditRepository
	txm       repository.TransactionManager
	projector DetailProjector
	events    EventBroadcaster
	log       *zap.Logger
}

func NewApplicationService(
	apps repository.ApplicationRepository,
	projects repository.ProjectRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	deals repository.DealRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	projector DetailProjector,
	events EventBroadcaster,
	log *zap.Logger,
) ApplicationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &applicationService{
		apps:      apps,
		projects:  projects,
		products:  products,
		users:     users,
		deals:     deals,
		audit:     audit,
		txm:       txm,
		projector: projector,
		events:    events,
		log:       log,
	}
}

// --- Resolution ---

// resolveIntake runs the role branch for application intake. The resolved
// lender is always the product's lender for borrower-initiated enquiries and
// the actor's own lender profile for lender-initiated applications; caller
// input never decides it.
func resolveIntake(actor Actor, project *model.Project, product *model.Product, req CreateApplicationRequest) (ResolvedFields, error) {
	switch {
	case actor.Borrower != nil && actor.Lender != nil:
		return ResolvedFields{}, apperror.NewAuthorization("actor holds both borrower and lender roles")
	case actor.Borrower == nil && actor.Lender == nil:
		return ResolvedFields{}, apperror.NewAuthorization("actor holds neither borrower nor lender role")
	}

	resolved := ResolvedFields{
		LoanAmount: project.LoanAmountRequired,
		TermMonths: project.TermRequiredMonths,
	}
	if req.ProposedLoanAmount != nil {
		resolved.LoanAmount = *req.ProposedLoanAmount
	}
	if req.ProposedTermMonths != nil {
		resolved.TermMonths = *req.ProposedTermMonths
	}

	if actor.Borrower != nil {
		if project.BorrowerID != actor.Borrower.ID {
			return ResolvedFields{}, apperror.NewAuthorization("project does not belong to the acting borrower")
		}
		resolved.LenderID = product.LenderID
		resolved.InitiatedBy = model.InitiatedByBorrower
		return resolved, nil
	}

	if product.LenderID != actor.Lender.ID {
		return ResolvedFields{}, apperror.NewAuthorization("product does not belong to the acting lender")
	}
	resolved.LenderID = actor.Lender.ID
	resolved.InitiatedBy = model.InitiatedByLender
	return resolved, nil
}

// validateProposedTerms range-checks the numeric fields, reporting every
// failing field rather than stopping at the first.
func validateProposedTerms(loanAmount decimal.Decimal, req CreateApplicationRequest) error {
	verr := apperror.NewValidation()

	if loanAmount.IsNegative() || loanAmount.GreaterThan(loanAmountMax) {
		verr.Add("proposed_loan_amount", "must be between 0 and 1000000000")
	}
	if req.ProposedInterestRate != nil &&
		(req.ProposedInterestRate.IsNegative() || req.ProposedInterestRate.GreaterThan(percentMax)) {
		verr.Add("proposed_interest_rate", "must be between 0 and 100")
	}
	if req.ProposedLTVRatio != nil &&
		(req.ProposedLTVRatio.IsNegative() || req.ProposedLTVRatio.GreaterThan(percentMax)) {
		verr.Add("proposed_ltv_ratio", "must be between 0 and 100")
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// --- Implementation ---

func (s *applicationService) loadActor(ctx context.Context, userID string) (Actor, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Actor{}, apperror.NewAuthorization("authentication required")
	}

	borrower, err := s.users.GetBorrowerProfile(ctx, userID)
	if err != nil {
		return Actor{}, fmt.Errorf("failed to load borrower profile: %w", err)
	}
	lender, err := s.users.GetLenderProfile(ctx, userID)
	if err != nil {
		return Actor{}, fmt.Errorf("failed to load lender profile: %w", err)
	}

	return Actor{UserID: uid, Borrower: borrower, Lender: lender}, nil
}

func (s *applicationService) Create(ctx context.Context, actorUserID string, req CreateApplicationRequest) (ApplicationResponse, error) {
	actor, err := s.loadActor(ctx, actorUserID)
	if err != nil {
		return ApplicationResponse{}, err
	}

	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ApplicationResponse{}, apperror.NewNotFound("project", req.ProjectID)
		}
		return ApplicationResponse{}, fmt.Errorf("failed to load project: %w", err)
	}
	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ApplicationResponse{}, apperror.NewNotFound("product", req.ProductID)
		}
		return ApplicationResponse{}, fmt.Errorf("failed to load product: %w", err)
	}

	resolved, err := resolveIntake(actor, project, product, req)
	if err != nil {
		metrics.IntakeRejections.WithLabelValues("authorization").Inc()
		return ApplicationResponse{}, err
	}

	// All range checks run before any side effect.
	if err := validateProposedTerms(resolved.LoanAmount, req); err != nil {
		metrics.IntakeRejections.WithLabelValues("validation").Inc()
		return ApplicationResponse{}, err
	}

	application := model.Application{
		ProjectID:            project.ID,
		ProductID:            product.ID,
		LenderID:             resolved.LenderID,
		ProposedLoanAmount:   resolved.LoanAmount,
		ProposedInterestRate: req.ProposedInterestRate,
		ProposedTermMonths:   resolved.TermMonths,
		ProposedLTVRatio:     req.ProposedLTVRatio,
		Notes:                req.Notes,
		Status:               model.ApplicationStatusPending,
		InitiatedBy:          resolved.InitiatedBy,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		// The check uses the resolved lender, never caller input. The
		// composite unique index catches the race this check cannot.
		existing, findErr := s.apps.FindByProjectAndLender(txCtx, project.ID.String(), resolved.LenderID.String())
		if findErr != nil {
			return fmt.Errorf("failed to check for existing application: %w", findErr)
		}
		if existing != nil {
			return apperror.NewConflict("application", existing.ID.String())
		}

		if createErr := s.apps.Create(txCtx, &application); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.NewConflict("application", "")
			}
			return fmt.Errorf("failed to create application: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"project_id":   project.ID.String(),
			"lender_id":    resolved.LenderID.String(),
			"initiated_by": resolved.InitiatedBy,
			"amount":       resolved.LoanAmount.StringFixed(2),
		})
		entry := model.AuditLog{
			UserID:     &actor.UserID,
			Action:     model.ActionCreateApplication,
			EntityID:   application.ID.String(),
			EntityName: project.Title,
			Details:    string(details),
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		var conflict *apperror.ConflictError
		if errors.As(err, &conflict) {
			metrics.IntakeRejections.WithLabelValues("conflict").Inc()
		}
		return ApplicationResponse{}, err
	}

	metrics.ApplicationsCreated.WithLabelValues(resolved.InitiatedBy).Inc()
	s.log.Info("application created",
		zap.String("application_id", application.ID.String()),
		zap.String("initiated_by", resolved.InitiatedBy),
	)
	if s.events != nil {
		s.events.Publish("application.created", map[string]string{
			"application_id": application.ID.String(),
			"project_id":     project.ID.String(),
			"lender_id":      resolved.LenderID.String(),
		})
	}

	return s.projector.Application(ctx, &application)
}

func (s *applicationService) Get(ctx context.Context, id string) (ApplicationResponse, error) {
	application, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ApplicationResponse{}, apperror.NewNotFound("application", id)
		}
		return ApplicationResponse{}, fmt.Errorf("failed to load application: %w", err)
	}
	return s.projector.Application(ctx, application)
}

func (s *applicationService) List(ctx context.Context, filter repository.ApplicationFilter) ([]ApplicationResponse, int64, error) {
	applications, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}

	result := make([]ApplicationResponse, 0, len(applications))
	for i := range applications {
		// Listings use the locally loaded associations; the deal linkage is
		// only resolved on single fetches.
		result = append(result, baseApplicationResponse(&applications[i]))
	}
	return result, total, nil
}

// statusTargets maps each caller-settable status to the statuses it may be
// applied from. Acceptance is excluded: it derives a deal and goes through
// the deal service.
var statusTargets = map[string][]string{
	model.ApplicationStatusUnderReview: {model.ApplicationStatusPending},
	model.ApplicationStatusDeclined:    {model.ApplicationStatusPending, model.ApplicationStatusUnderReview},
	model.ApplicationStatusWithdrawn:   {model.ApplicationStatusPending, model.ApplicationStatusUnderReview},
}

func (s *applicationService) UpdateStatus(ctx context.Context, id, actorUserID string, req UpdateApplicationStatusRequest) (ApplicationResponse, error) {
	actor, err := s.loadActor(ctx, actorUserID)
	if err != nil {
		return ApplicationResponse{}, err
	}

	application, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ApplicationResponse{}, apperror.NewNotFound("application", id)
		}
		return ApplicationResponse{}, fmt.Errorf("failed to load application: %w", err)
	}

	// Applications are immutable once a deal is derived from them.
	deal, err := s.deals.GetByApplicationID(ctx, id)
	if err != nil {
		return ApplicationResponse{}, fmt.Errorf("failed to check deal linkage: %w", err)
	}
	if deal != nil {
		return ApplicationResponse{}, apperror.NewConflict("deal", deal.ID.String())
	}

	if req.Status == model.ApplicationStatusAccepted {
		return ApplicationResponse{}, apperror.NewValidation().
			Add("status", "acceptance derives a deal; use the accept operation")
	}
	from, ok := statusTargets[req.Status]
	if !ok {
		return ApplicationResponse{}, apperror.NewValidation().Add("status", "unknown status "+req.Status)
	}
	allowed := false
	for _, f := range from {
		if application.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return ApplicationResponse{}, apperror.NewValidation().
			Add("status", fmt.Sprintf("cannot move from %s to %s", application.Status, req.Status))
	}

	// Field-group ownership: withdrawal belongs to the borrower side,
	// review/decline to the lender of record.
	switch req.Status {
	case model.ApplicationStatusWithdrawn:
		if actor.Borrower == nil {
			return ApplicationResponse{}, apperror.NewAuthorization("only the borrower may withdraw")
		}
		project, projErr := s.projects.GetByID(ctx, application.ProjectID.String())
		if projErr != nil {
			return ApplicationResponse{}, fmt.Errorf("failed to load project: %w", projErr)
		}
		if project.BorrowerID != actor.Borrower.ID {
			return ApplicationResponse{}, apperror.NewAuthorization("project does not belong to the acting borrower")
		}
	default:
		if actor.Lender == nil || actor.Lender.ID != application.LenderID {
			return ApplicationResponse{}, apperror.NewAuthorization("only the lender of record may review")
		}
	}

	now := time.Now()
	application.Status = req.Status
	application.StatusFeedback = req.Feedback
	application.StatusChangedAt = &now

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.apps.Update(txCtx, application); updateErr != nil {
			return fmt.Errorf("failed to update application: %w", updateErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"status":   req.Status,
			"feedback": req.Feedback,
		})
		entry := model.AuditLog{
			UserID:   &actor.UserID,
			Action:   model.ActionUpdateApplication,
			EntityID: application.ID.String(),
			Details:  string(details),
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return ApplicationResponse{}, err
	}

	if s.events != nil {
		s.events.Publish("application.status", map[string]string{
			"application_id": application.ID.String(),
			"status":         application.Status,
		})
	}

	return s.projector.Application(ctx, application)
}
