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

type ProviderEnquiryResponse struct {
	ID          string  `json:"id"`
	DealID      string  `json:"deal_id"`
	FirmID      string  `json:"firm_id"`
	FirmName    string  `json:"firm_name"`
	Discipline  string  `json:"discipline"`
	Status      string  `json:"status"`
	QuoteAmount *string `json:"quote_amount"`
	Message     string  `json:"message"`
	CreatedAt   string  `json:"created_at"`
}

type DealResponse struct {
	ID               string                    `json:"id"`
	ApplicationID    string                    `json:"application_id"`
	ReferenceCode    string                    `json:"reference_code"`
	Status           string                    `json:"status"`
	AgreedLoanAmount string                    `json:"agreed_loan_amount"`
	AgreedTermMonths int                       `json:"agreed_term_months"`
	CreatedAt        string                    `json:"created_at"`
	Enquiries        []ProviderEnquiryResponse `json:"enquiries,omitempty"`
}

type RespondEnquiryRequest struct {
	Status      string           `json:"status" binding:"required,oneof=QUOTED ENGAGED DECLINED"`
	QuoteAmount *decimal.Decimal `json:"quote_amount"`
	Message     string           `json:"message"`
}

// --- Interface ---

type DealService interface {
	// AcceptApplication marks an application ACCEPTED, derives its deal and
	// fans out provider enquiries to active consultant firms, all in one
	// transaction.
	AcceptApplication(ctx context.Context, applicationID, actorUserID, feedback string) (DealResponse, error)
	Get(ctx context.Context, id string) (DealResponse, error)
	List(ctx context.Context, page, limit int) ([]DealResponse, int64, error)
	RespondEnquiry(ctx context.Context, enquiryID, actorUserID string, req RespondEnquiryRequest) (ProviderEnquiryResponse, error)
}

type dealService struct {
	deals  repository.DealRepository
	apps   repository.ApplicationRepository
	users  repository.UserRepository
	audit  repository.AuditRepository
	txm    repository.TransactionManager
	events EventBroadcaster
	log    *zap.Logger
}

func NewDealService(
	deals repository.DealRepository,
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	events EventBroadcaster,
	log *zap.Logger,
) DealService {
	if log == nil {
		log = zap.NewNop()
	}
	return &dealService{
		deals:  deals,
		apps:   apps,
		users:  users,
		audit:  audit,
		txm:    txm,
		events: events,
		log:    log,
	}
}

// --- Implementation ---

func (s *dealService) AcceptApplication(ctx context.Context, applicationID, actorUserID, feedback string) (DealResponse, error) {
	actorID, err := uuid.Parse(actorUserID)
	if err != nil {
		return DealResponse{}, apperror.NewAuthorization("authentication required")
	}

	application, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DealResponse{}, apperror.NewNotFound("application", applicationID)
		}
		return DealResponse{}, fmt.Errorf("failed to load application: %w", err)
	}

	lender, err := s.users.GetLenderProfile(ctx, actorUserID)
	if err != nil {
		return DealResponse{}, fmt.Errorf("failed to load lender profile: %w", err)
	}
	if lender == nil || lender.ID != application.LenderID {
		return DealResponse{}, apperror.NewAuthorization("only the lender of record may accept")
	}

	if application.Status != model.ApplicationStatusPending &&
		application.Status != model.ApplicationStatusUnderReview {
		return DealResponse{}, apperror.NewValidation().
			Add("status", fmt.Sprintf("cannot accept from %s", application.Status))
	}

	existing, err := s.deals.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return DealResponse{}, fmt.Errorf("failed to check deal linkage: %w", err)
	}
	if existing != nil {
		return DealResponse{}, apperror.NewConflict("deal", existing.ID.String())
	}

	var deal model.Deal
	var enquiries []model.ProviderEnquiry
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		now := time.Now()
		application.Status = model.ApplicationStatusAccepted
		application.StatusFeedback = feedback
		application.StatusChangedAt = &now
		if updateErr := s.apps.Update(txCtx, application); updateErr != nil {
			return fmt.Errorf("failed to update application: %w", updateErr)
		}

		refCode, refErr := s.deals.NextReferenceCode(txCtx)
		if refErr != nil {
			return fmt.Errorf("failed to generate reference code: %w", refErr)
		}

		deal = model.Deal{
			ApplicationID:    application.ID,
			ReferenceCode:    refCode,
			Status:           model.DealStatusInstructed,
			AgreedLoanAmount: application.ProposedLoanAmount,
			AgreedTermMonths: application.ProposedTermMonths,
		}
		if createErr := s.deals.Create(txCtx, &deal); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.NewConflict("deal", "")
			}
			return fmt.Errorf("failed to create deal: %w", createErr)
		}

		// Fan out one enquiry per active consultant firm.
		firms, firmsErr := s.deals.ListActiveFirms(txCtx)
		if firmsErr != nil {
			return fmt.Errorf("failed to list consultant firms: %w", firmsErr)
		}
		for _, firm := range firms {
			enquiry := model.ProviderEnquiry{
				DealID:     deal.ID,
				FirmID:     firm.ID,
				Discipline: firm.Discipline,
				Status:     model.EnquiryStatusSent,
				Message:    fmt.Sprintf("Quote requested for %s services on deal %s", firm.Discipline, refCode),
			}
			if enqErr := s.deals.CreateEnquiry(txCtx, &enquiry); enqErr != nil {
				return fmt.Errorf("failed to create provider enquiry: %w", enqErr)
			}
			enquiries = append(enquiries, enquiry)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"application_id": application.ID.String(),
			"reference_code": refCode,
			"enquiries":      len(enquiries),
		})
		entry := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateDeal,
			EntityID:   deal.ID.String(),
			EntityName: refCode,
			Details:    string(details),
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return DealResponse{}, err
	}

	metrics.DealsCreated.Inc()
	s.log.Info("deal created",
		zap.String("deal_id", deal.ID.String()),
		zap.String("reference_code", deal.ReferenceCode),
		zap.Int("enquiries", len(enquiries)),
	)
	if s.events != nil {
		s.events.Publish("deal.created", map[string]string{
			"deal_id":        deal.ID.String(),
			"application_id": application.ID.String(),
			"reference_code": deal.ReferenceCode,
		})
	}

	resp := toDealResponse(deal)
	for _, enquiry := range enquiries {
		resp.Enquiries = append(resp.Enquiries, toEnquiryResponse(enquiry))
	}
	return resp, nil
}

func (s *dealService) Get(ctx context.Context, id string) (DealResponse, error) {
	deal, err := s.deals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DealResponse{}, apperror.NewNotFound("deal", id)
		}
		return DealResponse{}, fmt.Errorf("failed to load deal: %w", err)
	}

	enquiries, err := s.deals.ListEnquiriesByDeal(ctx, id)
	if err != nil {
		return DealResponse{}, fmt.Errorf("failed to list enquiries: %w", err)
	}

	resp := toDealResponse(*deal)
	for _, enquiry := range enquiries {
		resp.Enquiries = append(resp.Enquiries, toEnquiryResponse(enquiry))
	}
	return resp, nil
}

func (s *dealService) List(ctx context.Context, page, limit int) ([]DealResponse, int64, error) {
	deals, total, err := s.deals.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deals: %w", err)
	}

	result := make([]DealResponse, 0, len(deals))
	for _, deal := range deals {
		result = append(result, toDealResponse(deal))
	}
	return result, total, nil
}

func (s *dealService) RespondEnquiry(ctx context.Context, enquiryID, actorUserID string, req RespondEnquiryRequest) (ProviderEnquiryResponse, error) {
	actorID, err := uuid.Parse(actorUserID)
	if err != nil {
		return ProviderEnquiryResponse{}, apperror.NewAuthorization("authentication required")
	}

	enquiry, err := s.deals.GetEnquiry(ctx, enquiryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProviderEnquiryResponse{}, apperror.NewNotFound("provider enquiry", enquiryID)
		}
		return ProviderEnquiryResponse{}, fmt.Errorf("failed to load enquiry: %w", err)
	}

	if enquiry.Status == model.EnquiryStatusEngaged || enquiry.Status == model.EnquiryStatusDeclined {
		return ProviderEnquiryResponse{}, apperror.NewValidation().
			Add("status", fmt.Sprintf("enquiry is already %s", enquiry.Status))
	}
	if req.Status == model.EnquiryStatusQuoted && req.QuoteAmount == nil {
		return ProviderEnquiryResponse{}, apperror.NewValidation().
			Add("quote_amount", "required when quoting")
	}

	enquiry.Status = req.Status
	enquiry.QuoteAmount = req.QuoteAmount
	if req.Message != "" {
		enquiry.Message = req.Message
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.deals.UpdateEnquiry(txCtx, enquiry); updateErr != nil {
			return fmt.Errorf("failed to update enquiry: %w", updateErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"status": req.Status,
		})
		entry := model.AuditLog{
			UserID:   &actorID,
			Action:   model.ActionCreateProviderEnquiry,
			EntityID: enquiry.ID.String(),
			Details:  string(details),
		}
		if auditErr := s.audit.Log(txCtx, &entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return ProviderEnquiryResponse{}, err
	}

	return toEnquiryResponse(*enquiry), nil
}

// --- Helpers ---

func toDealResponse(deal model.Deal) DealResponse {
	return DealResponse{
		ID:               deal.ID.String(),
		ApplicationID:    deal.ApplicationID.String(),
		ReferenceCode:    deal.ReferenceCode,
		Status:           deal.Status,
		AgreedLoanAmount: deal.AgreedLoanAmount.StringFixed(2),
		AgreedTermMonths: deal.AgreedTermMonths,
		CreatedAt:        deal.CreatedAt.Format(time.RFC3339),
	}
}

func toEnquiryResponse(enquiry model.ProviderEnquiry) ProviderEnquiryResponse {
	resp := ProviderEnquiryResponse{
		ID:         enquiry.ID.String(),
		DealID:     enquiry.DealID.String(),
		FirmID:     enquiry.FirmID.String(),
		Discipline: enquiry.Discipline,
		Status:     enquiry.Status,
		Message:    enquiry.Message,
		CreatedAt:  enquiry.CreatedAt.Format(time.RFC3339),
	}
	if enquiry.Firm != nil {
		resp.FirmName = enquiry.Firm.Name
	}
	if enquiry.QuoteAmount != nil {
		s := enquiry.QuoteAmount.StringFixed(2)
		resp.QuoteAmount = &s
	}
	return resp
}
