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

type CreateProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	MinLoanAmount decimal.Decimal `json:"min_loan_amount" binding:"required"`
	MaxLoanAmount decimal.Decimal `json:"max_loan_amount" binding:"required"`
	MaxLTVRatio   decimal.Decimal `json:"max_ltv_ratio" binding:"required"`
	RateFrom      decimal.Decimal `json:"rate_from" binding:"required"`
	MaxTermMonths int             `json:"max_term_months" binding:"required"`
}

type ProductResponse struct {
	ID            string `json:"id"`
	LenderID      string `json:"lender_id"`
	LenderName    string `json:"lender_name,omitempty"`
	Name          string `json:"name"`
	MinLoanAmount string `json:"min_loan_amount"`
	MaxLoanAmount string `json:"max_loan_amount"`
	MaxLTVRatio   string `json:"max_ltv_ratio"`
	RateFrom      string `json:"rate_from"`
	MaxTermMonths int    `json:"max_term_months"`
	Active        bool   `json:"active"`
	CreatedAt     string `json:"created_at"`
}

// --- Interface ---

type ProductService interface {
	Create(ctx context.Context, actorUserID string, req CreateProductRequest) (ProductResponse, error)
	Get(ctx context.Context, id string) (ProductResponse, error)
	List(ctx context.Context, lenderUserID string, activeOnly bool, page, limit int) ([]ProductResponse, int64, error)
	SetActive(ctx context.Context, id, actorUserID string, active bool) (ProductResponse, error)
}

type productService struct {
	products repository.ProductRepository
	users    repository.UserRepository
	audit    repository.AuditRepository
	txm      repository.TransactionManager
	log      *zap.Logger
}

func NewProductService(
	products repository.ProductRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
	log *zap.Logger,
) ProductService {
	if log == nil {
		log = zap.NewNop()
	}
	return &productService{
		products: products,
		users:    users,
		audit:    audit,
		txm:      txm,
		log:      log,
	}
}

// --- Implementation ---

func (s *productService) Create(ctx context.Context, actorUserID string, req CreateProductRequest) (ProductResponse, error) {
	actorID, err := uuid.Parse(actorUserID)
	if err != nil {
		return ProductResponse{}, apperror.NewAuthorization("authentication required")
	}

	lender, err := s.users.GetLenderProfile(ctx, actorUserID)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("failed to load lender profile: %w", err)
	}
	if lender == nil {
		return ProductResponse{}, apperror.NewAuthorization("a lender profile is required to create products")
	}

	verr := apperror.NewValidation()
	if req.MinLoanAmount.IsNegative() {
		verr.Add("min_loan_amount", "must not be negative")
	}
	if req.MaxLoanAmount.LessThan(req.MinLoanAmount) {
		verr.Add("max_loan_amount", "must not be below min_loan_amount")
	}
	if req.MaxLoanAmount.GreaterThan(loanAmountMax) {
		verr.Add("max_loan_amount", fmt.Sprintf("must not exceed %s", loanAmountMax.String()))
	}
	if req.MaxLTVRatio.IsNegative() || req.MaxLTVRatio.GreaterThan(percentMax) {
		verr.Add("max_ltv_ratio", "must be between 0 and 100")
	}
	if req.RateFrom.IsNegative() || req.RateFrom.GreaterThan(percentMax) {
		verr.Add("rate_from", "must be between 0 and 100")
	}
	if req.MaxTermMonths <= 0 {
		verr.Add("max_term_months", "must be greater than zero")
	}
	if verr.HasErrors() {
		return ProductResponse{}, verr
	}

	product := model.Product{
		LenderID:      lender.ID,
		Name:          req.Name,
		MinLoanAmount: req.MinLoanAmount,
		MaxLoanAmount: req.MaxLoanAmount,
		MaxLTVRatio:   req.MaxLTVRatio,
		RateFrom:      req.RateFrom,
		MaxTermMonths: req.MaxTermMonths,
		Active:        true,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.products.Create(txCtx, &product); createErr != nil {
			return fmt.Errorf("failed to create product: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"min_loan_amount": product.MinLoanAmount.StringFixed(2),
			"max_loan_amount": product.MaxLoanAmount.StringFixed(2),
		})
		entry := model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		return s.audit.Log(txCtx, &entry)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.log.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("lender_id", lender.ID.String()),
	)
	product.Lender = lender
	return toProductResponse(product), nil
}

func (s *productService) Get(ctx context.Context, id string) (ProductResponse, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperror.NewNotFound("product", id)
		}
		return ProductResponse{}, fmt.Errorf("failed to load product: %w", err)
	}
	return toProductResponse(*product), nil
}

func (s *productService) List(ctx context.Context, lenderUserID string, activeOnly bool, page, limit int) ([]ProductResponse, int64, error) {
	lenderID := ""
	if lenderUserID != "" {
		lender, err := s.users.GetLenderProfile(ctx, lenderUserID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load lender profile: %w", err)
		}
		if lender == nil {
			return []ProductResponse{}, 0, nil
		}
		lenderID = lender.ID.String()
	}

	products, total, err := s.products.List(ctx, lenderID, activeOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	result := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		result = append(result, toProductResponse(product))
	}
	return result, total, nil
}

func (s *productService) SetActive(ctx context.Context, id, actorUserID string, active bool) (ProductResponse, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperror.NewNotFound("product", id)
		}
		return ProductResponse{}, fmt.Errorf("failed to load product: %w", err)
	}

	lender, err := s.users.GetLenderProfile(ctx, actorUserID)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("failed to load lender profile: %w", err)
	}
	if lender == nil || lender.ID != product.LenderID {
		return ProductResponse{}, apperror.NewAuthorization("only the owning lender may change product availability")
	}

	product.Active = active
	if err := s.products.Update(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to update product: %w", err)
	}
	return toProductResponse(*product), nil
}

// --- Helpers ---

func toProductResponse(product model.Product) ProductResponse {
	resp := ProductResponse{
		ID:            product.ID.String(),
		LenderID:      product.LenderID.String(),
		Name:          product.Name,
		MinLoanAmount: product.MinLoanAmount.StringFixed(2),
		MaxLoanAmount: product.MaxLoanAmount.StringFixed(2),
		MaxLTVRatio:   product.MaxLTVRatio.StringFixed(2),
		RateFrom:      product.RateFrom.StringFixed(2),
		MaxTermMonths: product.MaxTermMonths,
		Active:        product.Active,
		CreatedAt:     product.CreatedAt.Format(time.RFC3339),
	}
	if product.Lender != nil {
		resp.LenderName = product.Lender.InstitutionName
	}
	return resp
}
