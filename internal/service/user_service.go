package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"buildfund/internal/middleware"
	"buildfund/internal/model"
	"buildfund/internal/repository"
	"buildfund/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=borrower lender consultant"`

	// Borrower profile fields
	CompanyName      string `json:"company_name"`
	CompaniesHouseNo string `json:"companies_house_no"`
	TrackRecordYears int    `json:"track_record_years"`

	// Lender profile fields
	InstitutionName string           `json:"institution_name"`
	FCAReference    string           `json:"fca_reference"`
	MinLoanAmount   *decimal.Decimal `json:"min_loan_amount"`
	MaxLoanAmount   *decimal.Decimal `json:"max_loan_amount"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	DeleteUser(ctx context.Context, id string) error
}

type userService struct {
	repo repository.UserRepository
	txm  repository.TransactionManager
	log  *zap.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, txm repository.TransactionManager, log *zap.Logger) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &userService{repo: repo, txm: txm, log: log}
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,10}$`)

// validateRegistration gathers every field failure before reporting.
func validateRegistration(req RegisterUserRequest) *apperror.ValidationError {
	verr := apperror.NewValidation()

	if !emailRegex.MatchString(req.Email) {
		verr.Add("email", "invalid email format")
	}

	switch req.Role {
	case model.RoleBorrower:
		if req.CompanyName == "" {
			verr.Add("company_name", "required for borrower registration")
		}
	case model.RoleLender:
		if req.InstitutionName == "" {
			verr.Add("institution_name", "required for lender registration")
		}
		if req.MinLoanAmount != nil && req.MinLoanAmount.IsNegative() {
			verr.Add("min_loan_amount", "must not be negative")
		}
		if req.MaxLoanAmount != nil && req.MinLoanAmount != nil &&
			req.MaxLoanAmount.LessThan(*req.MinLoanAmount) {
			verr.Add("max_loan_amount", "must not be below min_loan_amount")
		}
	}

	return verr
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) Register(ctx context.Context, req RegisterUserRequest) (*UserResponse, error) {
	verr := validateRegistration(req)

	// Double check username/email uniqueness via repo directly
	if existing, err := s.repo.GetByUsername(ctx, req.Username); err == nil && existing != nil {
		verr.Add("username", "already exists")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	if existing, err := s.repo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		verr.Add("email", "already exists")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if verr.HasErrors() {
		return nil, verr
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashedPassword),
		Role:     req.Role,
	}

	// User and role profile are created together or not at all.
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.repo.Create(txCtx, user); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.NewConflict("user", req.Username)
			}
			return fmt.Errorf("failed to create user: %w", createErr)
		}

		switch req.Role {
		case model.RoleBorrower:
			profile := &model.BorrowerProfile{
				UserID:           user.ID,
				CompanyName:      req.CompanyName,
				CompaniesHouseNo: req.CompaniesHouseNo,
				TrackRecordYears: req.TrackRecordYears,
			}
			return s.repo.CreateBorrowerProfile(txCtx, profile)
		case model.RoleLender:
			profile := &model.LenderProfile{
				UserID:          user.ID,
				InstitutionName: req.InstitutionName,
				FCAReference:    req.FCAReference,
			}
			if req.MinLoanAmount != nil {
				profile.MinLoanAmount = *req.MinLoanAmount
			}
			if req.MaxLoanAmount != nil {
				profile.MaxLoanAmount = *req.MaxLoanAmount
			}
			return s.repo.CreateLenderProfile(txCtx, profile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role),
	)
	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.NewAuthorization("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.NewAuthorization("invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	stored, err := s.repo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, apperror.NewAuthorization("invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.repo.DeleteRefreshToken(ctx, req.RefreshToken)
		return nil, apperror.NewAuthorization("refresh token expired")
	}

	user, err := s.repo.GetByID(ctx, stored.UserID.String())
	if err != nil {
		return nil, apperror.NewAuthorization("invalid refresh token")
	}

	// Rotate: the old token is single-use.
	if err := s.repo.DeleteRefreshToken(ctx, req.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) RevokeRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, token)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	if err := s.repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{Token: tokenString, RefreshToken: refresh.Token}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("user", id)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	var responses []UserResponse
	for _, u := range users {
		responses = append(responses, *mapToResponse(&u))
	}

	return responses, total, nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("user", id)
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
