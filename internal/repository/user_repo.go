package repository

import (
	"context"
	"errors"

	"buildfund/internal/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities and
// their role profiles.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error

	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error

	CreateBorrowerProfile(ctx context.Context, profile *model.BorrowerProfile) error
	CreateLenderProfile(ctx context.Context, profile *model.LenderProfile) error
	// GetBorrowerProfile returns (nil, nil) when the user has no borrower profile.
	GetBorrowerProfile(ctx context.Context, userID string) (*model.BorrowerProfile, error)
	// GetLenderProfile returns (nil, nil) when the user has no lender profile.
	GetLenderProfile(ctx context.Context, userID string) (*model.LenderProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.User{}).Error
}

func (r *userRepository) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *userRepository) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := GetDB(ctx, r.db).First(&rt, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *userRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.RefreshToken{}).Error
}

func (r *userRepository) CreateBorrowerProfile(ctx context.Context, profile *model.BorrowerProfile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

func (r *userRepository) CreateLenderProfile(ctx context.Context, profile *model.LenderProfile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

func (r *userRepository) GetBorrowerProfile(ctx context.Context, userID string) (*model.BorrowerProfile, error) {
	var profile model.BorrowerProfile
	err := GetDB(ctx, r.db).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userRepository) GetLenderProfile(ctx context.Context, userID string) (*model.LenderProfile, error) {
	var profile model.LenderProfile
	err := GetDB(ctx, r.db).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
