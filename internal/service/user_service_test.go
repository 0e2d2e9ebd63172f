package service

import (
	"context"
	"testing"
	"time"

	"buildfund/internal/model"
	"buildfund/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func borrowerRegistration() RegisterUserRequest {
	return RegisterUserRequest{
		Username:    "harbourside",
		Email:       "dev@harbourside.co.uk",
		Password:    "correct-horse-battery",
		Role:        model.RoleBorrower,
		CompanyName: "Harbourside Developments Ltd",
	}
}

func TestRegister_CreatesUserAndProfileTogether(t *testing.T) {
	repo := newFakeUserRepo()
	txm := &fakeTxManager{}
	svc := NewUserService(repo, txm, nil)

	resp, err := svc.Register(context.Background(), borrowerRegistration())
	require.NoError(t, err)

	assert.Equal(t, model.RoleBorrower, resp.Role)
	assert.Equal(t, 1, txm.calls)
	require.Contains(t, repo.borrowers, resp.ID.String())
	assert.Equal(t, "Harbourside Developments Ltd", repo.borrowers[resp.ID.String()].CompanyName)

	// Password never leaves hashed form.
	stored := repo.users[resp.ID.String()]
	assert.NotEqual(t, "correct-horse-battery", stored.Password)
}

func TestRegister_CollectsRoleFieldFailures(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), &fakeTxManager{}, nil)

	req := RegisterUserRequest{
		Username: "granite",
		Email:    "not-an-email",
		Password: "supersecret1",
		Role:     model.RoleLender,
	}

	_, err := svc.Register(context.Background(), req)

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "email")
	assert.Contains(t, valErr.Fields, "institution_name")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, &fakeTxManager{}, nil)

	_, err := svc.Register(context.Background(), borrowerRegistration())
	require.NoError(t, err)

	dup := borrowerRegistration()
	dup.Email = "other@harbourside.co.uk"
	_, err = svc.Register(context.Background(), dup)

	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "username")
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, &fakeTxManager{}, nil)

	_, err := svc.Register(context.Background(), borrowerRegistration())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginUserRequest{
		Email:    "dev@harbourside.co.uk",
		Password: "wrong-password",
	})

	var authErr *apperror.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestLoginAndRefresh_RotatesToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, &fakeTxManager{}, nil)

	_, err := svc.Register(context.Background(), borrowerRegistration())
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{
		Email:    "dev@harbourside.co.uk",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.Token)
	require.NotEmpty(t, tokens.RefreshToken)

	rotated, err := svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// Single use: the consumed token is gone.
	_, err = svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	var authErr *apperror.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestRefreshToken_Expired(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, &fakeTxManager{}, nil)

	_, err := svc.Register(context.Background(), borrowerRegistration())
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{
		Email:    "dev@harbourside.co.uk",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)

	repo.refresh[tokens.RefreshToken].ExpiresAt = time.Now().Add(-time.Hour)

	_, err = svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	var authErr *apperror.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.NotContains(t, repo.refresh, tokens.RefreshToken)
}
