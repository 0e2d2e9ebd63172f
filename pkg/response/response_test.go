package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"buildfund/pkg/apperror"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"authorization", apperror.NewAuthorization("role mismatch"), http.StatusForbidden},
		{"validation", apperror.NewValidation().Add("title", "title is required"), http.StatusBadRequest},
		{"conflict", apperror.NewConflict("application", "abc"), http.StatusConflict},
		{"not found", apperror.NewNotFound("deal", "xyz"), http.StatusNotFound},
		{"wrapped", fmt.Errorf("loading: %w", apperror.NewNotFound("deal", "xyz")), http.StatusNotFound},
		{"unclassified", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestFromError_ValidationCarriesFields(t *testing.T) {
	verr := apperror.NewValidation().
		Add("proposed_rate", "must be between 0 and 100").
		Add("proposed_ltv", "must be between 0 and 100")

	_, resp := FromError(verr)
	assert.Len(t, resp.FieldErrors, 2)
	assert.Contains(t, resp.FieldErrors, "proposed_rate")
	assert.Contains(t, resp.FieldErrors, "proposed_ltv")
}

func TestFromError_ConflictCarriesID(t *testing.T) {
	_, resp := FromError(apperror.NewConflict("application", "existing-id"))
	assert.Equal(t, "existing-id", resp.ConflictID)
}
