package response

import (
	"errors"
	"net/http"

	"buildfund/pkg/apperror"
)

// Response represents a standard API response format
type Response struct {
	Status      string            `json:"status"`      // "success" or "error"
	StatusCode  int               `json:"status_code"` // HTTP status code
	Data        interface{}       `json:"data,omitempty"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"` // field name -> reason
	ConflictID  string            `json:"conflict_id,omitempty"`  // id of the already-existing resource
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// FromError maps the error taxonomy to an HTTP status and response envelope.
// Validation failures carry every offending field so clients can highlight
// the specific inputs; conflicts carry the existing resource's id.
func FromError(err error) (int, Response) {
	var authErr *apperror.AuthorizationError
	if errors.As(err, &authErr) {
		return http.StatusForbidden, Error(http.StatusForbidden, authErr.Error())
	}

	var valErr *apperror.ValidationError
	if errors.As(err, &valErr) {
		resp := Error(http.StatusBadRequest, valErr.Error())
		resp.FieldErrors = valErr.Fields
		return http.StatusBadRequest, resp
	}

	var conflictErr *apperror.ConflictError
	if errors.As(err, &conflictErr) {
		resp := Error(http.StatusConflict, conflictErr.Error())
		resp.ConflictID = conflictErr.ID
		return http.StatusConflict, resp
	}

	var notFoundErr *apperror.NotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound, Error(http.StatusNotFound, notFoundErr.Error())
	}

	// Transient storage errors and anything unclassified are fatal for the
	// current request; retry is the caller's decision.
	return http.StatusInternalServerError, Error(http.StatusInternalServerError, err.Error())
}
