package apperror

import (
	"fmt"
	"sort"
	"strings"
)

// AuthorizationError means the actor lacks the required role or does not own
// the referenced resource. Never retryable.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "authorization failed: " + e.Reason
}

func NewAuthorization(format string, args ...interface{}) *AuthorizationError {
	return &AuthorizationError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError carries the full set of offending fields, not just the
// first one encountered.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a field failure and returns the error for chaining.
func (e *ValidationError) Add(field, reason string) *ValidationError {
	e.Fields[field] = reason
	return e
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError means a uniqueness rule rejected the write. The caller must
// use the existing record identified by Resource/ID.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	if e.ID == "" {
		return e.Resource + " already exists"
	}
	return fmt.Sprintf("%s already exists (id=%s)", e.Resource, e.ID)
}

func NewConflict(resource, id string) *ConflictError {
	return &ConflictError{Resource: resource, ID: id}
}

// NotFoundError means the referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found (id=%s)", e.Resource, e.ID)
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}
