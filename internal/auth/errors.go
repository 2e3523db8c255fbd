package auth

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthorized means there is no authenticated principal.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means a principal is present but lacks the privilege.
	ErrForbidden        = errors.New("insufficient privileges")
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError carries per-field messages keyed by form field name. It
// matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
