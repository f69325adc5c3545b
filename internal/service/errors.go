package service

import (
	"errors"
	"sort"
	"strings"
)

// ValidationError reports client input that cannot be accepted.  Fields
// maps the offending JSON field (or query parameter) to a message.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError with a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records another field message.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrInvalidCredentials is returned by Authenticate for an unknown email,
// a wrong password or an inactive account.
var ErrInvalidCredentials = errors.New("invalid credentials")
