// Package common defines shared constants, sentinel errors and small helpers
// used across the tenantdrive server. Callers should use errors.Is to match
// the sentinel values; typed errors wrap them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Object-storage errors.
	ErrorStorageProvider = errors.New("storage provider error")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError reports a missing or malformed client input. It always
// matches ErrorValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}

// Required returns a ValidationError for an absent field.
func Required(field string) error {
	return &ValidationError{Field: field}
}

// Invalid returns a ValidationError with a custom reason.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ProviderError wraps a failed object-storage call. Its message is the
// provider's own message, it matches ErrorStorageProvider and is never retried.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrorStorageProvider
}

// WrapProvider returns nil for a nil err, otherwise a *ProviderError.
func WrapProvider(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Op: op, Err: err}
}
