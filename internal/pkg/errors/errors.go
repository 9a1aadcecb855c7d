package errors

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrNotVerified  = errors.New("email not verified")
	ErrDelivery     = errors.New("delivery failed")
)

// ConflictError reports which unique user fields are already taken.
type ConflictError struct {
	Fields []string
}

func (e *ConflictError) Error() string {
	return "conflict: " + strings.Join(e.Fields, ",")
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError carries a user facing reason for a rejected input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}
