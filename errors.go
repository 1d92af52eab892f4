package goEnroll

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/MrEthical07/goEnroll/storage"
)

// Error kinds. Every error returned by the Engine matches exactly one of
// these with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrNoCapacity   = errors.New("class is full")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("too many requests")
	ErrPersistence  = errors.New("persistence failure")
)

var (
	ErrUserNotFound   = kindError(ErrNotFound, "user not found")
	ErrCourseNotFound = kindError(ErrNotFound, "course not found")
	ErrClassNotFound  = kindError(ErrNotFound, "class session not found")

	ErrDuplicateEmail      = kindError(ErrConflict, "email already registered")
	ErrDuplicateCourseName = kindError(ErrConflict, "course name already exists")
	ErrAlreadyEnrolled     = kindError(ErrConflict, "already enrolled in this class")
	ErrNotEnrolled         = kindError(ErrConflict, "not enrolled in this class")

	ErrTokenInvalid       = kindError(ErrUnauthorized, "invalid token")
	ErrTokenExpired       = kindError(ErrUnauthorized, "token expired")
	ErrInvalidCredentials = kindError(ErrUnauthorized, "invalid credentials")
	ErrRefreshInvalid     = kindError(ErrUnauthorized, "invalid refresh token")
	ErrRefreshReuse       = kindError(ErrUnauthorized, "refresh token reuse detected")

	ErrAdminRequired = kindError(ErrForbidden, "admin privileges required")

	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

type kindErr struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) error {
	return &kindErr{kind: kind, msg: msg}
}

func (e *kindErr) Error() string { return e.msg }
func (e *kindErr) Unwrap() error { return e.kind }

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// mapStoreError translates storage errors into the package's error kinds.
// Anything unrecognized becomes ErrPersistence and is logged.
func mapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, storage.ErrCourseNotFound):
		return ErrCourseNotFound
	case errors.Is(err, storage.ErrClassNotFound):
		return ErrClassNotFound
	case errors.Is(err, storage.ErrNotFound):
		return kindError(ErrNotFound, op+": not found")
	case errors.Is(err, storage.ErrDuplicateEmail):
		return ErrDuplicateEmail
	case errors.Is(err, storage.ErrDuplicateCourseName):
		return ErrDuplicateCourseName
	case errors.Is(err, storage.ErrAlreadyMember):
		return ErrAlreadyEnrolled
	case errors.Is(err, storage.ErrNotMember):
		return ErrNotEnrolled
	case errors.Is(err, storage.ErrNoCapacity):
		return ErrNoCapacity
	case errors.Is(err, storage.ErrSpotsOutOfRange):
		return validationError("available_spots", "must be between 0 and total_max_spots")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
	}
	log.Printf("goEnroll: %s: %v", op, err)
	return fmt.Errorf("%w: %s", ErrPersistence, op)
}
