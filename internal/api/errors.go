package api

import (
	"errors"
	"net/http"

	"github.com/dwatkins/billtrack/internal/assignment"
	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/store"
)

// StatusForClass maps an error taxonomy class to an HTTP status code.
func StatusForClass(class assignment.Class) int {
	switch class {
	case assignment.ClassNotFound:
		return http.StatusNotFound
	case assignment.ClassConflict:
		return http.StatusConflict
	case assignment.ClassInvalidInput:
		return http.StatusUnprocessableEntity
	case assignment.ClassUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	// Assignment taxonomy errors carry their own status class.
	if kind := assignment.Classify(err); kind != assignment.KindUnknown {
		return StatusForClass(kind.Class)
	}

	switch {
	case store.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, store.ErrEmailExists), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal
// details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, assignment.ErrUserNotFound),
		errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, assignment.ErrBillNotFound),
		errors.Is(err, store.ErrBillNotFound):
		return "Bill not found"

	case errors.Is(err, assignment.ErrBillAlreadyAssigned):
		return "Bill is already assigned"

	case errors.Is(err, assignment.ErrUserBillLimitExceeded):
		return "Bill assignment limit reached"

	case errors.Is(err, assignment.ErrInvalidBillStage):
		return "Bill cannot be assigned in its current stage"

	case errors.Is(err, assignment.ErrConcurrentUpdate):
		return "The bill was updated concurrently, please try again"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid identifier"

	default:
		return "An unexpected error occurred"
	}
}
