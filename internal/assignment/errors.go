package assignment

import (
	"errors"

	"github.com/dwatkins/billtrack/internal/domain"
	"github.com/dwatkins/billtrack/internal/store"
)

// Sentinel errors returned by the assignment service. These are terminal
// business-rule rejections: retrying the same call cannot change the
// outcome, except for ErrConcurrentUpdate which the *caller* may retry
// as a whole new operation.
var (
	// ErrUserNotFound indicates the assignee does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrBillNotFound indicates the bill does not exist.
	ErrBillNotFound = errors.New("bill not found")

	// ErrBillAlreadyAssigned indicates the bill already has an owner.
	ErrBillAlreadyAssigned = errors.New("bill is already assigned")

	// ErrUserBillLimitExceeded indicates the user already holds the
	// maximum number of active bills.
	ErrUserBillLimitExceeded = errors.New("user has reached the bill assignment limit")

	// ErrInvalidBillStage indicates the bill's stage does not allow it
	// to be picked up.
	ErrInvalidBillStage = errors.New("bill stage does not allow assignment")

	// ErrConcurrentUpdate indicates every transaction attempt lost to
	// concurrent contention. The operation did not commit; the caller
	// may retry the whole call later.
	ErrConcurrentUpdate = errors.New("assignment conflicted with concurrent updates")
)

// Class groups error kinds by how callers should react.
type Class string

// Status classes for the error taxonomy.
const (
	ClassNotFound     Class = "not_found"
	ClassConflict     Class = "conflict"
	ClassInvalidInput Class = "invalid_input"
	ClassUnavailable  Class = "temporarily_unavailable"
	ClassInternal     Class = "internal"
)

// Kind is a stable, closed classification of an assignment failure.
// The Code is part of the API contract and never changes meaning.
type Kind struct {
	Code  string
	Class Class
}

// The closed set of error kinds.
var (
	KindUserNotFound          = Kind{Code: "USER_NOT_FOUND", Class: ClassNotFound}
	KindBillNotFound          = Kind{Code: "BILL_NOT_FOUND", Class: ClassNotFound}
	KindBillAlreadyAssigned   = Kind{Code: "BILL_ALREADY_ASSIGNED", Class: ClassConflict}
	KindUserBillLimitExceeded = Kind{Code: "USER_BILL_LIMIT_EXCEEDED", Class: ClassConflict}
	KindInvalidBillStage      = Kind{Code: "INVALID_BILL_STAGE", Class: ClassInvalidInput}
	KindConcurrentUpdate      = Kind{Code: "CONCURRENT_UPDATE", Class: ClassUnavailable}
	KindValidationError       = Kind{Code: "VALIDATION_ERROR", Class: ClassInvalidInput}
	KindUnknown               = Kind{Code: "UNKNOWN", Class: ClassInternal}
)

// Retryable reports whether the caller may usefully retry the whole
// operation later.
func (k Kind) Retryable() bool {
	return k.Class == ClassUnavailable
}

// Classify maps an error returned by the assignment service to its
// Kind. Unrecognized errors classify as KindUnknown; callers must never
// surface the raw error text for those, only the code.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrBillNotFound):
		return KindBillNotFound
	case errors.Is(err, ErrBillAlreadyAssigned):
		return KindBillAlreadyAssigned
	case errors.Is(err, ErrUserBillLimitExceeded):
		return KindUserBillLimitExceeded
	case errors.Is(err, ErrInvalidBillStage):
		return KindInvalidBillStage
	case errors.Is(err, ErrConcurrentUpdate):
		return KindConcurrentUpdate
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return KindValidationError
	default:
		return KindUnknown
	}
}

// isTerminal reports whether the protocol error is a business-rule
// rejection that the retry controller must surface immediately.
func isTerminal(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrBillNotFound) ||
		errors.Is(err, ErrBillAlreadyAssigned) ||
		errors.Is(err, ErrUserBillLimitExceeded) ||
		errors.Is(err, ErrInvalidBillStage)
}
