package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Drill error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrNoPassages     ErrorCode = "NO_PASSAGES"     // 422
	ErrEmptyPool      ErrorCode = "EMPTY_POOL"      // 422
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// DrillError represents a structured error with code, status, and details.
type DrillError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DrillError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DrillError {
	return &DrillError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing passage, item, session or review record.
func NewNotFound(kind, id string) *DrillError {
	return &DrillError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewConflict creates a 409 error, e.g. grading a session twice.
func NewConflict(msg string) *DrillError {
	return &DrillError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewNoPassages creates a 422 error when a source yields no acceptable passage.
func NewNoPassages(candidates int, rejected map[string]int) *DrillError {
	return &DrillError{
		Code:    ErrNoPassages,
		Status:  422,
		Message: fmt.Sprintf("no acceptable passages in source (%d candidates)", candidates),
		Details: map[string]any{"candidates": candidates, "rejected": rejected},
	}
}

// NewEmptyPool creates a 422 error when no practice items match a session request.
func NewEmptyPool(genre string) *DrillError {
	msg := "no practice items available"
	details := map[string]any{}
	if genre != "" {
		msg = fmt.Sprintf("no practice items available for genre %q", genre)
		details["genre"] = genre
	}
	return &DrillError{
		Code:    ErrEmptyPool,
		Status:  422,
		Message: msg,
		Details: details,
	}
}

// NewCancelled creates a 499 error when an operation stops because its context ended.
func NewCancelled(op string) *DrillError {
	return &DrillError{
		Code:    ErrCancelled,
		Status:  499,
		Message: op + " cancelled",
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the cause is kept in Details for logging.
func NewInternal(err error) *DrillError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &DrillError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error (or any error it wraps) is a DrillError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DrillError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// As returns the DrillError in err's chain, if any.
func As(err error) (*DrillError, bool) {
	var dErr *DrillError
	ok := stderrors.As(err, &dErr)
	return dErr, ok
}
