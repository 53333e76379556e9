package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation error")
	ErrPrecondition = errors.New("precondition failed")
	ErrNoCandidate  = errors.New("no candidate")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Code extracts the application error code, or "INTERNAL_ERROR"
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		HTTPStatus: http.StatusForbidden,
	}
}

// SystemOnly rejects a caller that is not the automated pipeline. It is a
// security-relevant rejection, kept distinct from validation failures so
// callers and alerting can tell a policy bypass attempt from bad input.
func SystemOnly(operation string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    fmt.Sprintf("%s may only be invoked by the allocation pipeline", operation),
		Code:       "SYSTEM_ONLY",
		HTTPStatus: http.StatusForbidden,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       "BAD_REQUEST",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Validation creates a validation error with field details
func Validation(message string, details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       "VALIDATION",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Message:    message,
		Code:       "CONFLICT",
		HTTPStatus: http.StatusConflict,
	}
}

// PreconditionFailed creates a precondition error with a specific code
// (ALREADY_ASSIGNED, INVALID_TRANSITION). Not retried by the engine.
func PreconditionFailed(code, message string) *AppError {
	return &AppError{
		Err:        ErrPrecondition,
		Message:    message,
		Code:       code,
		HTTPStatus: http.StatusConflict,
	}
}

// NoCandidate signals that no eligible agency or matching rule survived
// filtering. Terminal for the invocation; the caller owns retry policy.
func NoCandidate(message string) *AppError {
	return &AppError{
		Err:        ErrNoCandidate,
		Message:    message,
		Code:       "NO_CANDIDATE",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NotOwner rejects a transition request from a worker whose agency does
// not hold the case assignment.
func NotOwner(caseID string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    "case is not assigned to the caller's agency",
		Code:       "NOT_OWNER",
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]string{"case_id": caseID},
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}
