package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError for transport mapping.
type ErrorCode string

const (
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeValidation           ErrorCode = "VALIDATION_ERROR"
	CodeConflict             ErrorCode = "CONFLICT"
	CodeUpstreamRouteFailure ErrorCode = "UPSTREAM_ROUTE_FAILURE"
	CodeInternal             ErrorCode = "INTERNAL"
)

// AppError is an error carrying a stable code and a client-safe message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

// NewValidationError reports invalid input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewConflictError reports a state conflict.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewUpstreamRouteError reports a failure of the routing provider.
func NewUpstreamRouteError(message string, err error) *AppError {
	return &AppError{Code: CodeUpstreamRouteFailure, Message: message, Err: err}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err is a not-found AppError.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}
