// Package apperror defines the application's error taxonomy and its mapping
// to HTTP status codes. Every expected failure (bad credentials, duplicate
// username, missing or not-owned resource, analyzer outage) is represented
// as a typed *AppError so handlers can answer with a stable, distinguishable
// category instead of a generic 500.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an application error.
type ErrorType int

const (
	// UnknownError is for unclassified errors.
	UnknownError ErrorType = iota
	// AuthError covers authentication failures: missing, malformed or
	// expired tokens, bad credentials, and tokens whose subject no longer
	// resolves to a live user.
	AuthError
	// ConflictError covers unique-key violations, e.g. a duplicate username.
	ConflictError
	// NotFoundError covers missing resources. A meal owned by someone else
	// is reported with this same type so callers cannot probe for rows they
	// do not own.
	NotFoundError
	// ValidationError covers malformed or missing input.
	ValidationError
	// ExternalServiceError covers failures of external collaborators, such
	// as the vision analyzer being unavailable or timing out.
	ExternalServiceError
	// DatabaseError covers storage-layer failures.
	DatabaseError
	// InternalError is a generic server-side fault.
	InternalError
)

// AppError carries a classified, user-presentable error together with the
// underlying cause for logs and error-chain inspection.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying error to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type to an HTTP status code.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case AuthError:
		return http.StatusUnauthorized
	case ConflictError:
		return http.StatusConflict
	case NotFoundError:
		return http.StatusNotFound
	case ValidationError:
		return http.StatusBadRequest
	case ExternalServiceError:
		return http.StatusBadGateway
	case DatabaseError, InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError builds an AppError with an explicit type.
func NewAppError(errType ErrorType, message string, underlying error) *AppError {
	return &AppError{Type: errType, Message: message, Err: underlying}
}

// NewAuthError reports an authentication failure.
func NewAuthError(message string, underlying error) *AppError {
	return NewAppError(AuthError, message, underlying)
}

// NewConflictError reports a duplicate unique key.
func NewConflictError(message string, underlying error) *AppError {
	return NewAppError(ConflictError, message, underlying)
}

// NewNotFoundError reports a missing (or not-owned) resource.
func NewNotFoundError(message string, underlying error) *AppError {
	return NewAppError(NotFoundError, message, underlying)
}

// NewValidationError reports malformed input.
func NewValidationError(message string, underlying error) *AppError {
	return NewAppError(ValidationError, message, underlying)
}

// NewExternalServiceError reports an external dependency failure.
func NewExternalServiceError(message string, underlying error) *AppError {
	return NewAppError(ExternalServiceError, message, underlying)
}

// NewDatabaseError reports a storage-layer failure.
func NewDatabaseError(message string, underlying error) *AppError {
	return NewAppError(DatabaseError, message, underlying)
}

// NewInternalError reports a generic server-side fault.
func NewInternalError(message string, underlying error) *AppError {
	return NewAppError(InternalError, message, underlying)
}

// ErrorResponse is the JSON body returned to API clients for any error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToResponse converts the error to its client-facing payload. Only Message
// is exposed; the underlying error stays in the logs.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message}
}

// FromError extracts an *AppError from err, reporting whether one was found.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsAuthError reports whether err is classified as an authentication failure.
func IsAuthError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == AuthError
}

// IsConflict reports whether err is classified as a unique-key conflict.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ConflictError
}

// IsNotFound reports whether err is classified as not found.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == NotFoundError
}

// IsValidationError reports whether err is classified as invalid input.
func IsValidationError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ValidationError
}

// IsExternalServiceError reports whether err is classified as a dependency
// failure.
func IsExternalServiceError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ExternalServiceError
}
