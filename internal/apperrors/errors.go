package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-distinguishable class of an error
type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindUnauthenticated Kind = "Unauthenticated"
	KindForbidden       Kind = "Forbidden"
	KindNotFound        Kind = "NotFound"
	KindRateLimited     Kind = "RateLimited"
	KindDelivery        Kind = "DeliveryError"
	KindInternal        Kind = "InternalError"
)

// Common error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeDuplicateField     = "DUPLICATE_FIELD"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidSession     = "INVALID_SESSION"
	CodeStaleSession       = "STALE_SESSION"
	CodeUserGone           = "USER_NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	CodeDeliveryFailed     = "EMAIL_DELIVERY_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Kind       Kind           `json:"kind"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// WithCause sets the underlying cause of the error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// IsServerError reports whether the error is the server's fault
func (e *AppError) IsServerError() bool {
	return e.HTTPStatus >= http.StatusInternalServerError
}

// New creates a new AppError
func New(kind Kind, code, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Client error constructors

func ValidationError(message string) *AppError {
	return New(KindValidation, CodeValidationError, message, http.StatusBadRequest)
}

func FieldError(field, message string) *AppError {
	return ValidationError(message).WithDetails(map[string]any{"field": field})
}

func DuplicateField(field, message string) *AppError {
	return New(KindValidation, CodeDuplicateField, message, http.StatusBadRequest).
		WithDetails(map[string]any{"field": field})
}

func BadRequest(message string) *AppError {
	return New(KindValidation, CodeInvalidRequest, message, http.StatusBadRequest)
}

func Unauthenticated(code, message string) *AppError {
	return New(KindUnauthenticated, code, message, http.StatusUnauthorized)
}

func InvalidCredentials() *AppError {
	return Unauthenticated(CodeInvalidCredentials, "Incorrect email or password")
}

func Forbidden(message string) *AppError {
	return New(KindForbidden, CodeForbidden, message, http.StatusForbidden)
}

func NotFound(message string) *AppError {
	return New(KindNotFound, CodeNotFound, message, http.StatusNotFound)
}

func RateLimited() *AppError {
	return New(KindRateLimited, CodeRateLimited, "Too many requests from this IP, please try again later", http.StatusTooManyRequests)
}

// Server error constructors

func DeliveryError(message string) *AppError {
	return New(KindDelivery, CodeDeliveryFailed, message, http.StatusInternalServerError)
}

func InternalError(message string) *AppError {
	return New(KindInternal, CodeInternalError, message, http.StatusInternalServerError)
}

// As extracts an AppError from err. Anything that is not an AppError
// becomes an InternalError carrying err as its cause.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError("Something went wrong").WithCause(err)
}
