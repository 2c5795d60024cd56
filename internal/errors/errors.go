package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrValidation      ErrorType = "VALIDATION"
	ErrNotFound        ErrorType = "NOT_FOUND"
	ErrAuthentication  ErrorType = "AUTHENTICATION"
	ErrRemoteOperation ErrorType = "REMOTE_OPERATION"
	ErrTransport       ErrorType = "TRANSPORT"
	ErrStore           ErrorType = "STORE"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return New(ErrValidation, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return New(ErrNotFound, message, cause)
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string, cause error) *AppError {
	return New(ErrAuthentication, message, cause)
}

// NewTransportError creates a new transport error
func NewTransportError(message string, cause error) *AppError {
	return New(ErrTransport, message, cause)
}

// NewStoreError creates a new store error
func NewStoreError(message string, cause error) *AppError {
	return New(ErrStore, message, cause)
}

func isType(err error, t ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == t
	}
	return false
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool { return isType(err, ErrValidation) }

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrNotFound) }

// IsAuthentication checks if the error is an authentication error
func IsAuthentication(err error) bool { return isType(err, ErrAuthentication) }

// IsStore checks if the error is a local persistence error
func IsStore(err error) bool { return isType(err, ErrStore) }
