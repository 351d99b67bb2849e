package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNoAccessToken indicates credential refresh produced no usable token.
	ErrCodeNoAccessToken ErrorCode = "no_access_token"
	// ErrCodeHandshakeFailed indicates the transport reported an error during handshake.
	ErrCodeHandshakeFailed ErrorCode = "handshake_failed"
	// ErrCodeTransport indicates a transport-reported error outside handshake.
	ErrCodeTransport ErrorCode = "transport"
	// ErrCodeNoResults indicates a status query returned zero records for a run id.
	ErrCodeNoResults ErrorCode = "no_results"
	// ErrCodeSubscriptionSetup indicates the caller-supplied start action failed.
	ErrCodeSubscriptionSetup ErrorCode = "subscription_setup"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NoAccessToken creates a new NoAccessToken error.
func NoAccessToken(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNoAccessToken,
		Message: message,
	}
}

// HandshakeFailed wraps a transport handshake error, preserving the transport detail.
func HandshakeFailed(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeHandshakeFailed,
		Message: message,
		Cause:   err,
	}
}

// Transport creates a new Transport error carrying the transport error detail.
func Transport(message string) *AppError {
	return &AppError{
		Code:    ErrCodeTransport,
		Message: message,
	}
}

// Transportf creates a new Transport error with formatted message.
func Transportf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeTransport,
		Message: fmt.Sprintf(format, args...),
	}
}

// NoResults creates a new NoResults error.
func NoResults(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNoResults,
		Message: message,
	}
}

// NoResultsf creates a new NoResults error with formatted message.
func NoResultsf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeNoResults,
		Message: fmt.Sprintf(format, args...),
	}
}

// SubscriptionSetup wraps a start-action failure, preserving the original error.
func SubscriptionSetup(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeSubscriptionSetup,
		Message: message,
		Cause:   err,
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// Timeout creates a new Timeout error.
func Timeout(message string) *AppError {
	return &AppError{
		Code:    ErrCodeTimeout,
		Message: message,
	}
}

// Canceled creates a new Canceled error.
func Canceled(message string) *AppError {
	return &AppError{
		Code:    ErrCodeCanceled,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNoAccessToken checks if an error is a NoAccessToken error.
func IsNoAccessToken(err error) bool {
	return isCode(err, ErrCodeNoAccessToken)
}

// IsHandshakeFailed checks if an error is a HandshakeFailed error.
func IsHandshakeFailed(err error) bool {
	return isCode(err, ErrCodeHandshakeFailed)
}

// IsTransport checks if an error is a Transport error.
func IsTransport(err error) bool {
	return isCode(err, ErrCodeTransport)
}

// IsNoResults checks if an error is a NoResults error.
func IsNoResults(err error) bool {
	return isCode(err, ErrCodeNoResults)
}

// IsSubscriptionSetup checks if an error is a SubscriptionSetup error.
func IsSubscriptionSetup(err error) bool {
	return isCode(err, ErrCodeSubscriptionSetup)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
