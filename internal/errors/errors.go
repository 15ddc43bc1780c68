package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Arkkies account state
	ErrCodeNotConnected    ErrorCode = "ARKKIES_NOT_CONNECTED"
	ErrCodeLoginFailed     ErrorCode = "ARKKIES_LOGIN_FAILED"
	ErrCodeNoEntitlements  ErrorCode = "NO_ACTIVE_ENTITLEMENTS"
	ErrCodeNoSlots         ErrorCode = "NO_AVAILABLE_SLOTS"
	ErrCodeBookingInFlight ErrorCode = "BOOKING_IN_FLIGHT"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeDecryption    ErrorCode = "DECRYPTION_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase      ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal      ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeProtocol      ErrorCode = "EXTERNAL_PROTOCOL_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func NotConnected() *AppError {
	return New(ErrCodeNotConnected, "Arkkies account not connected: no stored credentials for this user")
}

func LoginFailed(cause error) *AppError {
	return Wrap(ErrCodeLoginFailed, "Arkkies login failed", cause)
}

func NoEntitlements(outlets []string) *AppError {
	return New(ErrCodeNoEntitlements,
		fmt.Sprintf("No active subscriptions or passes found (outlets attempted: %v)", outlets))
}

func NoSlots() *AppError {
	return New(ErrCodeNoSlots, "No available booking slots")
}

func BookingInFlight() *AppError {
	return New(ErrCodeBookingInFlight, "Another booking for this user is already in progress")
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message)
}

func Decryption(cause error) *AppError {
	return Wrap(ErrCodeDecryption, "Failed to decrypt stored credentials", cause)
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

func Protocol(message string) *AppError {
	return New(ErrCodeProtocol, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
