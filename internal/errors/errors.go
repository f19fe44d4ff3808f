package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Protocol
	ErrCodeUnknownEvent     ErrorCode = "UNKNOWN_EVENT"
	ErrCodeMalformedMessage ErrorCode = "MALFORMED_MESSAGE"
	ErrCodeMessageTooLarge  ErrorCode = "MESSAGE_TOO_LARGE"

	// Matching
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"
	ErrCodeNotPaired     ErrorCode = "NOT_PAIRED"

	// Balance
	ErrCodeBalanceRejected     ErrorCode = "BALANCE_REJECTED"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"

	// Validation
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error carried inside the relay and rendered on
// the HTTP surface
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

func UnknownEvent(event string) *AppError {
	return New(ErrCodeUnknownEvent, fmt.Sprintf("unknown event %q", event))
}

func MalformedMessage(reason string, cause error) *AppError {
	return Wrap(ErrCodeMalformedMessage, fmt.Sprintf("malformed message: %s", reason), cause)
}

func MessageTooLarge(limit int64) *AppError {
	return New(ErrCodeMessageTooLarge, fmt.Sprintf("message exceeds %d bytes", limit))
}

func NotRegistered(connectionID string) *AppError {
	return New(ErrCodeNotRegistered, fmt.Sprintf("connection %s has not requested a match", connectionID))
}

func NotPaired(connectionID string) *AppError {
	return New(ErrCodeNotPaired, fmt.Sprintf("connection %s has no partner", connectionID))
}

func BalanceRejected(reason string) *AppError {
	return New(ErrCodeBalanceRejected, fmt.Sprintf("balance change rejected: %s", reason))
}

func InsufficientBalance(balance, delta int64) *AppError {
	return New(ErrCodeInsufficientBalance, "Insufficient balance").
		WithDetails(map[string]int64{"balance": balance, "delta": delta})
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
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
