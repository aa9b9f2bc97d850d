package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeConnection    ErrorType = "CONNECTION_ERROR"
	ErrorTypeEmptyResponse ErrorType = "EMPTY_RESPONSE_ERROR"
	ErrorTypeParse         ErrorType = "PARSE_ERROR"
)

// AppError represents a structured error for the application.
// StatusCode is the provider's HTTP status when the error came from an
// HTTP exchange, zero otherwise. RawText carries the provider output that
// failed to parse so callers can log it without showing it to the user.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode,omitempty"`
	RawText    string    `json:"-"`
	Err        error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewConfigurationError reports missing or incomplete settings, or a
// generation attempt that cannot proceed (e.g. empty inventory). The
// provider is never contacted for these.
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConfiguration,
		Message: message,
	}
}

// NewConnectionError reports a non-2xx HTTP status or a network-level
// failure while talking to the provider. status is zero when no response
// was received.
func NewConnectionError(message string, status int, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeConnection,
		Message:    message,
		StatusCode: status,
		Err:        err,
	}
}

// NewEmptyResponseError reports a successful HTTP call whose body carried
// no usable text. Kept distinct from connection failures so the user can
// tell the provider responded but produced nothing.
func NewEmptyResponseError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeEmptyResponse,
		Message: message,
	}
}

// NewParseError reports provider text that could not be turned into
// recipes. raw is the original model output, for logging only.
func NewParseError(message string, raw string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeParse,
		Message: message,
		RawText: raw,
		Err:     err,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

func IsConfigurationError(err error) bool { return IsType(err, ErrorTypeConfiguration) }
func IsConnectionError(err error) bool    { return IsType(err, ErrorTypeConnection) }
func IsEmptyResponseError(err error) bool { return IsType(err, ErrorTypeEmptyResponse) }
func IsParseError(err error) bool         { return IsType(err, ErrorTypeParse) }
