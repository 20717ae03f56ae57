package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Process execution errors
	ErrCodeSpawnFailed    ErrorCode = "SPAWN_FAILED"
	ErrCodeCommandTimeout ErrorCode = "COMMAND_TIMEOUT"
	ErrCodeCommandFailed  ErrorCode = "COMMAND_FAILED"

	// Build orchestration errors
	ErrCodeInvalidOperation  ErrorCode = "INVALID_OPERATION"
	ErrCodeProjectInvalid    ErrorCode = "PROJECT_INVALID"
	ErrCodeHybridStageFailed ErrorCode = "HYBRID_STAGE_FAILED"

	// Session errors
	ErrCodeSessionBusy     ErrorCode = "SESSION_BUSY"
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionClosed   ErrorCode = "SESSION_CLOSED"

	// History store errors
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// AnvilError represents a structured error with context
type AnvilError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AnvilError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AnvilError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AnvilError) WithDetail(key string, value interface{}) *AnvilError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *AnvilError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new AnvilError
func New(code ErrorCode, message string) *AnvilError {
	return &AnvilError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AnvilError
func Wrap(err error, code ErrorCode, message string) *AnvilError {
	return &AnvilError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific AnvilError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	anvilErr, ok := err.(*AnvilError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return anvilErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	anvilErr, ok := err.(*AnvilError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return anvilErr.Code
}
