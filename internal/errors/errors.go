package errors

import (
	"errors"
	"fmt"
)

// AppError is an application-specific error type
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// wraps an error with a code and message
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain, or "" if none
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether any AppError in err's chain carries code
func HasCode(err error, code string) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// ErrChannelDuplicated reports that a handle has already been submitted for analysis
func ErrChannelDuplicated(handle string) *AppError {
	return New(CodeDuplicate, fmt.Sprintf("channel %s has already been analyzed", handle))
}

// ErrChannelNotFound reports that the video platform has no channel for a handle
func ErrChannelNotFound(handle string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("channel %s not found", handle))
}

// Error code constants
const (
	CodeInternal          = "INTERNAL_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidArg        = "INVALID_ARGUMENT"
	CodeExternal          = "EXTERNAL_ERROR"     // Transient failure talking to YouTube or the LLM
	CodeMalformedResponse = "MALFORMED_RESPONSE" // LLM output could not be parsed
	CodeDuplicate         = "DUPLICATE"          // Channel handle already recorded
	CodeUnavailable       = "UNAVAILABLE"        // Worker queue is full
	CodeConflict          = "CONFLICT"           // Resource already exists (UNIQUE violation)
	CodeDependency        = "DEPENDENCY_ERROR"   // Foreign key constraint violation
)
