// Package errors defines the tagged error kinds used across the entropy
// validation service. Errors that can be reported synchronously (admission,
// configuration) and errors that must be recorded on the job row share the
// same AppError shape so callers can branch on the code.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"

	// ErrCodeCapacityExceeded indicates a submitter (or the worker pool) is at
	// its limit of in-flight validation jobs.
	ErrCodeCapacityExceeded ErrorCode = "capacity_exceeded"
	// ErrCodeConfiguration indicates an internally inconsistent chunk-size policy.
	ErrCodeConfiguration ErrorCode = "configuration"
	// ErrCodeInsufficientData indicates the requested window holds no records,
	// or fewer bits than the suite's minimum.
	ErrCodeInsufficientData ErrorCode = "insufficient_data"
	// ErrCodeExecutorUnavailable indicates the external test executor is unreachable.
	ErrCodeExecutorUnavailable ErrorCode = "executor_unavailable"
	// ErrCodeExecutorCall indicates a non-transport failure of an executor call.
	ErrCodeExecutorCall ErrorCode = "executor_call"
	// ErrCodeNotCompleted indicates a result was requested before the job completed.
	ErrCodeNotCompleted ErrorCode = "not_completed"
)

// AppError represents a structured application error with a code, message, and
// optional cause. It supports error wrapping and unwrapping for use with
// errors.Is and errors.As.
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

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// CapacityExceeded creates a new CapacityExceeded error.
func CapacityExceeded(message string) *AppError {
	return &AppError{Code: ErrCodeCapacityExceeded, Message: message}
}

// CapacityExceededf creates a new CapacityExceeded error with formatted message.
func CapacityExceededf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

// Configuration creates a new Configuration error.
func Configuration(message string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: message}
}

// InsufficientData creates a new InsufficientData error.
func InsufficientData(message string) *AppError {
	return &AppError{Code: ErrCodeInsufficientData, Message: message}
}

// InsufficientDataf creates a new InsufficientData error with formatted message.
func InsufficientDataf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInsufficientData, Message: fmt.Sprintf(format, args...)}
}

// ExecutorUnavailable creates a new ExecutorUnavailable error.
func ExecutorUnavailable(message string) *AppError {
	return &AppError{Code: ErrCodeExecutorUnavailable, Message: message}
}

// ExecutorCall creates a new ExecutorCall error.
func ExecutorCall(message string) *AppError {
	return &AppError{Code: ErrCodeExecutorCall, Message: message}
}

// NotCompleted creates a new NotCompleted error.
func NotCompleted(message string) *AppError {
	return &AppError{Code: ErrCodeNotCompleted, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsCapacityExceeded checks if an error is a CapacityExceeded error.
func IsCapacityExceeded(err error) bool {
	return isCode(err, ErrCodeCapacityExceeded)
}

// IsConfiguration checks if an error is a Configuration error.
func IsConfiguration(err error) bool {
	return isCode(err, ErrCodeConfiguration)
}

// IsInsufficientData checks if an error is an InsufficientData error.
func IsInsufficientData(err error) bool {
	return isCode(err, ErrCodeInsufficientData)
}

// IsExecutorUnavailable checks if an error is an ExecutorUnavailable error.
func IsExecutorUnavailable(err error) bool {
	return isCode(err, ErrCodeExecutorUnavailable)
}

// IsExecutorCall checks if an error is an ExecutorCall error.
func IsExecutorCall(err error) bool {
	return isCode(err, ErrCodeExecutorCall)
}

// IsNotCompleted checks if an error is a NotCompleted error.
func IsNotCompleted(err error) bool {
	return isCode(err, ErrCodeNotCompleted)
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
