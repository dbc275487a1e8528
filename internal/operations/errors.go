package operations

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeUpstream     ErrorType = "upstream"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeFatal        ErrorType = "fatal"
)

// OperationError represents a step-specific error
type OperationError struct {
	Type      ErrorType              `json:"type"`
	Step      string                 `json:"step,omitempty"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"cause,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	switch {
	case e.Cause != nil && msg == "":
		msg = e.Cause.Error()
	case e.Cause != nil:
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(step, message string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeValidation,
		Step:    step,
		Message: message,
	}
}

// NewExecutionError creates a new execution error
func NewExecutionError(step string, cause error, retryable bool) *OperationError {
	return &OperationError{
		Type:      ErrorTypeExecution,
		Step:      step,
		Message:   "step execution failed",
		Cause:     cause,
		Retryable: retryable,
	}
}

// NewUpstreamError classifies a failed feed request. Server errors, rate
// limiting and request timeouts are retryable; other statuses are not.
func NewUpstreamError(source string, status int, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeUpstream,
		Message: fmt.Sprintf("%s request failed", source),
		Cause:   cause,
		Context: map[string]interface{}{
			"source": source,
			"status": status,
		},
		Retryable: RetryableStatus(status),
	}
}

// NewTransportError wraps a network level failure, which is always retryable
func NewTransportError(source string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeUpstream,
		Message: fmt.Sprintf("%s request failed", source),
		Cause:   cause,
		Context: map[string]interface{}{
			"source": source,
		},
		Retryable: !errors.Is(cause, context.Canceled),
	}
}

// NewCancellationError creates a new cancellation error
func NewCancellationError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "operation was cancelled",
		Cause:   cause,
	}
}

// NewFatalError creates a new fatal error
func NewFatalError(message string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeFatal,
		Message: message,
		Cause:   cause,
	}
}

// RetryableStatus reports whether an HTTP status is worth retrying
func RetryableStatus(status int) bool {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// IsRetryable checks if an error is retryable. Network timeouts are
// retryable even when not wrapped in an OperationError.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Retryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}

// WrapError wraps an error with step context. An OperationError found in
// the chain lends its type, context and retryability to the new error; it
// is never modified, and err stays the Cause so outer context is kept.
func WrapError(err error, step string, message string) *OperationError {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		if step == "" {
			step = opErr.Step
		}
		return &OperationError{
			Type:      opErr.Type,
			Step:      step,
			Message:   message,
			Cause:     err,
			Context:   opErr.Context,
			Retryable: opErr.Retryable,
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		wrapped := NewCancellationError(step, err)
		if message != "" {
			wrapped.Message = fmt.Sprintf("%s: %s", message, wrapped.Message)
		}
		return wrapped
	}

	return &OperationError{
		Type:    ErrorTypeExecution,
		Step:    step,
		Message: message,
		Cause:   err,
	}
}
