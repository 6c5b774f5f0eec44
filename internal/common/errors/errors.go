// Package errors provides the closed error taxonomy shared by the template
// catalog client and the submission orchestrator.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Read paths: list, versions, schema, pre-flight, node pool.
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
	ErrCodeTemplateNotFound   ErrorCode = "TEMPLATE_NOT_FOUND"

	// Execution path.
	ErrCodeDispatchRejected    ErrorCode = "DISPATCH_REJECTED"
	ErrCodeDispatchUnavailable ErrorCode = "DISPATCH_UNAVAILABLE"

	ErrCodeUnknown ErrorCode = "UNKNOWN_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	// Reason is the human-readable cause supplied by the server, if any.
	Reason    string                 `json:"reason,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewCatalogUnavailableError creates a retryable read-path error.
// operation names the catalog call, err is the transport or decode cause.
func NewCatalogUnavailableError(operation string, err error) *StandardError {
	details := fmt.Sprintf("operation: %s", operation)
	if err != nil {
		details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeCatalogUnavailable,
		Message:   "Workflow catalog is unavailable",
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMalformedResponseError is a CatalogUnavailable error for a body that
// does not satisfy the wire contract.
func NewMalformedResponseError(operation string, violations []string) *StandardError {
	e := NewCatalogUnavailableError(operation, nil)
	e.Details = fmt.Sprintf("operation: %s, malformed response: %s", operation, strings.Join(violations, "; "))
	return e.WithMetadata("violations", violations)
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(uid, version string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Workflow template not found",
		Details:   fmt.Sprintf("uid: %s, version: %s", uid, version),
		Retryable: false,
		Metadata:  map[string]interface{}{"uid": uid, "version": version},
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchRejectedError is returned when the server refused the
// submission. reason is the server-supplied message and may be empty.
func NewDispatchRejectedError(status int, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchRejected,
		Message:   "Workflow execution was rejected",
		Details:   fmt.Sprintf("status: %d", status),
		Reason:    reason,
		Retryable: false,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchUnavailableError wraps a transport failure or 5xx on dispatch.
// It is retryable by the user, never automatically.
func NewDispatchUnavailableError(status int, reason string, err error) *StandardError {
	details := fmt.Sprintf("status: %d", status)
	if err != nil {
		details = fmt.Sprintf("status: %d, error: %s", status, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeDispatchUnavailable,
		Message:   "Workflow execution service is unavailable",
		Details:   details,
		Reason:    reason,
		Retryable: true,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of err, or ErrCodeUnknown for foreign errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ErrCodeUnknown
}

// Normalize converts any error into the closed taxonomy. Foreign errors on
// the given operation become CatalogUnavailable.
func Normalize(operation string, err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return NewCatalogUnavailableError(operation, err)
}

// IsRetryableErrorCode reports whether re-invoking the same user action can
// succeed.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeCatalogUnavailable, ErrCodeDispatchUnavailable:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "DISPATCH"):
		return "DISPATCH"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.HasPrefix(codeStr, "CATALOG"):
		return "CATALOG"
	default:
		return "OTHER"
	}
}
