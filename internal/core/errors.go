package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Missing or malformed input
	ErrCatTrigger    ErrorCategory = "trigger"    // Remote refused to start a run
	ErrCatPoll       ErrorCategory = "poll"       // Status read failed while waiting
	ErrCatArtifact   ErrorCategory = "artifact"   // Artifact locate/download/extract failed
	ErrCatChild      ErrorCategory = "child"      // Nested command failed
	ErrCatExecution  ErrorCategory = "execution"  // Runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatAuth       ErrorCategory = "auth"       // Authentication failure
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrMissingParams creates a validation error naming every missing key.
func ErrMissingParams(keys []string) *DomainError {
	return ErrValidation(CodeMissingParams,
		"required parameters are missing: "+strings.Join(keys, ", ")).
		WithDetail("keys", keys)
}

// ErrTrigger creates a trigger error. Trigger errors are fatal to the owning command.
func ErrTrigger(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTrigger,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrPoll creates a polling error.
func ErrPoll(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatPoll,
		Code:      CodePollFailed,
		Message:   message,
		Retryable: true,
	}
}

// ErrArtifactImport creates an artifact import error.
func ErrArtifactImport(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatArtifact,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrChildExecution creates an error describing a failed nested command.
func ErrChildExecution(child, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatChild,
		Code:      CodeChildFailed,
		Message:   fmt.Sprintf("child %s failed: %s", child, message),
		Retryable: false,
		Details: map[string]interface{}{
			"child": child,
		},
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      "AUTH_FAILED",
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	// Validation error codes
	CodeMissingParams    = "MISSING_PARAMS"
	CodeInvalidParam     = "INVALID_PARAM"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeInvalidContext   = "INVALID_CONTEXT"
	CodeUnknownOperation = "UNKNOWN_OPERATION"
	CodeUnknownKind      = "UNKNOWN_COMMAND_KIND"

	// Trigger error codes
	CodeTriggerRejected = "TRIGGER_REJECTED"
	CodeNotStarted      = "PIPELINE_NOT_STARTED"
	CodeRunNotFound     = "RUN_NOT_FOUND"
	CodeBranchLookup    = "DEFAULT_BRANCH_LOOKUP_FAILED"

	// Runtime error codes
	CodePollFailed      = "POLL_FAILED"
	CodeNoArtifacts     = "NO_ARTIFACTS"
	CodeArtifactFetch   = "ARTIFACT_DOWNLOAD_FAILED"
	CodeArtifactExtract = "ARTIFACT_EXTRACT_FAILED"
	CodeChildFailed     = "CHILD_FAILED"
	CodeDivisionByZero  = "DIVISION_BY_ZERO"
	CodeCommandPanicked = "COMMAND_PANICKED"
)
