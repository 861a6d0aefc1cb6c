package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// Kind classifies an error into one of the store's error categories.
type Kind string

const (
	// Caller errors
	KindValidation             Kind = "VALIDATION"
	KindNotFound               Kind = "NOT_FOUND"
	KindAlreadyExists          Kind = "ALREADY_EXISTS"
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	KindBatchTooLarge          Kind = "BATCH_TOO_LARGE"
	KindInvalidNamespace       Kind = "INVALID_NAMESPACE"

	// Schema errors
	KindInvalidSchema      Kind = "INVALID_SCHEMA"
	KindCircularDependency Kind = "CIRCULAR_DEPENDENCY"

	// Provider errors
	KindCapabilityNotSupported Kind = "CAPABILITY_NOT_SUPPORTED"
	KindTransactionClosed      Kind = "TRANSACTION_CLOSED"
	KindEmbeddingBackend       Kind = "EMBEDDING_BACKEND"
	KindSubscriber             Kind = "SUBSCRIBER"
	KindInternal               Kind = "INTERNAL"
)

// AppError is the error value returned by every public operation of the store.
type AppError struct {
	Kind       Kind                   `json:"kind"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail entry
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

// Constructor functions for common error kinds

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		StackTrace: captureStackTrace(),
	}
}

// NewNotFoundError creates a not found error for a resource
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		StackTrace: captureStackTrace(),
	}
}

// NewAlreadyExistsError creates a duplicate-id error
func NewAlreadyExistsError(resource string) *AppError {
	return &AppError{
		Kind:       KindAlreadyExists,
		Message:    fmt.Sprintf("%s already exists", resource),
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewInvalidStateTransitionError creates an illegal action transition error
func NewInvalidStateTransitionError(from, to string) *AppError {
	return &AppError{
		Kind:       KindInvalidStateTransition,
		Message:    fmt.Sprintf("cannot transition action from %q to %q", from, to),
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewBatchTooLargeError creates an oversized-batch error
func NewBatchTooLargeError(size, limit int) *AppError {
	return &AppError{
		Kind:       KindBatchTooLarge,
		Message:    fmt.Sprintf("batch size %d exceeds limit %d", size, limit),
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Details:    map[string]interface{}{"size": size, "limit": limit},
		StackTrace: captureStackTrace(),
	}
}

// NewInvalidNamespaceError creates a namespace validation error
func NewInvalidNamespaceError(namespace string) *AppError {
	return &AppError{
		Kind:       KindInvalidNamespace,
		Message:    fmt.Sprintf("invalid namespace %q", namespace),
		HTTPStatus: http.StatusBadRequest,
		StackTrace: captureStackTrace(),
	}
}

// NewInvalidSchemaError creates a schema parse error with the field path
func NewInvalidSchemaError(fieldPath, message string) *AppError {
	return &AppError{
		Kind:       KindInvalidSchema,
		Message:    fmt.Sprintf("invalid schema at %s: %s", fieldPath, message),
		Details:    map[string]interface{}{"field": fieldPath},
		HTTPStatus: http.StatusBadRequest,
		StackTrace: captureStackTrace(),
	}
}

// NewCircularDependencyError creates a cycle error carrying the cycle path
func NewCircularDependencyError(cycle []string) *AppError {
	return &AppError{
		Kind:       KindCircularDependency,
		Message:    fmt.Sprintf("circular dependency detected: %v", cycle),
		Details:    map[string]interface{}{"cycle": cycle},
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewCapabilityNotSupportedError creates an unsupported-capability error
// with a suggested alternative for the caller.
func NewCapabilityNotSupportedError(capability, alternative string) *AppError {
	e := &AppError{
		Kind:       KindCapabilityNotSupported,
		Message:    fmt.Sprintf("capability %q is not supported by this provider", capability),
		HTTPStatus: http.StatusNotImplemented,
		StackTrace: captureStackTrace(),
	}
	if alternative != "" {
		e.Details = map[string]interface{}{"alternative": alternative}
	}
	return e
}

// NewTransactionClosedError creates a closed-transaction error
func NewTransactionClosedError(status string) *AppError {
	return &AppError{
		Kind:       KindTransactionClosed,
		Message:    fmt.Sprintf("transaction is %s", status),
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewEmbeddingBackendError wraps a failure of the injected embedding provider
func NewEmbeddingBackendError(err error) *AppError {
	return &AppError{
		Kind:       KindEmbeddingBackend,
		Message:    "embedding provider failed",
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
		StackTrace: captureStackTrace(),
	}
}

// NewSubscriberError wraps a failure inside an event handler
func NewSubscriberError(pattern string, err error) *AppError {
	return &AppError{
		Kind:       KindSubscriber,
		Message:    fmt.Sprintf("event handler for pattern %q failed", pattern),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsKind checks if an error is of a specific kind
func IsKind(err error, kind Kind) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Kind == kind
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}

// IsAlreadyExists checks if an error is a duplicate-id error
func IsAlreadyExists(err error) bool {
	return IsKind(err, KindAlreadyExists)
}

// IsInvalidStateTransition checks if an error is an illegal transition error
func IsInvalidStateTransition(err error) bool {
	return IsKind(err, KindInvalidStateTransition)
}

// IsCircularDependency checks if an error is a cycle error
func IsCircularDependency(err error) bool {
	return IsKind(err, KindCircularDependency)
}

// IsTransactionClosed checks if an error is a closed-transaction error
func IsTransactionClosed(err error) bool {
	return IsKind(err, KindTransactionClosed)
}

// IsInvalidSchema checks if an error is a schema parse error
func IsInvalidSchema(err error) bool {
	return IsKind(err, KindInvalidSchema)
}

// IsBatchTooLarge checks if an error is an oversized-batch error
func IsBatchTooLarge(err error) bool {
	return IsKind(err, KindBatchTooLarge)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	// Otherwise create a new internal error
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
