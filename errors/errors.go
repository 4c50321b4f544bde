package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the unified engine error type.
type Error struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// --- Engine Error Constructors ---

// Configuration creates a new Error for an invalid pipeline definition.
// These are detected eagerly at construction, before any data is processed.
func Configuration(reason string) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: reason}
}

// ConfigurationAt creates a configuration Error located at a tree node.
func ConfigurationAt(node, reason string) *Error {
	return &Error{
		Code: ErrCodeConfiguration, Message: reason,
		Details: map[string]any{"node": node},
	}
}

// UnsupportedRole creates a new Error for a bundle role the active pipeline
// cannot handle.
func UnsupportedRole(role, kind string) *Error {
	details := map[string]any{"role": role}
	if kind != "" {
		details["kind"] = kind
	}
	return &Error{
		Code:    ErrCodeUnsupportedRole,
		Message: fmt.Sprintf("no active transform supports role %q", role),
		Details: details,
	}
}

// UnknownRole creates a new Error for a role name that is neither canonical
// nor declared as an alias.
func UnknownRole(role string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedRole,
		Message: fmt.Sprintf("role %q is not a known target and no alias declares it", role),
		Details: map[string]any{"role": role},
	}
}

// TransformFailed creates a new Error for a transform apply failure at the
// given tree node. The cause is preserved for unwrapping.
func TransformFailed(node, name string, cause error) *Error {
	return &Error{
		Code:    ErrCodeTransformFailed,
		Message: fmt.Sprintf("transform %q failed", name),
		Details: map[string]any{"node": node, "transform": name},
		Cause:   cause,
	}
}

// TraceMismatch creates a new Error for a replay trace that does not match
// the pipeline structure at the given node path.
func TraceMismatch(node, reason string) *Error {
	details := make(map[string]any)
	if node != "" {
		details["node"] = node
	}
	return &Error{
		Code:    ErrCodeTraceMismatch,
		Message: fmt.Sprintf("trace does not match pipeline: %s", reason),
		Details: details,
	}
}

// InvalidInput creates a new Error for invalid caller input.
func InvalidInput(field, reason string) *Error {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &Error{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new Error carrying an aggregated validation message.
func Validation(message string) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: message}
}

// Internal creates a new Error for an unexpected internal failure.
func Internal(cause error) *Error {
	return &Error{
		Code:    ErrCodeInternal,
		Message: "an unexpected internal error occurred",
		Cause:   cause,
	}
}

// --- Inspection Helpers ---

// Is reports whether err carries the given engine error code anywhere in its
// chain.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the engine error code carried by err, or the empty code
// when err is not an engine error.
func GetCode(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError converts err to an engine *Error if possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Wrap converts an arbitrary error into an engine *Error. Engine errors pass
// through unchanged; anything else becomes an internal error with the
// original as cause.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	return Internal(err)
}
