package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Construction-time errors
const (
	// ErrCodeConfiguration indicates an invalid pipeline definition: a
	// probability or weight outside its domain, an empty group, a malformed
	// parameter schema, or a transform declaring a capability it does not
	// implement.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeUnsupportedRole indicates a bundle role whose kind no active
	// transform supports, or a role name that is neither canonical nor a
	// declared alias.
	ErrCodeUnsupportedRole ErrorCode = "UNSUPPORTED_ROLE"
)

// Execution-time errors
const (
	// ErrCodeTransformFailed indicates a transform apply function failed for
	// a payload/parameter combination. The walk is aborted and partial
	// output discarded.
	ErrCodeTransformFailed ErrorCode = "TRANSFORM_EXECUTION_ERROR"
	// ErrCodeTraceMismatch indicates a replay trace that does not
	// structurally match the pipeline tree in use.
	ErrCodeTraceMismatch ErrorCode = "TRACE_MISMATCH"
)

// Input and internal errors
const (
	// ErrCodeInvalidInput indicates malformed caller input outside the role
	// system, such as a bundle without a canvas-bearing payload or label
	// columns of unequal length.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
