// Package errors provides unified error handling for the augmentkit engine.
// It implements structured error types with machine-readable codes covering
// the engine's failure taxonomy: configuration, unsupported roles, transform
// execution, and trace mismatches.
package errors
