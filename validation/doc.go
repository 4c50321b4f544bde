// Package validation provides input validation utilities for augmentkit
// configuration.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Struct tag validation is
// recommended for YAML pipeline definitions; the programmatic validator fits
// numeric policy fields with domain constraints.
//
// # Struct Tag Validation
//
//	type Definition struct {
//	    Name     string   `yaml:"name" validate:"required"`
//	    Pipeline *nodeDef `yaml:"pipeline" validate:"required"`
//	}
//	err := validation.Validate(&def)
//
// # Programmatic Validation
//
//	v := validation.New().
//	    Probability("min_visibility", policy.MinVisibility).
//	    NonNegative("min_area", policy.MinArea)
//	err := v.Validate()
package validation
