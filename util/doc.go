// Package util provides generic utility functions used across augmentkit.
//
// It includes slice operations, pointer helpers, map utilities, and numeric
// clamping used by the geometry filters.
package util
