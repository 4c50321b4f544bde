// Package transform defines the engine's boundary with transform units: the
// Transform interface, one applier interface per role kind, a registry for
// named lookup, and decorators that instrument apply calls.
//
// A unit declares a stable name, a fire probability, a parameter schema, and
// the role kinds it supports. The declared kinds are the source of truth for
// dispatch; the matching applier interfaces are checked eagerly when a
// pipeline is built, so an unsupported combination fails at construction
// time, not mid-walk.
//
// Units can be written as plain structs implementing the interfaces, or
// assembled from functions:
//
//	unit, err := transform.New(transform.Config{
//	    Name:   "hflip",
//	    P:      0.5,
//	    Image:  flipImage,
//	    Boxes:  flipBoxes,
//	})
package transform
