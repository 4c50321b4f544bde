// Package testutil provides ready-made transform units for testing
// pipelines: a geometric shift, a photometric brightness change, a
// call-counting marker, and an always-failing unit.
package testutil
