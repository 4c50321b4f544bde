// Package telemetry reports anonymous pipeline composition statistics:
// transform names, target kinds, and coarse environment info. No payload
// data ever leaves the process.
//
// Collection is disabled automatically under tests and CI, and can be turned
// off with AUGMENTKIT_NO_TELEMETRY=1 or AUGMENTKIT_OFFLINE=1. Sends are
// deduplicated per pipeline shape, rate limited, fire-and-forget, and never
// surface errors to the caller.
package telemetry
