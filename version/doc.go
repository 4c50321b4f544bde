// Package version provides the library's build identity and the update check.
//
// Resolve reads the module version the host binary recorded for this
// library, so an importing application reports the real release it depends
// on. Release tooling can pin the version instead via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/augmentkit/version.Version=1.4.0"
//
// CheckForUpdates compares the running version against the latest one on the
// module proxy and warns when behind. It is gated by the library settings
// (update_check, offline) and the AUGMENTKIT_NO_UPDATE_CHECK environment
// variable, and its result is cached on disk for a day.
package version
