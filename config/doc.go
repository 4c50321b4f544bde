// Package config loads the library-level settings.
//
// Settings come from three layered sources: an optional YAML config file
// (augmentkit.yaml in the working directory, ./config, or the user config
// directory), an optional .env file, and AUGMENTKIT_* environment variables.
// Later sources override earlier ones, and everything has a working default,
// so using the library requires no configuration at all.
//
// Most callers only need the memoized accessor:
//
//	settings := config.Default()
//	if settings.Telemetry {
//		// ...
//	}
//
// Loading explicitly is useful when the file locations are known, and the
// loaded logging section is what hosts hand to the logger:
//
//	settings, err := config.LoadSettings(
//		config.WithConfigFile("testdata/augmentkit.yml"),
//	)
//	logger.Init(settings.Logging)
//
// The FileSystem interface abstracts file access so tests can resolve config
// files against a fake filesystem.
package config
