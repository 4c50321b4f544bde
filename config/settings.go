package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kbukum/augmentkit/logger"
)

// Settings contains the library-level knobs. Everything here has a working
// default; a config file or AUGMENTKIT_* environment variables override it.
//
// Example:
//
//	telemetry: false
//	update_check: true
//	cache_dir: /var/cache/augmentkit
//	logging:
//	  level: warn
type Settings struct {
	// Telemetry enables anonymous usage reporting.
	Telemetry bool `yaml:"telemetry" mapstructure:"telemetry"`
	// TelemetryEndpoint overrides the collection endpoint when set.
	TelemetryEndpoint string `yaml:"telemetry_endpoint" mapstructure:"telemetry_endpoint"`
	// UpdateCheck enables the once-a-day new-version lookup.
	UpdateCheck bool `yaml:"update_check" mapstructure:"update_check"`
	// Offline disables every network call the library would make on its own.
	Offline bool `yaml:"offline" mapstructure:"offline"`
	// CacheDir is where the library keeps small cache files, like the
	// update-check result.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	// Logging configures the library logger.
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() *Settings {
	s := &Settings{
		Telemetry:   true,
		UpdateCheck: true,
	}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills the unset non-boolean fields.
func (s *Settings) ApplyDefaults() {
	if s.CacheDir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			s.CacheDir = filepath.Join(base, "augmentkit")
		}
	}
	s.Logging.ApplyDefaults()
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	if err := s.Logging.Validate(); err != nil {
		return fmt.Errorf("settings.logging: %w", err)
	}
	return nil
}

// LoadSettings loads settings from the resolved config file, .env file, and
// AUGMENTKIT_* environment variables, on top of the defaults.
func LoadSettings(opts ...LoaderOption) (*Settings, error) {
	s := DefaultSettings()
	if err := LoadConfig(s, opts...); err != nil {
		return nil, err
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

var (
	defaultSettings *Settings
	defaultOnce     sync.Once
)

// Default returns the memoized process-wide settings. A load failure falls
// back to the defaults, so the caller always gets usable settings.
func Default() *Settings {
	defaultOnce.Do(func() {
		s, err := LoadSettings()
		if err != nil {
			s = DefaultSettings()
		}
		defaultSettings = s
	})
	return defaultSettings
}
