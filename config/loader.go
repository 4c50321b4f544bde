package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/augmentkit/logger"
)

// EnvPrefix is the prefix shared by every environment variable the library
// reads.
const EnvPrefix = "AUGMENTKIT_"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver handles finding and resolving config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths if provided, otherwise searches the
// standard locations.
func (cr *Resolver) ResolveFiles(opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.findConfigFile()
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.findEnvFile()
	}

	return resolved
}

// findConfigFile searches for an augmentkit config file in the working
// directory, its config/ subdirectory, and the user config directory.
func (cr *Resolver) findConfigFile() string {
	searchPaths := []string{
		"./augmentkit.yaml",
		"./augmentkit.yml",
		"./config/augmentkit.yaml",
		"./config/augmentkit.yml",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(dir, "augmentkit", "config.yaml"),
			filepath.Join(dir, "augmentkit", "config.yml"),
		)
	}

	for _, path := range searchPaths {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches for .env files near the working directory.
func (cr *Resolver) findEnvFile() string {
	envFiles := []string{".env.augmentkit", ".env"}
	prefixes := []string{".", "./config"}

	for _, envFile := range envFiles {
		for _, prefix := range prefixes {
			fullPath := prefix + "/" + envFile
			if cr.FileSystem.Exists(fullPath) {
				return fullPath
			}
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig loads configuration into the provided cfg struct. It searches
// for a config file and a .env file in the standard locations, binds
// AUGMENTKIT_* environment variables, and unmarshals the result into cfg.
// Fields absent from every source keep the values cfg already holds.
func LoadConfig(cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(lc)

	return loadFromResolvedFiles(cfg, files, lc.FileSystem)
}

// loadFromResolvedFiles loads configuration from specific files.
func loadFromResolvedFiles(cfg interface{}, files ResolvedFiles, fs FileSystem) error {
	v := viper.New()

	// 1. Load the YAML config first (base configuration)
	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("failed to load config file",
				logger.Fields("path", files.ConfigFile, "error", err.Error()))
		}
	}

	// 2. Bind AUGMENTKIT_* environment variables
	bindEnvVars(v)

	// 3. Load the .env file
	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("failed to load .env file",
				logger.Fields("path", files.EnvFile, "error", err.Error()))
		} else {
			// Re-bind env vars after loading .env to pick up new variables
			bindEnvVars(v)
		}
	}

	// 4. Unmarshal into the config struct
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// bindEnvVars binds AUGMENTKIT_* environment variables to viper keys.
// The prefix is stripped and the remainder lowercased, so
// AUGMENTKIT_TELEMETRY_ENDPOINT becomes telemetry_endpoint. LOG_* variables
// map into the nested logging section, so AUGMENTKIT_LOG_LEVEL becomes
// logging.level. Variables that match no settings field are ignored at
// unmarshal time.
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], EnvPrefix) {
			continue
		}

		key := strings.ToLower(strings.TrimPrefix(pair[0], EnvPrefix))
		if rest, ok := strings.CutPrefix(key, "log_"); ok {
			v.Set("logging."+rest, pair[1])
			continue
		}
		v.Set(key, pair[1])
	}
}
