// Package paths resolves configuration, data and schema file locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDataDirName is the CWD-relative data directory name.
const DefaultDataDirName = ".entrack-db"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "ENTRACK_CONFIG_DIR"
	EnvDataDir   = "ENTRACK_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/entrack (fallback ~/.config/entrack)
// macOS:   ~/Library/Application Support/entrack
// Windows: %APPDATA%/entrack
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "entrack"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "entrack"), nil
	default:
		// macOS and Windows use os.UserConfigDir which returns
		// ~/Library/Application Support on macOS and %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "entrack"), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > ENTRACK_CONFIG_DIR env > DefaultConfigDir().
//
// If flag is non-empty it wins. Otherwise the ENTRACK_CONFIG_DIR environment
// variable is checked. If neither is set, the platform default is returned.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > ENTRACK_DATA_DIR env > $(CWD)/.entrack-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// DefaultSchemaFile is the schema file name looked up in the config
// directory when config.yaml does not name one.
const DefaultSchemaFile = "schema.yaml"

// ResolveSchemaPath returns the schema file location. A relative
// configured path is taken relative to configDir; an empty one means
// configDir/schema.yaml.
func ResolveSchemaPath(configDir, configured string) string {
	if configured == "" {
		return filepath.Join(configDir, DefaultSchemaFile)
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(configDir, configured)
}
