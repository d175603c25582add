package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "kasascan"
	configFile = "config.yaml"

	// CurrentVersion is the settings schema version this build reads
	// and writes.
	CurrentVersion = 1
)

// Settings is the process configuration, loaded once at startup and
// never mutated afterwards.
type Settings struct {
	Version int           `yaml:"version"`
	Scan    ScanSettings  `yaml:"scan"`
	Watch   WatchSettings `yaml:"watch"`

	// DataDir overrides where the baseline, snapshot, and scan log are
	// written. Empty selects the platform default.
	DataDir string `yaml:"data_dir,omitempty"`

	Cloud CloudSettings `yaml:"cloud"`
}

// ScanSettings are defaults for discovery rounds.
type ScanSettings struct {
	// TimeoutSeconds is the reply collection window.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Sort is the default ordering key for scan output.
	Sort string `yaml:"sort"`

	// Energy includes telemetry columns by default.
	Energy bool `yaml:"energy"`
}

// WatchSettings are defaults for the watch loop.
type WatchSettings struct {
	// IntervalSeconds is the pause between rounds.
	IntervalSeconds int `yaml:"interval_seconds"`
}

// CloudSettings configure the optional cloud account integration.
// Passwords are never stored; they are prompted when needed.
type CloudSettings struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Username string `yaml:"username,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		Version: CurrentVersion,
		Scan:    ScanSettings{TimeoutSeconds: 5, Sort: "name"},
		Watch:   WatchSettings{IntervalSeconds: 5},
	}
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/kasascan or $HOME/.config/kasascan
//   - macOS: $HOME/.config/kasascan (following XDG convention)
//   - Windows: %LOCALAPPDATA%\kasascan
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			return filepath.Join(userProfile, "AppData", "Local", appName), nil
		}
		return filepath.Join(localAppData, appName), nil

	default:
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the settings file at the platform path, returning defaults
// when it doesn't exist.
func Load() (*Settings, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a settings file from an explicit path.
func LoadFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if s.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", s.Version, CurrentVersion)
	}
	if s.Scan.TimeoutSeconds <= 0 {
		s.Scan.TimeoutSeconds = Default().Scan.TimeoutSeconds
	}
	if s.Watch.IntervalSeconds <= 0 {
		s.Watch.IntervalSeconds = Default().Watch.IntervalSeconds
	}
	return s, nil
}

// Save writes the settings atomically to an explicit path, creating the
// directory if needed.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# kasascan configuration file
#
# Security note: cloud passwords are NEVER stored in this file. They
# are always prompted when needed.

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move config file into place: %w", err)
	}
	return nil
}
