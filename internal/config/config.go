package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "canmon"
	configFile = "config.yaml"
)

// Defaults for the gateway link and reporting cadence
const (
	DefaultBaudRate       = 115200
	DefaultReadTimeout    = time.Second
	DefaultStatsInterval  = 10 * time.Second
	DefaultHistorySize    = 1000
	DefaultMaxRecords     = 256
	DefaultMaxResyncBytes = 4096
)

// ValidationError reports an invalid configuration field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
//   - Linux: $XDG_CONFIG_HOME/canmon or $HOME/.config/canmon
//   - macOS: $HOME/.config/canmon
//   - Windows: %LOCALAPPDATA%\canmon
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Default returns a configuration populated with default values
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Serial: &SerialConfig{
			BaudRate:    DefaultBaudRate,
			ReadTimeout: DefaultReadTimeout,
		},
		Monitor: &MonitorConfig{
			StatsInterval:  DefaultStatsInterval,
			HistorySize:    DefaultHistorySize,
			MaxRecords:     DefaultMaxRecords,
			MaxResyncBytes: DefaultMaxResyncBytes,
			PrintFrames:    true,
		},
		HTTP: &HTTPConfig{},
	}
}

// Load reads the configuration at path. An empty path means the default
// location; a missing default file yields Default().
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, filling unset fields with defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults replaces sections the file set to null
func (c *Config) applyDefaults() {
	d := Default()
	if c.Serial == nil {
		c.Serial = d.Serial
	}
	if c.Monitor == nil {
		c.Monitor = d.Monitor
	}
	if c.HTTP == nil {
		c.HTTP = d.HTTP
	}
}

// Validate checks every field for a usable value
func (c *Config) Validate() error {
	c.applyDefaults()

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}

	if c.Serial.BaudRate <= 0 {
		return &ValidationError{Field: "serial.baud_rate", Message: "must be positive"}
	}
	if c.Serial.ReadTimeout <= 0 {
		return &ValidationError{Field: "serial.read_timeout", Message: "must be positive"}
	}

	m := c.Monitor
	if m.StatsInterval <= 0 {
		return &ValidationError{Field: "monitor.stats_interval", Message: "must be positive"}
	}
	if m.HistorySize <= 0 {
		return &ValidationError{Field: "monitor.history_size", Message: "must be positive"}
	}
	if m.MaxRecords <= 0 || m.MaxRecords > 0xFFFF {
		return &ValidationError{Field: "monitor.max_records", Message: "must be between 1 and 65535"}
	}
	if m.MaxResyncBytes < 0 {
		return &ValidationError{Field: "monitor.max_resync_bytes", Message: "must not be negative"}
	}

	return nil
}

// Save writes the configuration to path atomically. An empty path means the
// default location.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# CANopen Monitor Configuration File
#
# Durations use Go syntax (e.g. 500ms, 10s). Command-line flags override
# the values stored here.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
