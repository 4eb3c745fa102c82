package config

import "time"

// CurrentVersion is the only config file version this build understands
const CurrentVersion = 1

// Config represents the entire monitor configuration file
type Config struct {
	Version  int            `yaml:"version"`
	LogLevel string         `yaml:"log_level,omitempty"` // debug, info, warn, error (empty = silent)
	Serial   *SerialConfig  `yaml:"serial,omitempty"`
	Monitor  *MonitorConfig `yaml:"monitor,omitempty"`
	HTTP     *HTTPConfig    `yaml:"http,omitempty"`
}

// SerialConfig describes the link to the gateway
type SerialConfig struct {
	Port        string        `yaml:"port,omitempty"`         // e.g. /dev/ttyUSB0 or COM3
	BaudRate    int           `yaml:"baud_rate"`              // Default 115200
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty"` // Default 1s
}

// MonitorConfig tunes the decode loop
type MonitorConfig struct {
	StatsInterval  time.Duration `yaml:"stats_interval"`             // Period of statistics reports
	HistorySize    int           `yaml:"history_size"`               // Frames retained for inspection
	MaxRecords     int           `yaml:"max_records"`                // Largest record count accepted in a header
	Resync         bool          `yaml:"resync"`                     // Scan for the next magic after corruption
	MaxResyncBytes int           `yaml:"max_resync_bytes,omitempty"` // Bound on one resync scan
	VerifyChecksum bool          `yaml:"verify_checksum"`            // Reject packets with a bad CRC trailer
	PrintFrames    bool          `yaml:"print_frames"`               // Print each frame to stdout
}

// HTTPConfig controls the live feed and metrics endpoint
type HTTPConfig struct {
	Listen string `yaml:"listen,omitempty"` // e.g. 127.0.0.1:9100 (empty = disabled)
}
