// Package config provides configuration management for the CANopen monitor.
//
// The configuration is a versioned YAML file holding the serial link
// settings, decode loop tuning and the optional HTTP listen address. The
// default file location follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/canmon/config.yaml or $HOME/.config/canmon/config.yaml
//   - macOS: $HOME/.config/canmon/config.yaml
//   - Windows: %LOCALAPPDATA%\canmon\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Serial.Port = "/dev/ttyUSB0"
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
//
// Missing fields take their defaults (115200 baud, 1s read timeout, 10s
// statistics interval, 1000 frames of history). Command-line flags are
// applied on top of the loaded file by the caller.
package config
