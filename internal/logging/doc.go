// Package logging provides structured logging for the CANopen monitor.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the monitor, plus helpers for decoded frames,
// dropped packets and statistics reports.
//
// # Log Levels
//
//   - Debug: Every decoded frame, raw byte dumps
//   - Info: Connections, statistics reports, shutdown
//   - Warn: Dropped packets (bad magic, truncation, checksum mismatch)
//   - Error: Transport failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// With an empty level the CANMON_LOG_LEVEL environment variable is used, and
// when that is unset too the logger is silent. Logs go to stderr so that the
// frame listing on stdout can be piped.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The global logger is
// expected to be set once during startup.
package logging
