package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/muurk/canmon/internal/protocol"
	"github.com/muurk/canmon/internal/stats"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "CANMON_LOG_LEVEL"

// maxDumpBytes caps hex and ascii dumps in log fields
const maxDumpBytes = 256

// ParseLevel maps a level name onto a zap level, ignoring case.
// Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Initialize creates a new logger with the specified level.
// If level is empty, it checks CANMON_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	// Colour only on a terminal
	if term.IsTerminal(int(os.Stderr.Fd())) {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// InitializeFromEnv initializes the logger from the CANMON_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger (used by tests to capture output)
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogFrame logs a decoded frame at debug level
func LogFrame(cf protocol.ClassifiedFrame) {
	Debug("Frame decoded",
		zap.Uint32("timestamp_us", cf.Timestamp),
		zap.String("id", fmt.Sprintf("0x%03X", cf.ID)),
		zap.Stringer("category", cf.Category),
		zap.Uint8("node", cf.Node),
		zap.Uint8("dlc", cf.DLC),
		zap.String("data", hex.EncodeToString(cf.Data)),
		zap.Uint8("flags", cf.Flags),
	)
}

// LogPacketError logs a dropped packet attempt
func LogPacketError(err error) {
	kind, _ := protocol.KindOf(err)
	Warn("Packet dropped",
		zap.Stringer("kind", kind),
		zap.Error(err),
	)
}

// LogStats logs a statistics snapshot with per-category and per-node counts
func LogStats(s stats.Snapshot) {
	fields := []zap.Field{
		zap.Duration("runtime", s.Elapsed),
		zap.Uint64("packets", s.TotalPackets),
		zap.Uint64("frames", s.TotalFrames),
		zap.String("rate", fmt.Sprintf("%.1f msg/s", s.Rate())),
		zap.Uint64("errors", s.Errors),
	}
	if len(s.ErrorsByKind) > 0 {
		fields = append(fields, zap.Any("errors_by_kind", s.ErrorsByKind))
	}

	categories := make(map[string]uint64, len(s.Categories))
	for _, cc := range s.SortedCategories() {
		categories[cc.Category.String()] = cc.Count
	}
	fields = append(fields, zap.Any("categories", categories))

	nodes := make(map[string]uint64, len(s.Nodes))
	for _, nc := range s.SortedNodes() {
		nodes[fmt.Sprintf("%d", nc.Node)] = nc.Count
	}
	fields = append(fields, zap.Any("nodes", nodes))

	Info("Statistics", fields...)
}

// LogConnection logs a live-feed client event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogHTTPRequest logs a served HTTP request at debug level
func LogHTTPRequest(method, path, remoteAddr string, status int) {
	Debug("HTTP request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("remote_addr", remoteAddr),
		zap.Int("status", status),
	)
}

// LogRawBytes logs raw bytes (useful for debugging framing issues)
func LogRawBytes(label string, data []byte) {
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
		zap.String("ascii", asciiDump(data)),
	)
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpBytes {
		return hex.EncodeToString(data[:maxDumpBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) > maxDumpBytes {
		data = data[:maxDumpBytes]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
