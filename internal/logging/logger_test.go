package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/canmon/internal/protocol"
	"github.com/muurk/canmon/internal/stats"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = prev })
	return logs
}

func TestInitialize_SilentWithoutLevel(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !GetLogger().Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"Warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogFrame(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogFrame(protocol.ClassifyFrame(protocol.Frame{ID: 0x081, DLC: 1, Data: []byte{0x01}}))

	entries := logs.FilterMessage("Frame decoded").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["id"] != "0x081" {
		t.Errorf("id = %v, want 0x081", fields["id"])
	}
	if fields["category"] != "EMERGENCY" {
		t.Errorf("category = %v, want EMERGENCY", fields["category"])
	}
	if fields["data"] != "01" {
		t.Errorf("data = %v, want 01", fields["data"])
	}
}

func TestLogPacketError(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	LogPacketError(&protocol.DeframeError{Kind: protocol.KindBadMagic, Message: "invalid magic"})

	entries := logs.FilterMessage("Packet dropped").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
	if kind := entries[0].ContextMap()["kind"]; kind != "bad_magic" {
		t.Errorf("kind = %v, want bad_magic", kind)
	}
}

func TestLogStats(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	agg := stats.NewAggregator()
	agg.RecordPacket()
	agg.RecordFrame(protocol.ClassifyFrame(protocol.Frame{ID: 0x181}))
	agg.RecordError(protocol.KindTruncatedRecord)
	LogStats(agg.Snapshot())

	entries := logs.FilterMessage("Statistics").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["frames"] != uint64(1) {
		t.Errorf("frames = %v, want 1", fields["frames"])
	}
	if fields["errors"] != uint64(1) {
		t.Errorf("errors = %v, want 1", fields["errors"])
	}
	if _, ok := fields["errors_by_kind"]; !ok {
		t.Error("errors_by_kind should be present when errors were recorded")
	}
}

func TestDumps(t *testing.T) {
	if got := asciiDump([]byte("CAN\x00\x7f")); got != "CAN.." {
		t.Errorf("asciiDump() = %q, want %q", got, "CAN..")
	}
	if got := hexDump([]byte{0xDE, 0xAD}); got != "dead" {
		t.Errorf("hexDump() = %q, want %q", got, "dead")
	}

	long := make([]byte, maxDumpBytes+10)
	if got := hexDump(long); !strings.HasSuffix(got, "...") || len(got) != maxDumpBytes*2+3 {
		t.Errorf("hexDump() of %d bytes should be truncated, got len %d", len(long), len(got))
	}
	if got := asciiDump(long); len(got) != maxDumpBytes {
		t.Errorf("asciiDump() len = %d, want %d", len(got), maxDumpBytes)
	}
}

func TestLogConnection(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogConnection("127.0.0.1:5000", "websocket_upgraded")
	LogHTTPRequest("GET", "/stats", "127.0.0.1:5000", 200)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["event"]; got != "websocket_upgraded" {
		t.Errorf("event = %v, want websocket_upgraded", got)
	}
	if got := entries[1].ContextMap()["status"]; got != int64(200) {
		t.Errorf("status = %v (%T), want 200", got, got)
	}
}
