package logging

import (
	"net"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentByDefault(t *testing.T) {
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
	defer SetLogger(nil)

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	core := GetLogger().Core()
	if !core.Enabled(zapcore.WarnLevel) || core.Enabled(zapcore.InfoLevel) {
		t.Error("expected warn level from environment")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"loud", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFieldHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Debug("register write", Word("value", 0x0e01), Addr("addr", 0xbd003000))
	LogFrame("tx", net.HardwareAddr{0, 1, 2, 3, 4, 5}, net.HardwareAddr{6, 7, 8, 9, 10, 11}, []byte{0x12, 0x00})
	Warn("payload", Hex("payload", []byte{0xde, 0xad}))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["value"] != "0x0e01" || fields["addr"] != "0xbd003000" {
		t.Errorf("register fields = %v", fields)
	}

	frame := entries[1].ContextMap()
	if frame["hex"] != "1200" || frame["direction"] != "tx" || frame["src"] != "00:01:02:03:04:05" {
		t.Errorf("frame fields = %v", frame)
	}

	if got := entries[2].ContextMap()["payload"]; got != "dead" || entries[2].Level != zapcore.WarnLevel {
		t.Errorf("payload entry = %v at %v", got, entries[2].Level)
	}
}

func TestHexDumpTruncates(t *testing.T) {
	got := hexDump(make([]byte, maxDump+10))
	if !strings.HasSuffix(got, "...") || len(got) != 2*maxDump+3 {
		t.Errorf("hexDump length = %d", len(got))
	}
	if hexDump(nil) != "" {
		t.Error("empty input should give an empty dump")
	}
}
