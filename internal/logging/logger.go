package logging

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar names the level used when none is passed to Initialize.
// Unset means silent.
const LogLevelEnvVar = "WASP_LOG_LEVEL"

// maxDump bounds hex dumps; a full stage-2 payload is 1028 bytes.
const maxDump = 256

// Initialize installs the global logger at level, falling back to
// WASP_LOG_LEVEL. With neither set the uploader logs nothing.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := zap.Config{
		Level:         zap.NewAtomicLevelAt(ParseLevel(level)),
		Encoding:      "console",
		EncoderConfig: enc,
		// stdout carries the progress display
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogger returns the global logger, a no-op one before Initialize.
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// SetLogger replaces the global logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Word renders a 16-bit register value as 0xNNNN.
func Word(key string, v uint16) zap.Field {
	return zap.String(key, fmt.Sprintf("0x%04x", v))
}

// Addr renders a 32-bit load address or checksum as 0xNNNNNNNN.
func Addr(key string, v uint32) zap.Field {
	return zap.String(key, fmt.Sprintf("0x%08x", v))
}

// Hex renders a packet payload as hex, cut at maxDump bytes.
func Hex(key string, data []byte) zap.Field {
	return zap.String(key, hexDump(data))
}

// LogFrame traces one raw Ethernet frame crossing the link.
func LogFrame(direction string, src, dst net.HardwareAddr, data []byte) {
	if ce := GetLogger().Check(zapcore.DebugLevel, "frame"); ce != nil {
		ce.Write(
			zap.String("direction", direction),
			zap.Stringer("src", src),
			zap.Stringer("dst", dst),
			zap.Int("length", len(data)),
			Hex("hex", data),
		)
	}
}

func hexDump(data []byte) string {
	if len(data) > maxDump {
		return hex.EncodeToString(data[:maxDump]) + "..."
	}
	return hex.EncodeToString(data)
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
