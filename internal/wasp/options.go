package wasp

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/waspflash/internal/metrics"
	"github.com/muurk/waspflash/internal/profile"
	"github.com/muurk/waspflash/internal/protocol"
)

// Config holds the engine configuration shared by Stage1 and Stage2.
type Config struct {
	// Logger receives protocol tracing (default: no-op)
	Logger *zap.Logger

	// Progress is called as the upload advances (optional)
	Progress ProgressCallback

	// Metrics records counters for the run (optional)
	Metrics *metrics.Recorder

	// Stage1 parameters: addresses, codes, timing and start handshake
	Stage1 profile.Stage1

	// Stage2 parameters: load address, chunk size and timing
	Stage2 profile.Stage2

	// Checksum overrides the stage-1 profile's checksum mode
	Checksum protocol.ChecksumFunc

	// MAC overrides the stage-1 profile's assigned address
	MAC net.HardwareAddr
}

func defaultConfig() Config {
	return Config{
		Logger: zap.NewNop(),
		Stage1: profile.DefaultStage1(),
		Stage2: profile.DefaultStage2(),
	}
}

// Option is a functional option for configuring Stage1 and Stage2.
type Option func(*Config)

// WithLogger sets the logger for protocol tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithProgress sets a callback to track upload progress.
//
// Example:
//
//	s := wasp.NewStage1(link, wasp.WithProgress(func(p wasp.Progress) {
//	    fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	}))
func WithProgress(callback ProgressCallback) Option {
	return func(c *Config) {
		c.Progress = callback
	}
}

// WithMetrics sets the recorder for upload metrics.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(c *Config) {
		c.Metrics = recorder
	}
}

// WithProfile applies the parameters of a catalog profile. Later options
// override individual values.
func WithProfile(p *profile.Profile) Option {
	return func(c *Config) {
		if p == nil {
			return
		}
		if p.Stage1 != nil {
			c.Stage1 = *p.Stage1
		}
		if p.Stage2 != nil {
			c.Stage2 = *p.Stage2
		}
	}
}

// WithChecksum replaces the stage-1 checksum function.
func WithChecksum(fn protocol.ChecksumFunc) Option {
	return func(c *Config) {
		c.Checksum = fn
	}
}

// WithMAC sets the address assigned to the device after stage-1 starts.
func WithMAC(mac net.HardwareAddr) Option {
	return func(c *Config) {
		c.MAC = mac
	}
}

// WithPollTimeout bounds every stage-1 wait.
func WithPollTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Stage1.PollTimeout = timeout
			c.Stage1.HandshakeTimeout = timeout
		}
	}
}

// WithPollInterval sets the stage-1 register polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.Stage1.PollInterval = interval
		}
	}
}

// WithStartDelay sets the settle time between the last data chunk and the
// start handshake.
func WithStartDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.Stage1.StartDelay = delay
		}
	}
}

// WithWriteSettle sets the pause after each stage-1 command write.
func WithWriteSettle(settle time.Duration) Option {
	return func(c *Config) {
		if settle >= 0 {
			c.Stage1.WriteSettle = settle
		}
	}
}

// WithSessionTimeout bounds a whole stage-2 run.
func WithSessionTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Stage2.SessionTimeout = timeout
		}
	}
}

// WithRecvInterval sets how long each stage-2 receive waits for a frame.
func WithRecvInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.Stage2.RecvInterval = interval
		}
	}
}

func (c *Config) report(p Progress) {
	if c.Progress != nil {
		c.Progress(p)
	}
}
