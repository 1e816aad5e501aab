// Package metrics records upload statistics as Prometheus metrics.
//
// A Recorder owns its own registry so that one CLI invocation produces one
// self-contained set of samples, which can be written to a node_exporter
// textfile collector with WriteTextfile. All Recorder methods are safe to
// call on a nil receiver.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures a Recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "wasp").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for upload duration.
	Buckets []float64
}

// Option configures a Recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "wasp",
		// Stage-1 takes seconds, a stage-2 session up to two minutes
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}
}

// Recorder collects the metrics of upload runs.
type Recorder struct {
	registry *prometheus.Registry

	uploadsTotal    *prometheus.CounterVec
	uploadDuration  *prometheus.HistogramVec
	chunksSent      *prometheus.CounterVec
	bytesSent       *prometheus.CounterVec
	registerOps     *prometheus.CounterVec
	packetsIgnored  *prometheus.CounterVec
	sessionRestarts prometheus.Counter
}

// New creates a Recorder with a private registry.
func New(opts ...Option) *Recorder {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "uploads_total",
			Help:        "Upload runs by stage and result",
			ConstLabels: cfg.ConstLabels,
		}, []string{"stage", "result"}),

		uploadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "upload_duration_seconds",
			Help:        "Upload run duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"stage"}),

		chunksSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "chunks_sent_total",
			Help:        "Data chunks handed to the device",
			ConstLabels: cfg.ConstLabels,
		}, []string{"stage", "download"}),

		bytesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "bytes_sent_total",
			Help:        "Image bytes handed to the device",
			ConstLabels: cfg.ConstLabels,
		}, []string{"stage", "download"}),

		registerOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "register_operations_total",
			Help:        "Stage-1 register reads and writes",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op"}),

		packetsIgnored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "packets_ignored_total",
			Help:        "Stage-2 frames dropped without a state change",
			ConstLabels: cfg.ConstLabels,
		}, []string{"reason"}),

		sessionRestarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "session_restarts_total",
			Help:        "Stage-2 sessions restarted by a repeated discovery",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ChunkSent counts one chunk of n image bytes.
func (r *Recorder) ChunkSent(stage, download string, n int) {
	if r == nil {
		return
	}
	r.chunksSent.WithLabelValues(stage, download).Inc()
	r.bytesSent.WithLabelValues(stage, download).Add(float64(n))
}

// RegisterAccess counts one register read or write.
func (r *Recorder) RegisterAccess(op string) {
	if r == nil {
		return
	}
	r.registerOps.WithLabelValues(op).Inc()
}

// PacketIgnored counts a dropped stage-2 frame.
func (r *Recorder) PacketIgnored(reason string) {
	if r == nil {
		return
	}
	r.packetsIgnored.WithLabelValues(reason).Inc()
}

// SessionRestarted counts a discovery that restarted a running session.
func (r *Recorder) SessionRestarted() {
	if r == nil {
		return
	}
	r.sessionRestarts.Inc()
}

// UploadFinished records the outcome of one run.
func (r *Recorder) UploadFinished(stage string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.uploadsTotal.WithLabelValues(stage, Result(err)).Inc()
	r.uploadDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile writes every metric in text exposition format to path,
// atomically, for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return errors.New("metrics recorder not initialized")
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// resultClassifier is implemented by errors that name their own result label.
type resultClassifier interface {
	MetricResult() string
}

// Result returns the result label for err: "success", or the error's own
// class when it provides one, else "error".
func Result(err error) string {
	if err == nil {
		return "success"
	}
	var rc resultClassifier
	if errors.As(err, &rc) {
		return rc.MetricResult()
	}
	return "error"
}
