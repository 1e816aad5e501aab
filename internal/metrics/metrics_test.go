package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type classifiedError struct{ class string }

func (e *classifiedError) Error() string        { return e.class }
func (e *classifiedError) MetricResult() string { return e.class }

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.ChunkSent("stage2", "firmware", 1020)
	r.ChunkSent("stage2", "firmware", 1024)
	r.ChunkSent("stage2", "config", 100)
	r.RegisterAccess("write")
	r.PacketIgnored("unknown_response")
	r.SessionRestarted()

	if got := testutil.ToFloat64(r.chunksSent.WithLabelValues("stage2", "firmware")); got != 2 {
		t.Errorf("firmware chunks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.bytesSent.WithLabelValues("stage2", "firmware")); got != 2044 {
		t.Errorf("firmware bytes = %v, want 2044", got)
	}
	if got := testutil.ToFloat64(r.bytesSent.WithLabelValues("stage2", "config")); got != 100 {
		t.Errorf("config bytes = %v, want 100", got)
	}
	if got := testutil.ToFloat64(r.packetsIgnored.WithLabelValues("unknown_response")); got != 1 {
		t.Errorf("ignored = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.sessionRestarts); got != 1 {
		t.Errorf("restarts = %v, want 1", got)
	}
}

func TestRecorder_UploadFinished(t *testing.T) {
	r := New()

	r.UploadFinished("stage1", 2*time.Second, nil)
	r.UploadFinished("stage1", time.Second, &classifiedError{class: "timeout"})
	r.UploadFinished("stage1", time.Second, fmt.Errorf("wrapped: %w", &classifiedError{class: "protocol"}))
	r.UploadFinished("stage1", time.Second, errors.New("plain"))

	for result, want := range map[string]float64{"success": 1, "timeout": 1, "protocol": 1, "error": 1} {
		if got := testutil.ToFloat64(r.uploadsTotal.WithLabelValues("stage1", result)); got != want {
			t.Errorf("uploads{result=%s} = %v, want %v", result, got, want)
		}
	}

	if n := testutil.CollectAndCount(r.uploadDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder

	// None of these may panic
	r.ChunkSent("stage1", "firmware", 14)
	r.RegisterAccess("read")
	r.PacketIgnored("x")
	r.SessionRestarted()
	r.UploadFinished("stage1", time.Second, nil)

	if r.Registry() != nil {
		t.Error("nil recorder returned a registry")
	}
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err == nil {
		t.Error("expected error writing from nil recorder")
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New(WithNamespace("wasptest"))
	r.ChunkSent("stage1", "firmware", 14)

	path := filepath.Join(t.TempDir(), "wasp.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `wasptest_chunks_sent_total{download="firmware",stage="stage1"} 1`) {
		t.Errorf("textfile missing chunk counter:\n%s", data)
	}
}
