package main

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/muurk/waspflash/internal/protocol"
	"github.com/muurk/waspflash/internal/transport"
	"github.com/muurk/waspflash/internal/wasp"
)

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		values []string
		want   string
	}{
		{nil, ""},
		{[]string{"", ""}, ""},
		{[]string{"", "eth1", "eth0"}, "eth1"},
		{[]string{"eth2", "eth1"}, "eth2"},
	}

	for _, tt := range tests {
		if got := firstNonEmpty(tt.values...); got != tt.want {
			t.Errorf("firstNonEmpty(%q) = %q, want %q", tt.values, got, tt.want)
		}
	}
}

func TestArgAt(t *testing.T) {
	args := []string{"fw.bin"}
	if got := argAt(args, 0); got != "fw.bin" {
		t.Errorf("argAt(0) = %q", got)
	}
	if got := argAt(args, 1); got != "" {
		t.Errorf("argAt(1) = %q, want empty", got)
	}
}

func TestTroubleshoot(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		contain string
	}{
		{
			name:    "input",
			err:     &wasp.InputError{Path: "fw.bin", Reason: "file too big"},
			contain: "65535 bytes",
		},
		{
			name: "missing registers",
			err: &wasp.TransportError{Stage: wasp.StageOne, State: "Idle", Op: "check registers",
				Err: &transport.RegisterError{Register: protocol.RegStatus, Op: "read", Err: transport.ErrRegisterMissing}},
			contain: "--sysfs-path",
		},
		{
			name:    "transport",
			err:     &wasp.TransportError{Stage: wasp.StageTwo, State: "Listening", Op: "open eth0", Err: fmt.Errorf("permission denied")},
			contain: "Run as root",
		},
		{
			name:    "stage2 timeout",
			err:     &wasp.TimeoutError{Stage: wasp.StageTwo, State: "Listening", Waiting: "device discovery", Timeout: time.Minute},
			contain: "wasp-uploader stage1",
		},
		{
			name:    "cancelled",
			err:     &wasp.TimeoutError{Stage: wasp.StageOne, State: "Idle", Waiting: "STATUS", Err: context.Canceled},
			contain: "interrupted",
		},
		{
			name:    "not ready",
			err:     &wasp.ProtocolError{Stage: wasp.StageOne, State: "Idle", Kind: wasp.NotReady},
			contain: "not idle",
		},
		{
			name:    "rejected",
			err:     &wasp.ProtocolError{Stage: wasp.StageOne, State: "Transferring", Kind: wasp.ChunkRejected, Chunk: 3},
			contain: "wasp-uploader profiles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tips := troubleshoot(tt.err)
			joined := strings.Join(tips, "\n")
			if !strings.Contains(joined, tt.contain) {
				t.Errorf("tips missing %q:\n%s", tt.contain, joined)
			}
			if !strings.Contains(joined, "Reset the coprocessor") {
				t.Error("tips should always ask for a reset")
			}
		})
	}
}

func TestPhaseReporter(t *testing.T) {
	var gotPhase, gotNote string
	var gotFraction float64
	report := phaseReporter(func(phase string, fraction float64, note string) {
		gotPhase, gotFraction, gotNote = phase, fraction, note
	})

	report(wasp.Progress{Phase: wasp.PhaseTransfer, Chunk: 3, TotalChunks: 4, Percentage: 75})
	if gotPhase != wasp.PhaseTransfer || gotFraction != 0.75 || gotNote != "chunk 3/4" {
		t.Errorf("got (%q, %v, %q)", gotPhase, gotFraction, gotNote)
	}

	report(wasp.Progress{Phase: wasp.PhaseListening})
	if gotNote != "" {
		t.Errorf("note = %q, want empty without chunks", gotNote)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"stage1", "stage2", "checksum", "profiles", "config", "verify-setup", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
