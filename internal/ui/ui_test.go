package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestHeader_SortedParams(t *testing.T) {
	h := NewHeader("Stage 1 Upload", "wasp-uploader stage1", map[string]string{
		"Transport": "sysfs",
		"Image":     "fw.bin",
		"Profile":   "3390-sysfs",
	}).SetWidth(80)

	out := h.Render()
	if !strings.Contains(out, "STAGE 1 UPLOAD") {
		t.Error("title not upper-cased")
	}
	i, p, tr := strings.Index(out, "Image:"), strings.Index(out, "Profile:"), strings.Index(out, "Transport:")
	if i < 0 || p < 0 || tr < 0 || !(i < p && p < tr) {
		t.Errorf("params not sorted: Image=%d Profile=%d Transport=%d", i, p, tr)
	}
}

func TestResult_Render(t *testing.T) {
	ok := NewSuccessResult("Upload complete", map[string]string{"Chunks": "8"}).SetWidth(80).Render()
	if !strings.Contains(ok, "SUCCESS") || !strings.Contains(ok, "Chunks:") {
		t.Errorf("success box missing content:\n%s", ok)
	}

	fail := NewFailureResult("Upload failed", errors.New("boom"), []string{"Reset the device"}).SetWidth(80).Render()
	for _, want := range []string{"FAILED", "Error: boom", "Troubleshooting:", "Reset the device"} {
		if !strings.Contains(fail, want) {
			t.Errorf("failure box missing %q", want)
		}
	}
}

func TestResult_Warning(t *testing.T) {
	out := NewWarningResult("Dry run", nil).AddDetail("Device", "simulated").SetWidth(80).String()
	for _, want := range []string{"WARNING", WarningMarker, "Device:", "simulated"} {
		if !strings.Contains(out, want) {
			t.Errorf("warning box missing %q", want)
		}
	}
}

func TestClampWidth(t *testing.T) {
	tests := []struct{ in, want int }{
		{10, MinTerminalWidth},
		{80, 80},
		{300, MaxContentWidth},
	}
	for _, tt := range tests {
		if got := clampWidth(tt.in); got != tt.want {
			t.Errorf("clampWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestProgress_Steps(t *testing.T) {
	p := NewProgress("", 4)
	p.SetStepNames([]string{"a", "b", "c", "d"})

	p.StartStep(1, "")
	p.CompleteStep(1, "")
	if p.Percent != 0.25 {
		t.Errorf("Percent = %v, want 0.25", p.Percent)
	}

	p.StartStep(2, "")
	p.SetStepFraction(2, 0.5)
	if p.Percent != 0.375 {
		t.Errorf("Percent = %v, want 0.375", p.Percent)
	}

	p.UpdateStep(3, StepSkipped, "")
	p.UpdateStep(99, StepComplete, "") // ignored
	if p.Steps[2].Status != StepSkipped {
		t.Error("step 3 not skipped")
	}
}

func TestUploadRunner(t *testing.T) {
	var out bytes.Buffer
	r := NewUploadRunner(UploadRunnerConfig{
		Title:   "Stage 2 Upload",
		Command: "wasp-uploader stage2",
		Phases: []Phase{
			{Key: "listening", Name: "Waiting for device"},
			{Key: "firmware", Name: "Sending firmware"},
			{Key: "config", Name: "Sending config"},
			{Key: "complete", Name: "Device started"},
		},
		Output: &out,
	})

	details, err := r.Run(context.Background(), func(ctx context.Context, onPhase PhaseCallback) (map[string]string, error) {
		onPhase("listening", 0, "")
		onPhase("firmware", 0.5, "chunk 1/2")
		onPhase("firmware", 1, "chunk 2/2")
		onPhase("listening", 0, "") // backwards, ignored
		onPhase("unknown", 0, "")   // not a step, ignored
		onPhase("complete", 1, "")
		return map[string]string{"Peer": "00:04:0e:aa:bb:cc"}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if details["Duration"] == "" {
		t.Error("Duration not added to details")
	}

	s := r.progress.Steps
	if s[0].Status != StepComplete || s[1].Status != StepComplete || s[2].Status != StepSkipped || s[3].Status != StepComplete {
		t.Errorf("step statuses = %v %v %v %v", s[0].Status, s[1].Status, s[2].Status, s[3].Status)
	}

	text := out.String()
	for _, want := range []string{"STAGE 2 UPLOAD", "Sending firmware", "chunk 2/2", "SUCCESS"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestUploadRunner_Failure(t *testing.T) {
	var out bytes.Buffer
	boom := errors.New("device not ready")
	r := NewUploadRunner(UploadRunnerConfig{
		Title:        "Stage 1 Upload",
		Phases:       []Phase{{Key: "handshake", Name: "Checking device"}},
		Output:       &out,
		Troubleshoot: func(error) []string { return []string{"Reset the coprocessor"} },
	})

	_, err := r.Run(context.Background(), func(ctx context.Context, onPhase PhaseCallback) (map[string]string, error) {
		onPhase("handshake", 0, "")
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v", err)
	}
	if r.progress.Steps[0].Status != StepFailed {
		t.Error("running step not marked failed")
	}
	if !strings.Contains(out.String(), "Reset the coprocessor") {
		t.Error("troubleshooting tip not printed")
	}
}

func TestConfirm(t *testing.T) {
	title, warnings, disclaimer := uploadWarning("stage1")
	if title != "STAGE1 FIRMWARE UPLOAD" {
		t.Errorf("title = %q", title)
	}

	tests := []struct {
		input string
		want  bool
	}{
		{"I AGREE\n", true},
		{"  I AGREE  \n", true},
		{"i agree\n", false},
		{"", false},
		{"I AGREE", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if got := confirm(strings.NewReader(tt.input), &out, title, warnings, disclaimer); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTrace_MaxLines(t *testing.T) {
	lines := []string{"STATUS <- 0x0c01", "DATA1 <- 0xbd00", "DATA2 <- 0x3000", "STATUS <- 0x0801"}

	out := NewTrace(lines).SetWidth(80).SetMaxLines(2).Render()
	if !strings.Contains(out, "2 more lines") || strings.Contains(out, "DATA2") {
		t.Errorf("trace not truncated:\n%s", out)
	}

	filtered := NewTrace(lines).FilterContains("STATUS")
	if len(filtered.Lines) != 2 {
		t.Errorf("FilterContains kept %d lines, want 2", len(filtered.Lines))
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Name", "Stage"}, [][]string{{"3390-mdio", "1"}, {"stage2-eth", "2"}})
	for _, want := range []string{"Name", "3390-mdio", "stage2-eth"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q", want)
		}
	}
}
