package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Phase is one named step of an upload.
type Phase struct {
	Key  string // Phase identifier reported by the engine (e.g., "transfer")
	Name string // Display name (e.g., "Transferring image")
}

// UploadRunnerConfig holds configuration for an upload command execution
type UploadRunnerConfig struct {
	Title   string            // Command title (e.g., "Stage 1 Upload")
	Command string            // Full command (e.g., "wasp-uploader stage1")
	Params  map[string]string // Parameters to display in header
	Phases  []Phase           // Steps in the order the engine reports them
	Output  io.Writer         // Output writer (default: os.Stdout)

	// Troubleshoot returns tips for a failure (optional)
	Troubleshoot func(error) []string
}

// UploadRunner orchestrates the UI for one upload.
// It manages the header → steps → result flow and turns engine phase
// reports into step lines.
type UploadRunner struct {
	config    UploadRunnerConfig
	header    *Header
	progress  *Progress
	output    io.Writer
	startTime time.Time
	width     int
	current   int // running step, 1-based, zero before the first phase
	shown     int // last whole percentage printed for the running step
}

// PhaseCallback reports that the upload is in phase, with the phase's own
// completion (0.0 - 1.0) and an optional note.
type PhaseCallback func(phase string, fraction float64, note string)

// UploadOperation is the function signature for the actual upload.
// It returns details for the success box.
type UploadOperation func(ctx context.Context, onPhase PhaseCallback) (map[string]string, error)

// NewUploadRunner creates a new runner for an upload command
func NewUploadRunner(config UploadRunnerConfig) *UploadRunner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	header := NewHeader(config.Title, config.Command, config.Params)
	header.SetWidth(width)

	progress := NewProgress("", len(config.Phases))
	progress.SetWidth(width)
	for i, p := range config.Phases {
		progress.Steps[i].Name = p.Name
	}

	return &UploadRunner{
		config:   config,
		header:   header,
		progress: progress,
		output:   config.Output,
		width:    width,
		shown:    -1,
	}
}

// Run executes the upload with UI updates.
// It displays the header, tracks phases, and shows the result.
func (r *UploadRunner) Run(ctx context.Context, operation UploadOperation) (map[string]string, error) {
	r.startTime = time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(ctx, r.onPhase)
	duration := time.Since(r.startTime)

	if err != nil {
		r.finishStep(StepFailed, "")
		r.printFailure(err)
	} else {
		r.finishStep(StepComplete, "")
		r.printSuccess(details, duration)
	}

	return details, err
}

func (r *UploadRunner) onPhase(phase string, fraction float64, note string) {
	idx := r.stepFor(phase)
	if idx == 0 {
		return
	}

	if idx != r.current {
		if idx < r.current {
			// Steps only move forward
			return
		}
		r.finishStep(StepComplete, "")
		for i := r.current + 1; i < idx; i++ {
			r.progress.UpdateStep(i, StepSkipped, "")
			r.printStep(i, true)
		}
		r.current = idx
		r.shown = -1
		r.progress.StartStep(idx, note)
	}

	r.progress.Steps[idx-1].Message = note
	r.progress.SetStepFraction(idx, fraction)

	pct := int(fraction * 100)
	if pct == r.shown {
		return
	}
	r.shown = pct
	r.printStep(idx, false)
}

func (r *UploadRunner) stepFor(phase string) int {
	for i, p := range r.config.Phases {
		if p.Key == phase {
			return i + 1
		}
	}
	return 0
}

// finishStep closes the running step with status.
func (r *UploadRunner) finishStep(status StepStatus, message string) {
	if r.current == 0 {
		return
	}
	step := r.progress.Steps[r.current-1]
	if step.Status != StepRunning {
		return
	}
	if message == "" {
		message = step.Message
	}
	r.progress.UpdateStep(r.current, status, message)
	r.printStep(r.current, true)
}

// printStep prints a step line. Running steps end in a carriage return so
// the next update overwrites them.
func (r *UploadRunner) printStep(n int, final bool) {
	line := r.progress.renderStepLine(r.progress.Steps[n-1])
	if final {
		_, _ = fmt.Fprintln(r.output, line+"\x1b[K")
		return
	}
	_, _ = fmt.Fprint(r.output, line+"\x1b[K\r")
}

func (r *UploadRunner) printSuccess(details map[string]string, duration time.Duration) {
	_, _ = fmt.Fprintln(r.output)

	if details == nil {
		details = make(map[string]string)
	}
	details["Duration"] = duration.Round(time.Millisecond).String()

	result := NewSuccessResult(r.config.Title+" complete", details)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
}

func (r *UploadRunner) printFailure(err error) {
	_, _ = fmt.Fprintln(r.output)

	var tips []string
	if r.config.Troubleshoot != nil {
		tips = r.config.Troubleshoot(err)
	}

	result := NewFailureResult(r.config.Title+" failed", err, tips)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())
}

// --- Simple helper functions for commands that don't need an UploadRunner ---

// PrintCommandHeader prints a styled command header
func PrintCommandHeader(title, command string, params map[string]string) {
	header := NewHeader(title, command, params)
	fmt.Println(header.Render())
	fmt.Println()
}

// PrintSuccess prints a styled success result
func PrintSuccess(title string, details map[string]string) {
	fmt.Println()
	fmt.Println(NewSuccessResult(title, details).Render())
}

// PrintFailure prints a styled failure result
func PrintFailure(title string, err error, troubleshooting []string) {
	fmt.Println()
	fmt.Println(NewFailureResult(title, err, troubleshooting).Render())
}

// PrintWarning prints a styled warning result
func PrintWarning(title string, details map[string]string) {
	fmt.Println()
	fmt.Println(NewWarningResult(title, details).Render())
}

// PrintTrace prints a styled device trace box (for verbose dry runs)
func PrintTrace(lines []string, maxLines int) {
	fmt.Println()
	fmt.Println(NewTrace(lines).SetMaxLines(maxLines).Render())
}

// PrintPleaseWait prints a styled "please wait" message for long-running operations.
// The message parameter should describe what's happening, e.g., "Waiting for the device".
// The duration hint helps set user expectations, e.g., "up to 2 minutes".
func PrintPleaseWait(message string, durationHint string) {
	style := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		PaddingLeft(2)

	hintStyle := lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	line := style.Render("⏳ " + message)
	if durationHint != "" {
		line += " " + hintStyle.Render("("+durationHint+")")
	}
	line += style.Render("...")

	fmt.Println()
	fmt.Println(line)
	fmt.Println()
}
