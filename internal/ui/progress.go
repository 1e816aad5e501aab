package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// finished reports whether the step counts toward overall progress.
func (s StepStatus) finished() bool {
	return s == StepComplete || s == StepSkipped
}

// stepLook is the marker and style a step is drawn with.
type stepLook struct {
	marker string
	style  lipgloss.Style
}

func (s StepStatus) look() stepLook {
	switch s {
	case StepComplete:
		return stepLook{StepMarkerComplete, StepCompleteStyle}
	case StepRunning:
		return stepLook{StepMarkerRunning, StepRunningStyle}
	case StepFailed:
		return stepLook{FailureMarker, ErrorTitleStyle}
	case StepSkipped:
		return stepLook{StepMarkerSkipped, StepPendingStyle}
	default:
		return stepLook{StepMarkerPending, StepPendingStyle}
	}
}

// Step is one phase of an upload
type Step struct {
	Number  int // 1-based
	Name    string
	Status  StepStatus
	Message string // e.g., "chunk 12/293"
}

// Progress is a progress bar over a list of upload phases
type Progress struct {
	Label   string
	Steps   []Step
	Current int     // running step, 1-based
	Total   int     // number of steps
	Percent float64 // 0.0 - 1.0
	Width   int

	bar progress.Model
}

// Bar width bounds
const (
	minBarWidth = 20
	maxBarWidth = 50
	// nameColumn is where step markers line up
	nameColumn = 45
)

// NewProgress creates a progress display with totalSteps pending steps
func NewProgress(label string, totalSteps int) *Progress {
	steps := make([]Step, totalSteps)
	for i := range steps {
		steps[i] = Step{Number: i + 1, Status: StepPending}
	}

	return &Progress{
		Label: label,
		Steps: steps,
		Total: totalSteps,
		Width: GetTerminalWidth(),
		bar:   newBar(40),
	}
}

func newBar(width int) progress.Model {
	return progress.New(progress.WithDefaultGradient(), progress.WithWidth(width))
}

// SetWidth sizes the bar to the terminal, leaving room for the counters
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	p.bar = newBar(min(max(width-20, minBarWidth), maxBarWidth))
	return p
}

// SetStepNames names the steps in order
func (p *Progress) SetStepNames(names []string) *Progress {
	for i := range p.Steps {
		if i < len(names) {
			p.Steps[i].Name = names[i]
		}
	}
	return p
}

// UpdateStep sets a step's status and note. Out of range steps are ignored.
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) {
	step := p.step(stepNumber)
	if step == nil {
		return
	}
	step.Status = status
	step.Message = message

	switch status {
	case StepRunning:
		p.Current = stepNumber
	case StepPending:
	default:
		p.Percent = p.fraction(0)
	}
}

// SetStepFraction moves the bar within the running step (0.0 - 1.0)
func (p *Progress) SetStepFraction(stepNumber int, fraction float64) {
	if p.step(stepNumber) == nil {
		return
	}
	p.Percent = p.fraction(min(max(fraction, 0), 1))
}

// StartStep marks a step as running
func (p *Progress) StartStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepRunning, message)
}

// CompleteStep marks a step as complete
func (p *Progress) CompleteStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepComplete, message)
}

// FailStep marks a step as failed
func (p *Progress) FailStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepFailed, message)
}

func (p *Progress) step(n int) *Step {
	if n < 1 || n > len(p.Steps) {
		return nil
	}
	return &p.Steps[n-1]
}

// fraction is the overall completion with partial progress of the
// running step added.
func (p *Progress) fraction(partial float64) float64 {
	if p.Total == 0 {
		return 0
	}
	done := 0
	for _, s := range p.Steps {
		if s.Status.finished() {
			done++
		}
	}
	return (float64(done) + partial) / float64(p.Total)
}

// Render returns the label, bar and step list
func (p *Progress) Render() string {
	var sections []string
	if p.Label != "" {
		sections = append(sections, ProgressLabelStyle.Render(p.Label))
	}
	sections = append(sections, p.renderProgressBar())

	lines := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		lines[i] = p.renderStepLine(step)
	}
	sections = append(sections, strings.Join(lines, "\n"))

	return strings.Join(sections, "\n\n")
}

// renderProgressBar renders "bar  42%  [2/4]"
func (p *Progress) renderProgressBar() string {
	return ProgressBarStyle().
		Render(fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, p.Total))
}

// renderStepLine renders "[n/N] name      marker  (note)"
func (p *Progress) renderStepLine(step Step) string {
	look := step.Status.look()
	pad := max(nameColumn-lipgloss.Width(step.Name), 1)

	line := fmt.Sprintf("  [%d/%d] %s%s%s",
		step.Number, p.Total,
		look.style.Render(step.Name),
		strings.Repeat(" ", pad),
		look.style.Render(look.marker),
	)
	if step.Message != "" {
		line += "  " + StepNoteStyle.Render("("+step.Message+")")
	}
	return line
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
