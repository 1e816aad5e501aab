package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Trace represents a box listing the simulated device's view of an upload.
// Dry runs show it in verbose mode: every register write or packet the
// device saw, one per line.
type Trace struct {
	Title    string   // e.g., "Device Trace"
	Lines    []string // One entry per line
	Width    int      // Terminal width
	MaxLines int      // Maximum lines to display (0 = unlimited)
}

// NewTrace creates a new trace box
func NewTrace(lines []string) *Trace {
	return &Trace{
		Title: "Device Trace",
		Lines: lines,
		Width: GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (t *Trace) SetWidth(width int) *Trace {
	t.Width = width
	return t
}

// SetTitle sets a custom title for the box
func (t *Trace) SetTitle(title string) *Trace {
	t.Title = title
	return t
}

// SetMaxLines limits the number of lines displayed
func (t *Trace) SetMaxLines(max int) *Trace {
	t.MaxLines = max
	return t
}

// FilterContains keeps only lines containing one of the given substrings.
func (t *Trace) FilterContains(patterns ...string) *Trace {
	var filtered []string
	for _, line := range t.Lines {
		for _, pattern := range patterns {
			if strings.Contains(line, pattern) {
				filtered = append(filtered, line)
				break
			}
		}
	}
	t.Lines = filtered
	return t
}

// Render returns the styled trace box as a string
func (t *Trace) Render() string {
	width := t.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := t.Lines
	if t.MaxLines > 0 && len(lines) > t.MaxLines {
		omitted := len(lines) - t.MaxLines
		lines = append(lines[:t.MaxLines:t.MaxLines], fmt.Sprintf("... (%d more lines)", omitted))
	}

	titleStyled := TraceTitleStyle.Render(t.Title)
	contentStyled := TraceContentStyle.Render(strings.Join(lines, "\n"))
	inner := lipgloss.JoinVertical(lipgloss.Left, titleStyled, "", contentStyled)

	boxWidth := width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}

	return TraceBoxStyle(boxWidth + 4).
		MarginLeft(2).
		Render(inner)
}

// String implements fmt.Stringer
func (t *Trace) String() string {
	return t.Render()
}
