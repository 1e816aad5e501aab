package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette. Purple frames headers and tables, the rest follow the outcome
// they mark.
var (
	PrimaryColor = lipgloss.Color("#7D56F4")
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5555")
	WarningColor = lipgloss.Color("#FFA500")
	MutedColor   = lipgloss.Color("#626262")
	TextColor    = lipgloss.Color("#FFFFFF")
)

const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
	DefaultPadding   = 2
)

var (
	indented = lipgloss.NewStyle().PaddingLeft(2)
	muted    = lipgloss.NewStyle().Foreground(MutedColor)
	plain    = lipgloss.NewStyle().Foreground(TextColor)
)

// Upload header: stage title, command line, then one line per input.
var (
	HeaderTitleStyle      = indented.Foreground(TextColor).Bold(true)
	HeaderCommandStyle    = indented.Foreground(MutedColor)
	HeaderParamKeyStyle   = indented.Foreground(MutedColor)
	HeaderParamValueStyle = plain
)

// Step list and progress bar of a running upload.
var (
	ProgressLabelStyle = indented.Foreground(TextColor)
	StepCompleteStyle  = lipgloss.NewStyle().Foreground(SuccessColor)
	StepRunningStyle   = lipgloss.NewStyle().Foreground(WarningColor)
	StepPendingStyle   = muted
	StepNoteStyle      = muted.Italic(true)
)

// Result boxes, troubleshooting tips and the register/packet trace.
var (
	SuccessTitleStyle         = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	ErrorTitleStyle           = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	WarningTitleStyle         = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	ErrorMessageStyle         = lipgloss.NewStyle().Foreground(ErrorColor)
	ResultKeyStyle            = muted.Width(15)
	ResultValueStyle          = plain
	TroubleshootingTitleStyle = muted.Bold(true)
	TroubleshootingItemStyle  = muted
	TraceTitleStyle           = muted.Bold(true)
	TraceContentStyle         = plain
)

// Profile catalog and verify-setup tables.
var (
	TableHeaderStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true).Padding(0, 1)
	TableCellStyle   = plain.Padding(0, 1)
)

const (
	StepMarkerComplete = "✓"
	StepMarkerRunning  = "●"
	StepMarkerPending  = "·"
	StepMarkerSkipped  = "⊘"
	SuccessMarker      = "✓"
	FailureMarker      = "✗"
	WarningMarker      = "⚠"
)

// GetTerminalWidth returns the stdout width clamped to MinTerminalWidth..MaxContentWidth.
func GetTerminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// GetTerminalSize returns the stdout width and height. Output that is not a
// terminal (pipes, CI logs) gets the minimum width.
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, 24
	}
	return clampWidth(width), height
}

func clampWidth(width int) int {
	return min(max(width, MinTerminalWidth), MaxContentWidth)
}

// HeaderBorderStyle frames an upload header of the given outer width.
func HeaderBorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)
}

// ResultBoxStyle is the double-bordered outcome box.
func ResultBoxStyle(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width - 2).
		Padding(0, DefaultPadding)
}

// TraceBoxStyle frames the register and packet trace of a failed upload.
func TraceBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width - 4).
		Padding(0, 1)
}

func TroubleshootingBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(max(width-12, 40)).
		Padding(0, 1).
		MarginLeft(3)
}

func ProgressBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		PaddingLeft(DefaultPadding)
}

// RenderHorizontalDivider repeats char width times in the primary color.
func RenderHorizontalDivider(width int, char string) string {
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}
