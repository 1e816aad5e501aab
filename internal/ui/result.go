package ui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// resultLook is how a result type is drawn.
type resultLook struct {
	marker string
	label  string
	title  lipgloss.Style
	border lipgloss.Color
}

func (t ResultType) look() resultLook {
	switch t {
	case ResultFailure:
		return resultLook{FailureMarker, "FAILED", ErrorTitleStyle, ErrorColor}
	case ResultWarning:
		return resultLook{WarningMarker, "WARNING", WarningTitleStyle, WarningColor}
	default:
		return resultLook{SuccessMarker, "SUCCESS", SuccessTitleStyle, SuccessColor}
	}
}

// Result is the box printed when a command finishes
type Result struct {
	Type            ResultType
	Title           string            // e.g., "Stage 1 Upload"
	Details         map[string]string // shown sorted by key
	Error           error             // failures only
	Troubleshooting []string          // failures only
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Troubleshooting: troubleshooting, Width: GetTerminalWidth()}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the styled result box
func (r *Result) Render() string {
	width := max(r.Width, MinTerminalWidth)
	look := r.Type.look()

	lines := []string{
		"",
		look.title.Render(fmt.Sprintf("   %s  %s  ─  %s", look.marker, look.label, r.Title)),
		"",
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}
	if details := r.detailLines(); len(details) > 0 {
		lines = append(lines, details...)
		lines = append(lines, "")
	}
	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	return ResultBoxStyle(width, look.border).Render(strings.Join(lines, "\n"))
}

// detailLines renders the details sorted by key.
func (r *Result) detailLines() []string {
	var lines []string
	for _, key := range slices.Sorted(maps.Keys(r.Details)) {
		lines = append(lines, ResultKeyStyle.Render("   "+key+":")+" "+ResultValueStyle.Render(r.Details[key]))
	}
	return lines
}

func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}
	return TroubleshootingBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// RenderSuccess renders a success box with the given title and details
func RenderSuccess(title string, details map[string]string) string {
	return NewSuccessResult(title, details).Render()
}

// RenderFailure renders a failure box with the given title, error, and troubleshooting tips
func RenderFailure(title string, err error, troubleshooting []string) string {
	return NewFailureResult(title, err, troubleshooting).Render()
}

// RenderWarning renders a warning box with the given title and details
func RenderWarning(title string, details map[string]string) string {
	return NewWarningResult(title, details).Render()
}
