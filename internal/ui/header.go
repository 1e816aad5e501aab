package ui

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the box printed before an upload starts: which stage, the
// command line, and the inputs it was given (image, profile, transport).
type Header struct {
	Title   string
	Command string
	Params  map[string]string
	Width   int
}

func NewHeader(title, command string, params map[string]string) *Header {
	return &Header{Title: title, Command: command, Params: params, Width: GetTerminalWidth()}
}

// SetWidth overrides the detected terminal width.
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render draws the header. Params print in key order.
func (h *Header) Render() string {
	width := max(h.Width, MinTerminalWidth)

	lines := []string{
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	}
	if len(h.Params) > 0 {
		// border plus padding eat six columns
		lines = append(lines, RenderHorizontalDivider(max(width-6, 10), "─"))
		for _, key := range slices.Sorted(maps.Keys(h.Params)) {
			lines = append(lines, HeaderParamKeyStyle.Render(key+":")+" "+HeaderParamValueStyle.Render(h.Params[key]))
		}
	}

	return HeaderBorderStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (h *Header) String() string {
	return h.Render()
}
