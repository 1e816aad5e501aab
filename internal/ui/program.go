package ui

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// staticView is a Bubble Tea model for output that is printed once, such as
// the profile catalog or the verify-setup report.
type staticView struct {
	body string
}

func (v staticView) Init() tea.Cmd { return tea.Quit }

func (v staticView) Update(tea.Msg) (tea.Model, tea.Cmd) { return v, nil }

func (v staticView) View() string { return v.body }

// RenderOnce prints content to stdout through Bubble Tea and returns.
func RenderOnce(content string) error {
	return RenderOnceTo(os.Stdout, content)
}

// RenderOnceTo is RenderOnce with an explicit writer. Input is never read.
func RenderOnceTo(w io.Writer, content string) error {
	_, err := tea.NewProgram(staticView{body: content}, tea.WithOutput(w), tea.WithInput(nil)).Run()
	return err
}

// RenderTable lays rows out under headers in a rounded table. The header
// row is styled apart from the cells.
func RenderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		Render()
}
