package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPanel frames body in a rounded box with a title line and an
// optional muted caption below it.
func RenderPanel(title, body, caption string) string {
	lines := []string{BoldStyle.Render(title), "", strings.TrimRight(body, "\n")}
	if caption != "" {
		lines = append(lines, "", MutedStyle.Render(caption))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// RenderOutputBox shows raw command output, keeping at most maxLines of its
// tail when maxLines is positive.
func RenderOutputBox(title, output string, maxLines, width int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if maxLines > 0 && len(lines) > maxLines {
		hidden := len(lines) - maxLines
		lines = append([]string{MutedStyle.Render("... " + strconv.Itoa(hidden) + " lines hidden")}, lines[len(lines)-maxLines:]...)
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width-4).
		Padding(0, 1).
		Render(OutputTitleStyle.Render(title) + "\n" + strings.Join(lines, "\n"))
}
