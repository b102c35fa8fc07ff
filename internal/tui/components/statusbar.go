package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/bmadchat/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar with key help on the left
// and source info on the right.
func RenderStatusBar(width int, source string) string {
	t := theme.Active

	style := lipgloss.NewStyle().Foreground(t.TextMuted).Width(width)

	left := " [←/→]tabs  [q]uit"
	right := ""
	if source != "" {
		right = source + " "
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return style.Render(left + strings.Repeat(" ", padding) + right)
}
