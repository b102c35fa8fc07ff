package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/bmadchat/internal/tui/theme"
)

// HBarChart renders one labelled horizontal bar per value, scaled to the
// largest value. format renders the figure printed after each bar.
func HBarChart(labels []string, values []float64, width int, format func(float64) string) string {
	if len(values) == 0 || len(labels) != len(values) {
		return ""
	}
	t := theme.Active
	barStyle := lipgloss.NewStyle().Foreground(t.Accent)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	labelW := 0
	peak := 0.0
	for i, l := range labels {
		labelW = max(labelW, lipgloss.Width(l))
		peak = max(peak, values[i])
	}
	barW := max(width-labelW-14, 4)

	var b strings.Builder
	for i, v := range values {
		n := 0
		if peak > 0 {
			n = int(v / peak * float64(barW))
		}
		if v > 0 && n == 0 {
			n = 1
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			labelStyle.Render(fmt.Sprintf("%-*s", labelW, labels[i])),
			barStyle.Render(strings.Repeat("█", n)+strings.Repeat(" ", barW-n)),
			format(v))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
