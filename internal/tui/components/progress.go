package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/bmadchat/internal/tui/theme"
)

// ColorForPct returns the bar color for a 0-100 spend percentage.
func ColorForPct(pct, warnPct float64) string {
	t := theme.Active
	switch {
	case pct >= 100:
		return string(t.Error)
	case pct > warnPct:
		return string(t.Warn)
	default:
		return string(t.Agent)
	}
}

// LimitBar renders a labelled spend bar. pct is 0-100.
func LimitBar(label string, pct, warnPct float64, labelW, barWidth int) string {
	t := theme.Active

	frac := min(max(pct/100, 0), 1)
	bar := progress.New(
		progress.WithSolidFill(ColorForPct(pct, warnPct)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorForPct(pct, warnPct))).Bold(true)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) + " " +
		bar.ViewAs(frac) + " " +
		pctStyle.Render(fmt.Sprintf("%5.1f%%", pct))
}
