package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
)

// DefaultWrap is the column agent replies are wrapped at.
const DefaultWrap = 80

// Markdown renders agent replies for the terminal. In plain mode, or when
// glamour cannot be initialized, text is only word-wrapped.
type Markdown struct {
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown returns a renderer wrapping at width. plain skips glamour.
func NewMarkdown(width int, plain bool) *Markdown {
	if width <= 0 {
		width = DefaultWrap
	}
	m := &Markdown{width: width}
	if plain {
		return m
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		m.renderer = r
	}
	return m
}

// Render converts markdown to terminal output.
func (m *Markdown) Render(text string) string {
	if text == "" {
		return ""
	}
	if m.renderer != nil && containsMarkdown(text) {
		if out, err := m.renderer.Render(text); err == nil {
			return strings.TrimSpace(out)
		}
	}
	return m.Plain(text)
}

// Plain wraps text without styling.
func (m *Markdown) Plain(text string) string {
	return wordwrap.String(strings.TrimSpace(text), m.width)
}

func containsMarkdown(text string) bool {
	for _, marker := range []string{"**", "__", "`", "# ", "\n- ", "\n* ", "\n1. ", "[", "> "} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return strings.HasPrefix(text, "- ") || strings.HasPrefix(text, "* ")
}
