// Package theme defines the color palettes shared by the CLI output and the
// usage dashboard.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme maps color roles to palette entries.
type Theme struct {
	Name        string
	Border      lipgloss.Color
	TextDim     lipgloss.Color
	TextMuted   lipgloss.Color
	TextPrimary lipgloss.Color
	Accent      lipgloss.Color
	Surface     lipgloss.Color
	User        lipgloss.Color // "You:" prompts
	Agent       lipgloss.Color // agent name labels
	Cost        lipgloss.Color
	Tokens      lipgloss.Color
	Warn        lipgloss.Color
	Error       lipgloss.Color
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default theme.
var FlexokiDark = Theme{
	Name:        "flexoki-dark",
	Border:      lipgloss.Color("#403E3C"),
	TextDim:     lipgloss.Color("#575653"),
	TextMuted:   lipgloss.Color("#878580"),
	TextPrimary: lipgloss.Color("#FFFCF0"),
	Accent:      lipgloss.Color("#3AA99F"),
	Surface:     lipgloss.Color("#1C1B1A"),
	User:        lipgloss.Color("#4385BE"),
	Agent:       lipgloss.Color("#879A39"),
	Cost:        lipgloss.Color("#D0A215"),
	Tokens:      lipgloss.Color("#4385BE"),
	Warn:        lipgloss.Color("#DA702C"),
	Error:       lipgloss.Color("#D14D41"),
}

// CatppuccinMocha is a soft pastel theme.
var CatppuccinMocha = Theme{
	Name:        "catppuccin-mocha",
	Border:      lipgloss.Color("#585B70"),
	TextDim:     lipgloss.Color("#6C7086"),
	TextMuted:   lipgloss.Color("#A6ADC8"),
	TextPrimary: lipgloss.Color("#CDD6F4"),
	Accent:      lipgloss.Color("#89B4FA"),
	Surface:     lipgloss.Color("#313244"),
	User:        lipgloss.Color("#89B4FA"),
	Agent:       lipgloss.Color("#A6E3A1"),
	Cost:        lipgloss.Color("#F9E2AF"),
	Tokens:      lipgloss.Color("#94E2D5"),
	Warn:        lipgloss.Color("#FAB387"),
	Error:       lipgloss.Color("#F38BA8"),
}

// TokyoNight is a cool blue/purple theme.
var TokyoNight = Theme{
	Name:        "tokyo-night",
	Border:      lipgloss.Color("#565F89"),
	TextDim:     lipgloss.Color("#565F89"),
	TextMuted:   lipgloss.Color("#A9B1D6"),
	TextPrimary: lipgloss.Color("#C0CAF5"),
	Accent:      lipgloss.Color("#7AA2F7"),
	Surface:     lipgloss.Color("#24283B"),
	User:        lipgloss.Color("#7AA2F7"),
	Agent:       lipgloss.Color("#9ECE6A"),
	Cost:        lipgloss.Color("#E0AF68"),
	Tokens:      lipgloss.Color("#7DCFFF"),
	Warn:        lipgloss.Color("#FF9E64"),
	Error:       lipgloss.Color("#F7768E"),
}

// Terminal uses ANSI 16 colors only.
var Terminal = Theme{
	Name:        "terminal",
	Border:      lipgloss.Color("8"),
	TextDim:     lipgloss.Color("8"),
	TextMuted:   lipgloss.Color("7"),
	TextPrimary: lipgloss.Color("15"),
	Accent:      lipgloss.Color("6"),
	Surface:     lipgloss.Color("0"),
	User:        lipgloss.Color("4"),
	Agent:       lipgloss.Color("2"),
	Cost:        lipgloss.Color("3"),
	Tokens:      lipgloss.Color("12"),
	Warn:        lipgloss.Color("3"),
	Error:       lipgloss.Color("1"),
}

// All available themes.
var All = []Theme{FlexokiDark, CatppuccinMocha, TokyoNight, Terminal}

// Names lists theme names in display order.
func Names() []string {
	out := make([]string, len(All))
	for i, t := range All {
		out[i] = t.Name
	}
	return out
}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}
