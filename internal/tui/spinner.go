// Package tui holds the interactive terminal pieces: the thinking spinner,
// huh prompts, the setup wizard and the usage dashboard.
package tui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/bmadchat/internal/tui/theme"
)

type fnDoneMsg struct{}

type spinnerModel struct {
	sp       spinner.Model
	label    string
	finished <-chan struct{}
	done     bool
}

func newSpinnerModel(label string, finished <-chan struct{}) spinnerModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Active.Accent)),
	)
	return spinnerModel{sp: sp, label: label, finished: finished}
}

func (m spinnerModel) Init() tea.Cmd {
	finished := m.finished
	return tea.Batch(m.sp.Tick, func() tea.Msg {
		<-finished
		return fnDoneMsg{}
	})
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fnDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.sp.View() + " " + lipgloss.NewStyle().Foreground(theme.Active.TextMuted).Render(m.label)
}

// RunWithSpinner shows label with a spinner on out until fn returns, then
// erases it. fn's error is returned; a spinner failure is not.
func RunWithSpinner(ctx context.Context, out io.Writer, label string, fn func() error) error {
	var fnErr error
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		fnErr = fn()
	}()

	p := tea.NewProgram(newSpinnerModel(label, finished),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	)
	_, _ = p.Run()

	<-finished
	return fnErr
}

// Spinner adapts RunWithSpinner to the session's wait hook.
func Spinner(out io.Writer) func(ctx context.Context, label string, fn func() error) error {
	return func(ctx context.Context, label string, fn func() error) error {
		return RunWithSpinner(ctx, out, label, fn)
	}
}
