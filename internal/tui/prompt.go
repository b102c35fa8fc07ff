package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// ErrNoAgents is returned by PickAgent for an empty catalog.
var ErrNoAgents = errors.New("no agents found, please check your configuration")

// PickAgent asks the user to choose an agent. Options are grouped by pack
// in catalog order.
func PickAgent(ctx context.Context, agents []model.AgentDefinition) (model.AgentDefinition, error) {
	if len(agents) == 0 {
		return model.AgentDefinition{}, ErrNoAgents
	}

	options := make([]huh.Option[int], len(agents))
	for i, a := range agents {
		options[i] = huh.NewOption(fmt.Sprintf("%s - %s  (%s)", a.DisplayName, a.Role, a.PackName), i)
	}

	choice := 0
	sel := huh.NewSelect[int]().
		Title("Select an agent:").
		Options(options...).
		Height(min(len(options)+2, 17)).
		Value(&choice)
	if err := huh.NewForm(huh.NewGroup(sel)).WithShowHelp(false).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return model.AgentDefinition{}, io.EOF
		}
		return model.AgentDefinition{}, fmt.Errorf("selecting agent: %w", err)
	}
	return agents[choice], nil
}

// HuhReader reads chat input with a single-line huh field. Each submitted
// line is echoed to Out so it stays in the transcript.
type HuhReader struct {
	Title string
	Out   io.Writer
}

// NewHuhReader returns a reader titled "You:".
func NewHuhReader(out io.Writer) *HuhReader {
	return &HuhReader{Title: "You:", Out: out}
}

// ReadLine implements session.LineReader. Aborting the field (ctrl+c or
// esc) ends the chat like end of input.
func (r *HuhReader) ReadLine(ctx context.Context) (string, error) {
	var line string
	in := huh.NewInput().Title(r.Title).Value(&line)
	err := huh.NewForm(huh.NewGroup(in)).WithShowHelp(false).RunWithContext(ctx)
	switch {
	case errors.Is(err, huh.ErrUserAborted):
		return "", io.EOF
	case err != nil:
		return "", err
	}
	if r.Out != nil {
		_, _ = fmt.Fprintf(r.Out, "%s %s\n", r.Title, line)
	}
	return line, nil
}
