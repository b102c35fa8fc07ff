package session

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/bmadchat/internal/model"
)

var instructions = []string{
	"Maintain the personality and expertise described above",
	"Use the frameworks and methodologies mentioned when relevant",
	"Speak in first person as %s",
	"Be helpful, professional, and true to the character",
	"Apply your specialized knowledge to the user's questions",
}

// BuildSystemPrompt frames the agent's source document as the live model's
// system prompt.
func BuildSystemPrompt(agent model.AgentDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s.\n\n", agent.DisplayName, agent.Role)
	b.WriteString(agent.SourceText)
	b.WriteString("\n\nImportant instructions:")
	for _, line := range instructions {
		b.WriteString("\n- ")
		if strings.Contains(line, "%s") {
			fmt.Fprintf(&b, line, agent.DisplayName)
		} else {
			b.WriteString(line)
		}
	}
	return b.String()
}
