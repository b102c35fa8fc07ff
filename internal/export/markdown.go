// Package export writes conversations as self-contained markdown documents
// and reads them back for listing.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/bmadchat/internal/cli"
	"github.com/theirongolddev/bmadchat/internal/model"
	"github.com/theirongolddev/bmadchat/internal/session"
)

// Footer closes every exported document.
const Footer = "*Exported by bmadchat*"

const (
	titlePrefix = "# Chat Conversation with "
	fileTimeFmt = "2006-01-02T15-04-05"
	dateFmt     = "2006-01-02 15:04:05"
)

// Markdown writes snapshots into Dir.
type Markdown struct {
	Dir string
	Now func() time.Time
}

// NewMarkdown returns an exporter writing into dir.
func NewMarkdown(dir string) *Markdown {
	return &Markdown{Dir: dir, Now: time.Now}
}

// Export implements session.Exporter.
func (m *Markdown) Export(s session.Snapshot) (string, error) {
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}

	path := filepath.Join(m.Dir, FileName(s, now))
	if err := os.WriteFile(path, []byte(Render(s, now)), 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// FileName is the snapshot's requested name (made relative, with a .md
// extension) or {agentId}-{UTC timestamp}.md.
func FileName(s session.Snapshot, now time.Time) string {
	if s.FileName != "" {
		name := filepath.Base(s.FileName)
		if filepath.Ext(name) == "" {
			name += ".md"
		}
		return name
	}
	id := "chat"
	if s.Agent != nil && s.Agent.ID != "" {
		id = s.Agent.ID
	}
	return id + "-" + now.UTC().Format(fileTimeFmt) + ".md"
}

// Render builds the document text.
func Render(s session.Snapshot, now time.Time) string {
	name, role, pack := "Agent", "", "Unknown"
	agentLine := "Unknown"
	if s.Agent != nil {
		name, role, pack = s.Agent.DisplayName, s.Agent.Role, s.Agent.PackName
		agentLine = fmt.Sprintf("%s (%s)", name, role)
	}

	var b strings.Builder
	b.WriteString(titlePrefix + name + "\n\n")
	fmt.Fprintf(&b, "**Date**: %s\n", now.Format(dateFmt))
	fmt.Fprintf(&b, "**Agent**: %s\n", agentLine)
	fmt.Fprintf(&b, "**Pack**: %s\n", pack)
	if s.Model != "" {
		fmt.Fprintf(&b, "**Model**: %s\n", s.Model)
	}
	if u := s.Usage; u != nil {
		b.WriteString("\n**Token Usage**:\n")
		fmt.Fprintf(&b, "- Total Tokens: %s\n", cli.FormatNumber(u.TotalTokens))
		fmt.Fprintf(&b, "- Prompt Tokens: %s\n", cli.FormatNumber(u.PromptTokens))
		fmt.Fprintf(&b, "- Completion Tokens: %s\n", cli.FormatNumber(u.CompletionTokens))
		fmt.Fprintf(&b, "- Total Cost: $%.4f\n", u.TotalCost)
	}
	b.WriteString("\n---\n\n")

	for _, t := range s.Turns {
		switch t.Role {
		case model.RoleUser:
			b.WriteString("## You\n\n")
		default:
			label := t.AgentName
			if label == "" {
				label = name
			}
			b.WriteString("## " + label + "\n\n")
		}
		b.WriteString(strings.TrimSpace(t.Text))
		b.WriteString("\n\n")
	}

	b.WriteString("---\n\n")
	b.WriteString(Footer + "\n")
	return b.String()
}
