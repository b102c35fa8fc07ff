package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/bmadchat/internal/model"
	"github.com/theirongolddev/bmadchat/internal/session"
)

var fixedNow = time.Date(2026, 3, 2, 14, 5, 9, 0, time.UTC)

func snapshot() session.Snapshot {
	agent := model.AgentDefinition{ID: "sage", DisplayName: "Sage", Role: "Market Researcher", PackName: "bmad-market-researcher"}
	return session.Snapshot{
		ConversationID: "c1",
		Agent:          &agent,
		Turns: []model.Turn{
			model.AgentTurn("Sage", "Hello! I'm Sage."),
			model.UserTurn("What about pricing?"),
			model.AgentTurn("Sage", "**Pricing** depends on:\n\n- segment\n- volume"),
		},
	}
}

func TestRender(t *testing.T) {
	s := snapshot()
	s.Model = "gpt-4o"
	s.Usage = &model.ConversationStats{PromptTokens: 1200, CompletionTokens: 300, TotalTokens: 1500, TotalCost: 0.0123}

	got := Render(s, fixedNow)

	want := "# Chat Conversation with Sage\n\n" +
		"**Date**: 2026-03-02 14:05:09\n" +
		"**Agent**: Sage (Market Researcher)\n" +
		"**Pack**: bmad-market-researcher\n" +
		"**Model**: gpt-4o\n" +
		"\n**Token Usage**:\n" +
		"- Total Tokens: 1,500\n" +
		"- Prompt Tokens: 1,200\n" +
		"- Completion Tokens: 300\n" +
		"- Total Cost: $0.0123\n" +
		"\n---\n\n" +
		"## Sage\n\nHello! I'm Sage.\n\n" +
		"## You\n\nWhat about pricing?\n\n" +
		"## Sage\n\n**Pricing** depends on:\n\n- segment\n- volume\n\n" +
		"---\n\n*Exported by bmadchat*\n"
	assert.Equal(t, want, got)
}

func TestRenderOfflineOmitsModelAndUsage(t *testing.T) {
	got := Render(snapshot(), fixedNow)
	assert.NotContains(t, got, "**Model**")
	assert.NotContains(t, got, "Token Usage")
}

func TestRenderWithoutAgent(t *testing.T) {
	got := Render(session.Snapshot{Turns: []model.Turn{model.UserTurn("hi")}}, fixedNow)
	assert.True(t, strings.HasPrefix(got, "# Chat Conversation with Agent\n"))
	assert.Contains(t, got, "**Agent**: Unknown\n")
	assert.Contains(t, got, "**Pack**: Unknown\n")
}

func TestFileName(t *testing.T) {
	s := snapshot()
	assert.Equal(t, "sage-2026-03-02T14-05-09.md", FileName(s, fixedNow))

	s.FileName = "../notes"
	assert.Equal(t, "notes.md", FileName(s, fixedNow))

	s.FileName = "plan.markdown"
	assert.Equal(t, "plan.markdown", FileName(s, fixedNow))

	assert.Equal(t, "chat-2026-03-02T14-05-09.md", FileName(session.Snapshot{}, fixedNow))
}

func TestExportCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	m := &Markdown{Dir: dir, Now: func() time.Time { return fixedNow }}

	path, err := m.Export(snapshot())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sage-2026-03-02T14-05-09.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), Footer+"\n"))
}

func TestExportedDocumentLoadsBack(t *testing.T) {
	m := &Markdown{Dir: t.TempDir(), Now: func() time.Time { return fixedNow }}
	path, err := m.Export(snapshot())
	require.NoError(t, err)

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Sage", doc.AgentName)
	assert.Equal(t, "bmad-market-researcher", doc.Header["Pack"])
	assert.Equal(t, snapshot().Turns, doc.Turns)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"a.md", "b.md", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Chtimes(filepath.Join(dir, "b.md"), old, old))

	files, err := List(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.md", files[0].Name)
	assert.Equal(t, "b.md", files[1].Name)
	assert.Equal(t, int64(1), files[0].Size)
}

func TestListMissingDir(t *testing.T) {
	files, err := List(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Empty(t, files)
}
