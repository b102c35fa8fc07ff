package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/theirongolddev/bmadchat/internal/model"
)

func writeAgent(t *testing.T, root, pack, file, content string) {
	t.Helper()
	dir := filepath.Join(root, "expansion-packs", PackPrefix+pack, "agents")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o600))
}

func writePackConfig(t *testing.T, root, pack, content string) {
	t.Helper()
	dir := filepath.Join(root, "expansion-packs", PackPrefix+pack)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestBuild_LoadsPacksInOrder(t *testing.T) {
	root := t.TempDir()
	writePackConfig(t, root, "market", "name: bmad-market\nversion: 1.2.0\nshort-title: Market Pack\n")
	writeAgent(t, root, "market", "analyst.md", sageFile)
	writeAgent(t, root, "market", "writer.md", "# Wren\n")
	writeAgent(t, root, "market", "notes.txt", "ignored")
	writeAgent(t, root, "ops", "sre.md", "```yaml\nagent: sre\nname: Ops Sam\n```")

	c, err := Build(root, []string{"ops", "market"}, nil)
	require.NoError(t, err)

	agents := c.Agents()
	require.Len(t, agents, 3)
	assert.Equal(t, "sre", agents[0].ID)
	assert.Equal(t, "sage", agents[1].ID)
	assert.Equal(t, "writer", agents[2].ID)
	assert.Equal(t, "market", agents[1].PackName)

	packs := c.Packs()
	require.Len(t, packs, 2)
	assert.Equal(t, "ops", packs[0].Title)
	assert.Equal(t, "Market Pack", packs[1].Title)
	assert.Equal(t, "1.2.0", packs[1].Version)
	assert.Equal(t, 2, packs[1].Agents)
}

func TestBuild_MissingRootIsFatal(t *testing.T) {
	_, err := Build(t.TempDir(), []string{"x"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalogMissing)
}

func TestBuild_MissingPackIsFatal(t *testing.T) {
	root := t.TempDir()
	writeAgent(t, root, "market", "analyst.md", sageFile)

	_, err := Build(root, []string{"market", "ghost"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogMissing))
	assert.Contains(t, err.Error(), "ghost")
}

func TestBuild_MalformedFileWarnsAndContinues(t *testing.T) {
	root := t.TempDir()
	writeAgent(t, root, "p", "broken.md", "# Broken\n```yaml\nname: [oops\n```\n")
	writeAgent(t, root, "p", "fine.md", "```yaml\nagent: fine\n```\n")

	core, logs := observer.New(zapcore.WarnLevel)
	c, err := Build(root, []string{"p"}, zap.New(core))
	require.NoError(t, err)

	agents := c.Agents()
	require.Len(t, agents, 2)
	assert.Equal(t, "broken", agents[0].ID)
	assert.Equal(t, "Broken", agents[0].DisplayName)
	assert.Equal(t, model.MetadataInvalid, agents[0].Provenance.Metadata)
	assert.Equal(t, "fine", agents[1].ID)

	warned := logs.FilterMessage("agent metadata unreadable, using defaults").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "p", warned[0].ContextMap()["pack"])
}

func TestBuild_PackWithoutAgentsDir(t *testing.T) {
	root := t.TempDir()
	writePackConfig(t, root, "empty", "name: empty\n")

	c, err := Build(root, []string{"empty"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Len(t, c.Packs(), 1)
}

func TestFind_Precedence(t *testing.T) {
	c := New(
		model.AgentDefinition{ID: "alpha", DisplayName: "Sage Junior", FileStem: "a"},
		model.AgentDefinition{ID: "sage", DisplayName: "Sage", FileStem: "b"},
		model.AgentDefinition{ID: "gamma", DisplayName: "Gamma", FileStem: "sage-file"},
		model.AgentDefinition{ID: "delta", DisplayName: "Delta", FileStem: "alpha"},
	)

	tests := []struct {
		query  string
		wantID string
	}{
		{"sage", "sage"},          // exact id beats earlier name substring
		{"SAGE", "alpha"},         // name substring, first in order
		{"junior", "alpha"},       // case-insensitive
		{"sage-file", "gamma"},    // stem
		{"alpha", "alpha"},        // id beats stem of a later agent
		{"Gam", "gamma"},          // prefix substring
		{"elt", "delta"},          // inner substring
	}
	for _, tt := range tests {
		got, err := c.Find(tt.query)
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.wantID, got.ID, tt.query)
	}
}

func TestFind_NotFound(t *testing.T) {
	c := New(model.AgentDefinition{ID: "a", DisplayName: "A", FileStem: "a"})

	_, err := c.Find("zzz")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	_, err = c.Find("  ")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestFind_EndToEndSage(t *testing.T) {
	root := t.TempDir()
	writeAgent(t, root, "market", "researcher.md",
		"```yaml\nagent: \"sage\"\nname: \"Sage\"\nrole: \"Market Researcher\"\n```\n")

	c, err := Build(root, []string{"market"}, nil)
	require.NoError(t, err)

	byID, err := c.Find("sage")
	require.NoError(t, err)
	byName, err := c.Find("Sage")
	require.NoError(t, err)
	assert.Equal(t, byID, byName)
	assert.Equal(t, "Market Researcher", byID.Role)
}

func TestDiscoverPacks(t *testing.T) {
	root := t.TempDir()
	writePackConfig(t, root, "game-dev", "name: g\n")
	writePackConfig(t, root, "creative-writing", "name: c\n")
	writeAgent(t, root, "no-config", "a.md", "# A")

	names, err := DiscoverPacks(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"creative-writing", "game-dev"}, names)

	_, err = DiscoverPacks(t.TempDir())
	assert.ErrorIs(t, err, ErrCatalogMissing)
}
