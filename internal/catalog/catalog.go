// Package catalog discovers BMAD expansion packs and parses their agent files.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/bmadchat/internal/model"
)

var (
	// ErrCatalogMissing means the expansion-packs root or an enabled pack
	// directory does not exist. It aborts the catalog build.
	ErrCatalogMissing = errors.New("agent catalog missing")
	// ErrAgentNotFound means a query matched no agent.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrAgentFileMalformed tags per-file problems. It never aborts a build.
	ErrAgentFileMalformed = errors.New("agent file malformed")
)

// PackPrefix is the directory prefix of every expansion pack.
const PackPrefix = "bmad-"

// Pack describes one enabled expansion pack.
type Pack struct {
	Name        string
	Dir         string
	Title       string
	Version     string
	Description string
	Agents      int
}

type packConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	ShortTitle  string `yaml:"short-title"`
	Description string `yaml:"description"`
}

// Catalog is the ordered set of agents across all enabled packs. Iteration
// order is pack order from the config, then file name order.
type Catalog struct {
	agents []model.AgentDefinition
	packs  []Pack
}

// PacksRoot returns the expansion-packs directory under bmadPath.
func PacksRoot(bmadPath string) string {
	return filepath.Join(bmadPath, "expansion-packs")
}

// Build reads every enabled pack under bmadPath. A missing pack root is
// fatal; unreadable or malformed agent files are logged and kept as
// filename-derived records.
func Build(bmadPath string, enabledPacks []string, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}

	root := PacksRoot(bmadPath)
	if !isDir(root) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, root)
	}

	c := &Catalog{}
	for _, name := range enabledPacks {
		dir := filepath.Join(root, PackPrefix+name)
		if !isDir(dir) {
			return nil, fmt.Errorf("%w: pack %q not found at %s", ErrCatalogMissing, name, dir)
		}

		pack := readPack(name, dir, log)
		agents, err := loadPackAgents(name, dir, log)
		if err != nil {
			return nil, err
		}
		pack.Agents = len(agents)
		c.packs = append(c.packs, pack)
		c.agents = append(c.agents, agents...)
	}

	log.Debug("catalog built", zap.Int("packs", len(c.packs)), zap.Int("agents", len(c.agents)))
	return c, nil
}

// New builds a catalog from already-parsed agents.
func New(agents ...model.AgentDefinition) *Catalog {
	return &Catalog{agents: agents}
}

func readPack(name, dir string, log *zap.Logger) Pack {
	pack := Pack{Name: name, Dir: dir, Title: name}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("reading pack config", zap.String("pack", name), zap.Error(err))
		}
		return pack
	}

	var pc packConfig
	if err := yaml.Unmarshal(data, &pc); err != nil {
		log.Warn("parsing pack config", zap.String("pack", name), zap.Error(err))
		return pack
	}
	if pc.ShortTitle != "" {
		pack.Title = pc.ShortTitle
	}
	pack.Version = pc.Version
	pack.Description = pc.Description
	return pack
}

func loadPackAgents(packName, dir string, log *zap.Logger) ([]model.AgentDefinition, error) {
	agentsDir := filepath.Join(dir, "agents")
	if !isDir(agentsDir) {
		log.Warn("pack has no agents directory", zap.String("pack", packName))
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(agentsDir), "*.md", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing agents in %s: %w", agentsDir, err)
	}
	sort.Strings(matches)

	agents := make([]model.AgentDefinition, 0, len(matches))
	for _, rel := range matches {
		path := filepath.Join(agentsDir, filepath.FromSlash(rel))

		data, err := os.ReadFile(path) //nolint:gosec // path comes from the pack listing
		if err != nil {
			log.Warn("skipping agent content",
				zap.String("pack", packName),
				zap.String("file", path),
				zap.Error(fmt.Errorf("%w: %w", ErrAgentFileMalformed, err)))
			agents = append(agents, ParseAgentFile("", packName, path))
			continue
		}

		a := ParseAgentFile(string(data), packName, path)
		if a.Provenance.Metadata == model.MetadataInvalid {
			log.Warn("agent metadata unreadable, using defaults",
				zap.String("pack", packName),
				zap.String("file", path),
				zap.String("error", a.Provenance.MetadataError))
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Agents returns a copy of the catalog in iteration order.
func (c *Catalog) Agents() []model.AgentDefinition {
	out := make([]model.AgentDefinition, len(c.agents))
	copy(out, c.agents)
	return out
}

// Packs returns the packs that were loaded, in config order.
func (c *Catalog) Packs() []Pack {
	out := make([]Pack, len(c.packs))
	copy(out, c.packs)
	return out
}

// Len returns the number of agents.
func (c *Catalog) Len() int { return len(c.agents) }

// Find resolves query with this precedence: exact id, then case-insensitive
// substring of the display name, then exact filename stem. Within a rule the
// first agent in iteration order wins.
func (c *Catalog) Find(query string) (model.AgentDefinition, error) {
	if strings.TrimSpace(query) == "" {
		return model.AgentDefinition{}, fmt.Errorf("%w: empty query", ErrAgentNotFound)
	}

	for _, a := range c.agents {
		if a.ID == query {
			return a, nil
		}
	}
	for _, a := range c.agents {
		if containsIgnoreCase(a.DisplayName, query) {
			return a, nil
		}
	}
	for _, a := range c.agents {
		if a.FileStem == query {
			return a, nil
		}
	}
	return model.AgentDefinition{}, fmt.Errorf("%w: %q", ErrAgentNotFound, query)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// DiscoverPacks lists pack names (without the bmad- prefix) that have a
// config.yaml under bmadPath's expansion-packs directory.
func DiscoverPacks(bmadPath string) ([]string, error) {
	root := PacksRoot(bmadPath)
	if !isDir(root) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, root)
	}

	matches, err := doublestar.Glob(os.DirFS(root), PackPrefix+"*/config.yaml")
	if err != nil {
		return nil, fmt.Errorf("listing packs: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		dir, _, _ := strings.Cut(m, "/")
		names = append(names, strings.TrimPrefix(dir, PackPrefix))
	}
	sort.Strings(names)
	return names, nil
}
