package catalog

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// DefaultRole is used when an agent file names no role.
const DefaultRole = "Specialist"

type scanState int

const (
	stateSearching scanState = iota
	stateInMetadataBlock
	stateDone
)

func (s scanState) String() string {
	switch s {
	case stateSearching:
		return "Searching"
	case stateInMetadataBlock:
		return "InMetadataBlock"
	case stateDone:
		return "Done"
	}
	return "unknown"
}

// scanResult is everything the line scanner pulls out of an agent file.
type scanResult struct {
	state      scanState
	foundBlock bool
	metadata   string
	title      string
	persona    string
}

// scanAgentText makes one pass over raw, driving the metadata block state
// machine while independently picking up the first title heading and the
// Persona section.
func scanAgentText(raw string) scanResult {
	var (
		res          scanResult
		meta         []string
		persona      []string
		inPersona    bool
		personaFound bool
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if res.title == "" && strings.HasPrefix(line, "# ") {
			res.title = strings.TrimSpace(line[2:])
		}

		switch res.state {
		case stateSearching:
			if strings.Contains(line, "```yaml") {
				res.state = stateInMetadataBlock
				res.foundBlock = true
			}
		case stateInMetadataBlock:
			if strings.Contains(line, "```") {
				res.state = stateDone
			} else {
				meta = append(meta, line)
			}
		case stateDone:
		}

		switch {
		case inPersona && strings.HasPrefix(line, "#"):
			inPersona = false
		case inPersona:
			persona = append(persona, line)
		case !personaFound && strings.HasPrefix(line, "## Persona"):
			inPersona = true
			personaFound = true
		}
	}

	res.metadata = strings.Join(meta, "\n")
	res.persona = strings.TrimSpace(strings.Join(persona, "\n"))
	return res
}

// FileStem returns the file name without directory or .md extension.
func FileStem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var errEmptyMetadata = errors.New("metadata block is empty")

func decodeMetadata(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyMetadata
	}
	var m map[string]any
	if err := yaml.Unmarshal([]byte(text), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errEmptyMetadata
	}
	return m, nil
}

// stringField returns m[key] only when it is a non-blank string.
func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// ParseAgentFile extracts an AgentDefinition from the raw markdown of one
// agent file. It never fails: whatever cannot be read from the metadata block
// falls back to the title heading, the filename stem, or a fixed default, and
// Provenance records which branch fired.
func ParseAgentFile(raw, packName, filename string) model.AgentDefinition {
	scan := scanAgentText(raw)
	stem := FileStem(filename)

	a := model.AgentDefinition{
		ID:         stem,
		Role:       DefaultRole,
		Persona:    scan.persona,
		SourceText: raw,
		PackName:   packName,
		FileStem:   stem,
		Path:       filename,
		Provenance: model.Provenance{
			Metadata:   model.MetadataAbsent,
			ID:         model.FromFilename,
			Role:       model.FromDefault,
			Activation: model.FromDefault,
		},
	}

	var meta map[string]any
	if scan.foundBlock {
		m, err := decodeMetadata(scan.metadata)
		if err != nil {
			a.Provenance.Metadata = model.MetadataInvalid
			a.Provenance.MetadataError = err.Error()
		} else {
			a.Provenance.Metadata = model.MetadataFound
			meta = m
		}
	}

	if id, ok := stringField(meta, "agent"); ok {
		a.ID = id
		a.Provenance.ID = model.FromMetadata
	}

	switch name, ok := stringField(meta, "name"); {
	case ok:
		a.DisplayName = name
		a.Provenance.Name = model.FromMetadata
	case scan.title != "":
		a.DisplayName = scan.title
		a.Provenance.Name = model.FromTitle
	default:
		a.DisplayName = stem
		a.Provenance.Name = model.FromFilename
	}

	if role, ok := stringField(meta, "role"); ok {
		a.Role = role
		a.Provenance.Role = model.FromMetadata
	}
	if act, ok := stringField(meta, "activation"); ok {
		a.ActivationHint = act
		a.Provenance.Activation = model.FromMetadata
	}

	return a
}

var exampleGreeting = regexp.MustCompile("## Example Interaction\\s*```[^`]*You:[^`]*Agent: \"([^\"]+)\"")

// Greeting returns the agent's opening line: the quoted agent utterance from
// its Example Interaction section, or a synthesized introduction.
func Greeting(a model.AgentDefinition) string {
	if m := exampleGreeting.FindStringSubmatch(a.SourceText); m != nil {
		return m[1]
	}
	hint := a.ActivationHint
	if hint == "" {
		hint = "How can I help you today?"
	}
	return "Hello! I'm " + a.DisplayName + ", your " + a.Role + ". " + hint
}
