// Package model defines domain types for bmadchat agents, conversations and usage.
package model

// AgentDefinition is a persona parsed from one agent markdown file.
// Values are immutable once the catalog has built them.
type AgentDefinition struct {
	ID             string
	DisplayName    string
	Role           string
	ActivationHint string
	Persona        string
	SourceText     string
	PackName       string
	FileStem       string
	Path           string
	Provenance     Provenance
}

// MetadataStatus says what happened to the fenced metadata block.
type MetadataStatus string

// Metadata outcomes.
const (
	MetadataFound   MetadataStatus = "found"
	MetadataAbsent  MetadataStatus = "absent"
	MetadataInvalid MetadataStatus = "invalid"
)

// FieldSource names where a parsed field's value came from.
type FieldSource string

// Field sources, in fallback order.
const (
	FromMetadata FieldSource = "metadata"
	FromTitle    FieldSource = "title"
	FromFilename FieldSource = "filename"
	FromDefault  FieldSource = "default"
)

// Provenance records which branch of the fallback chain produced each field.
type Provenance struct {
	Metadata      MetadataStatus
	MetadataError string
	ID            FieldSource
	Name          FieldSource
	Role          FieldSource
	Activation    FieldSource
}

// Defaulted reports whether any field fell back past the metadata block.
func (p Provenance) Defaulted() bool {
	return p.ID != FromMetadata || p.Name != FromMetadata || p.Role != FromMetadata
}
