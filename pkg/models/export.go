package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExportFormat selects the text encoding of a session document.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

// ParseExportFormat accepts "json", "yaml" or "yml" in any case. An empty
// name selects JSON.
func ParseExportFormat(name string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", name)
	}
}

// ToJSON encodes the session with enum values as strings.
func (s *WorkflowSession) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ToYAML encodes the session as a YAML document with the same keys, order
// and null/empty distinctions as ToJSON.
func (s *WorkflowSession) ToYAML() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert session to yaml: %w", err)
	}
	blockStyle(&doc)
	return yaml.Marshal(&doc)
}

// blockStyle drops the flow and quoting styles a JSON source leaves on the
// nodes. Empty collections stay in flow style so they read as {} and [].
func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		if len(n.Content) > 0 {
			n.Style = 0
		}
	case yaml.ScalarNode:
		if n.Tag == "!!str" {
			n.Style = 0
		}
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// Export encodes the session in the requested format.
func (s *WorkflowSession) Export(format ExportFormat) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return s.ToJSON()
	case FormatYAML:
		return s.ToYAML()
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// SessionFromJSON decodes a session produced by ToJSON.
func SessionFromJSON(data []byte) (*WorkflowSession, error) {
	var s WorkflowSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if err := s.validateDecoded(); err != nil {
		return nil, err
	}
	return &s, nil
}

// SessionFromYAML decodes a session produced by ToYAML.
func SessionFromYAML(data []byte) (*WorkflowSession, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("failed to decode session: document is not a mapping")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return SessionFromJSON(data)
}

// Import decodes a session document in the given format.
func Import(format ExportFormat, data []byte) (*WorkflowSession, error) {
	switch format {
	case FormatJSON, "":
		return SessionFromJSON(data)
	case FormatYAML:
		return SessionFromYAML(data)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

func (s *WorkflowSession) validateDecoded() error {
	if s.SessionID == "" {
		return fmt.Errorf("session document has no session_id")
	}
	if !s.CurrentStage.Valid() {
		return fmt.Errorf("session %s: unknown current_stage %q", s.SessionID, s.CurrentStage)
	}
	for stage, status := range s.StageStatuses {
		if !stage.Valid() {
			return fmt.Errorf("session %s: unknown stage %q in stage_statuses", s.SessionID, stage)
		}
		if !status.Valid() {
			return fmt.Errorf("session %s: unknown status %q for stage %s", s.SessionID, status, stage)
		}
	}
	s.ensureStatuses()
	return nil
}
