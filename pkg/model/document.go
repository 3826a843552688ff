package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the resume shown and edited by the component. Experiences and
// Skills are never nil once the document passed through Normalize.
type Document struct {
	ID               string       `json:"id,omitempty" yaml:"id,omitempty"`
	FullName         string       `json:"full_name" yaml:"full_name"`
	Email            string       `json:"email" yaml:"email"`
	Summary          string       `json:"summary" yaml:"summary"`
	Experiences      []Experience `json:"experiences" yaml:"experiences"`
	Skills           []Skill      `json:"skills" yaml:"skills"`
	TemplateSelected TemplateRef  `json:"template_selected" yaml:"template_selected"`
}

// Experience is a single entry of the experiences collection. ID is stable for
// the lifetime of the item; render order is given by its position.
type Experience struct {
	ID         string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string   `json:"name" yaml:"name"`
	Position   string   `json:"position" yaml:"position"`
	URL        string   `json:"url" yaml:"url"`
	StartDate  string   `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Summary    string   `json:"summary" yaml:"summary"`
	Highlights []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}

// Skill is a single entry of the skills collection.
type Skill struct {
	ID       string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string   `json:"name" yaml:"name"`
	Level    string   `json:"level,omitempty" yaml:"level,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// TemplateRef identifies the renderer a resume is displayed with.
// ComponentName is the key the template resolver dispatches on.
type TemplateRef struct {
	ID            string `json:"id,omitempty" yaml:"id,omitempty"`
	ComponentName string `json:"component_name,omitempty" yaml:"component_name,omitempty"`
}

// UnmarshalJSON accepts either the nested object or a bare identifier (string
// or number), which is the shape the persistence API stores.
func (t *TemplateRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = TemplateRef{}
		return nil
	}
	switch trimmed[0] {
	case '{':
		type plain TemplateRef
		var out plain
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return fmt.Errorf("model: decode template_selected: %w", err)
		}
		*t = TemplateRef(out)
		return nil
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("model: decode template_selected: %w", err)
		}
		*t = TemplateRef{ID: id}
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(trimmed, &num); err != nil {
			return fmt.Errorf("model: decode template_selected: %w", err)
		}
		*t = TemplateRef{ID: num.String()}
		return nil
	}
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML fixtures.
func (t *TemplateRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*t = TemplateRef{}
			return nil
		}
		*t = TemplateRef{ID: node.Value}
		return nil
	case yaml.MappingNode:
		type plain TemplateRef
		var out plain
		if err := node.Decode(&out); err != nil {
			return fmt.Errorf("model: decode template_selected: %w", err)
		}
		*t = TemplateRef(out)
		return nil
	default:
		return fmt.Errorf("model: decode template_selected: unexpected yaml node kind %d", node.Kind)
	}
}

// IsZero reports whether no template has been selected.
func (t TemplateRef) IsZero() bool {
	return strings.TrimSpace(t.ID) == "" && strings.TrimSpace(t.ComponentName) == ""
}

// Normalize returns a copy of the document with nil collections replaced by
// empty ones so renderers can always range over them.
func (d Document) Normalize() Document {
	out := d.Clone()
	if out.Experiences == nil {
		out.Experiences = []Experience{}
	}
	if out.Skills == nil {
		out.Skills = []Skill{}
	}
	return out
}

// Clone deep-copies the document. The result never shares backing arrays with
// the receiver.
func (d Document) Clone() Document {
	out := d
	out.Experiences = CloneExperiences(d.Experiences)
	out.Skills = CloneSkills(d.Skills)
	return out
}

// CloneExperiences copies a sequence of experiences including nested slices.
func CloneExperiences(items []Experience) []Experience {
	if items == nil {
		return nil
	}
	out := make([]Experience, len(items))
	for idx, item := range items {
		item.Highlights = slices.Clone(item.Highlights)
		out[idx] = item
	}
	return out
}

// CloneSkills copies a sequence of skills including nested slices.
func CloneSkills(items []Skill) []Skill {
	if items == nil {
		return nil
	}
	out := make([]Skill, len(items))
	for idx, item := range items {
		item.Keywords = slices.Clone(item.Keywords)
		out[idx] = item
	}
	return out
}

// Len returns the number of items in the named collection, or -1 when the
// collection is unknown.
func (d Document) Len(collection Collection) int {
	switch collection {
	case CollectionExperiences:
		return len(d.Experiences)
	case CollectionSkills:
		return len(d.Skills)
	default:
		return -1
	}
}

// Lookup reads the string value addressed by path. The boolean is false when
// the path does not resolve against the document (unknown field, stale index).
func (d Document) Lookup(path FieldPath) (string, bool) {
	if path.IsScalar() {
		switch path.Field {
		case FieldFullName:
			return d.FullName, true
		case FieldEmail:
			return d.Email, true
		case FieldSummary:
			return d.Summary, true
		}
		return "", false
	}

	switch path.Collection {
	case CollectionExperiences:
		if path.Index < 0 || path.Index >= len(d.Experiences) {
			return "", false
		}
		return experienceValue(d.Experiences[path.Index], path.Key)
	case CollectionSkills:
		if path.Index < 0 || path.Index >= len(d.Skills) {
			return "", false
		}
		return skillValue(d.Skills[path.Index], path.Key)
	}
	return "", false
}

func experienceValue(item Experience, key string) (string, bool) {
	switch key {
	case KeyName:
		return item.Name, true
	case KeyPosition:
		return item.Position, true
	case KeyURL:
		return item.URL, true
	case KeyStartDate:
		return item.StartDate, true
	case KeyEndDate:
		return item.EndDate, true
	case KeySummary:
		return item.Summary, true
	}
	return "", false
}

func skillValue(item Skill, key string) (string, bool) {
	switch key {
	case "", KeyName:
		return item.Name, true
	case KeyLevel:
		return item.Level, true
	}
	return "", false
}

// WithExperienceField returns a copy of item with key set to value.
func WithExperienceField(item Experience, key, value string) (Experience, bool) {
	switch key {
	case KeyName:
		item.Name = value
	case KeyPosition:
		item.Position = value
	case KeyURL:
		item.URL = value
	case KeyStartDate:
		item.StartDate = value
	case KeyEndDate:
		item.EndDate = value
	case KeySummary:
		item.Summary = value
	default:
		return item, false
	}
	return item, true
}

// WithSkillField returns a copy of item with key set to value. An empty key
// addresses the skill name.
func WithSkillField(item Skill, key, value string) (Skill, bool) {
	switch key {
	case "", KeyName:
		item.Name = value
	case KeyLevel:
		item.Level = value
	default:
		return item, false
	}
	return item, true
}

// DecodeJSON parses a JSON resume payload and normalises it.
func DecodeJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("model: decode json: %w", err)
	}
	return doc.Normalize(), nil
}

// DecodeYAML parses a YAML resume payload and normalises it.
func DecodeYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("model: decode yaml: %w", err)
	}
	return doc.Normalize(), nil
}

// LoadFile reads a resume from disk, picking the decoder from the extension.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("model: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}
