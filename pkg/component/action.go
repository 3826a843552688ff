package component

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-resumekit/pkg/model"
)

// Action is a user interaction produced by the view layer. The set of actions
// is closed: only the types in this file implement it.
type Action interface {
	action() string
}

// Activate opens an edit session on Path.
type Activate struct{ Path model.FieldPath }

// Input replaces the live value of the open edit session.
type Input struct{ Value string }

// Commit closes the open edit session, writing the trimmed value back. Losing
// focus and pressing enter both commit; there is no cancel.
type Commit struct{}

// Delete removes the item at Index from Collection.
type Delete struct {
	Collection model.Collection
	Index      int
}

// Add appends the default item to Collection.
type Add struct{ Collection model.Collection }

// SwitchTemplate swaps the active renderer, keeping the document.
type SwitchTemplate struct{ Name string }

// Save sends a snapshot of the document to the save collaborator.
type Save struct{}

func (Activate) action() string       { return "activate" }
func (Input) action() string          { return "input" }
func (Commit) action() string         { return "commit" }
func (Delete) action() string         { return "delete" }
func (Add) action() string            { return "add" }
func (SwitchTemplate) action() string { return "switch-template" }
func (Save) action() string           { return "save" }

// ActionName returns the wire name of a.
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.action()
}

// wireAction is the JSON form emitted by the data-action attributes:
//
//	{"action":"activate","path":"experiences.1.url"}
//	{"action":"input","value":"Ada"}
//	{"action":"delete","path":"skills.2"}
//	{"action":"add","collection":"skills"}
//	{"action":"switch-template","name":"ClassicResume"}
type wireAction struct {
	Action     string `json:"action"`
	Path       string `json:"path,omitempty"`
	Collection string `json:"collection,omitempty"`
	Index      *int   `json:"index,omitempty"`
	Value      string `json:"value,omitempty"`
	Name       string `json:"name,omitempty"`
}

// DecodeAction parses the wire form of an action.
func DecodeAction(data []byte) (Action, error) {
	var wire wireAction
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("component: decode action: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(wire.Action)) {
	case "activate":
		path, err := model.ParseFieldPath(wire.Path)
		if err != nil {
			return nil, fmt.Errorf("component: activate: %w", err)
		}
		return Activate{Path: path}, nil
	case "input":
		return Input{Value: wire.Value}, nil
	case "commit", "blur":
		return Commit{}, nil
	case "delete":
		collection, index, err := wire.item()
		if err != nil {
			return nil, fmt.Errorf("component: delete: %w", err)
		}
		return Delete{Collection: collection, Index: index}, nil
	case "add":
		collection := model.Collection(strings.TrimSpace(wire.Collection))
		if !collection.Valid() {
			return nil, fmt.Errorf("component: add: unknown collection %q", wire.Collection)
		}
		return Add{Collection: collection}, nil
	case "switch-template", "switch_template":
		name := strings.TrimSpace(wire.Name)
		if name == "" {
			name = strings.TrimSpace(wire.Value)
		}
		return SwitchTemplate{Name: name}, nil
	case "save":
		return Save{}, nil
	default:
		return nil, fmt.Errorf("component: unknown action %q", wire.Action)
	}
}

// EncodeAction is the inverse of DecodeAction.
func EncodeAction(a Action) ([]byte, error) {
	wire := wireAction{Action: ActionName(a)}
	switch v := a.(type) {
	case Activate:
		wire.Path = v.Path.String()
	case Input:
		wire.Value = v.Value
	case Delete:
		wire.Path = model.Item(v.Collection, v.Index, "").String()
	case Add:
		wire.Collection = string(v.Collection)
	case SwitchTemplate:
		wire.Name = v.Name
	case Commit, Save:
	default:
		return nil, fmt.Errorf("component: cannot encode %T", a)
	}
	return json.Marshal(wire)
}

func (w wireAction) item() (model.Collection, int, error) {
	if w.Path != "" {
		path, err := model.ParseFieldPath(w.Path)
		if err != nil {
			return "", 0, err
		}
		if path.IsScalar() {
			return "", 0, fmt.Errorf("path %q does not address a list item", w.Path)
		}
		return path.Collection, path.Index, nil
	}
	collection := model.Collection(strings.TrimSpace(w.Collection))
	if !collection.Valid() {
		return "", 0, fmt.Errorf("unknown collection %q", w.Collection)
	}
	if w.Index == nil {
		return "", 0, fmt.Errorf("index is required")
	}
	return collection, *w.Index, nil
}
