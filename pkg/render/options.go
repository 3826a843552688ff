package render

import (
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-resumekit/pkg/model"
)

// RenderOptions carry the per-render view state that does not belong to the
// document itself: which field is being edited, inline errors and status
// messages. Renderers must treat every field as optional.
type RenderOptions struct {
	// Editable toggles the editing affordances (data-action attributes, add and
	// delete controls). Read-only pages leave it false.
	Editable bool
	// Editing describes the open edit session, if any. The addressed field is
	// rendered as an input holding Editing.Value instead of its stored value.
	Editing *EditingState
	// Errors surfaces validation feedback keyed by FieldPath string
	// ("email", "experiences.1.url").
	Errors map[string][]string
	// Flash is a component-level status message (save failures, load errors).
	Flash string
	// FormErrors are document-level messages that do not belong to a field.
	FormErrors []string
	// Templates lists the catalog entries offered by the template picker.
	Templates []model.TemplateRef
	// Theme carries resolved design tokens and asset URLs.
	Theme *theme.RendererConfig
	// Locale and Translator localise section labels and placeholders.
	Locale     string
	Translator Translator
}

// EditingState mirrors the component edit session for renderers.
type EditingState struct {
	Path  model.FieldPath
	Value string
}

// ErrorsFor returns the messages attached to path.
func (o RenderOptions) ErrorsFor(path string) []string {
	if len(o.Errors) == 0 {
		return nil
	}
	return o.Errors[path]
}

// IsEditing reports whether path is the field currently in edit mode.
func (o RenderOptions) IsEditing(path model.FieldPath) bool {
	return o.Editing != nil && o.Editing.Path == path
}
