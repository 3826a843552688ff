package html

import (
	"strings"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/render"
)

// fieldView is the template-facing projection of one editable value.
type fieldView struct {
	Path      string   `json:"path"`
	Value     string   `json:"value"`
	Display   string   `json:"display"`
	HTML      string   `json:"html,omitempty"`
	Empty     bool     `json:"empty"`
	Editing   bool     `json:"editing"`
	Input     string   `json:"input"`
	InputType string   `json:"input_type"`
	Multiline bool     `json:"multiline"`
	Label     string   `json:"label"`
	Errors    []string `json:"errors,omitempty"`
}

type experienceView struct {
	Index      int       `json:"index"`
	ID         string    `json:"id,omitempty"`
	ItemPath   string    `json:"item_path"`
	Name       fieldView `json:"name"`
	Position   fieldView `json:"position"`
	URL        fieldView `json:"url"`
	StartDate  fieldView `json:"start_date"`
	EndDate    fieldView `json:"end_date"`
	Summary    fieldView `json:"summary"`
	Highlights []string  `json:"highlights,omitempty"`
}

type skillView struct {
	Index    int       `json:"index"`
	ID       string    `json:"id,omitempty"`
	ItemPath string    `json:"item_path"`
	Name     fieldView `json:"name"`
	Level    string    `json:"level,omitempty"`
	Keywords []string  `json:"keywords,omitempty"`
}

type templateOption struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

type themeView struct {
	Name       string `json:"name,omitempty"`
	Variant    string `json:"variant,omitempty"`
	Style      string `json:"style,omitempty"`
	Stylesheet string `json:"stylesheet,omitempty"`
}

type pageView struct {
	Renderer    string            `json:"renderer"`
	Editable    bool              `json:"editable"`
	Editing     bool              `json:"editing"`
	FullName    fieldView         `json:"full_name"`
	Email       fieldView         `json:"email"`
	Summary     fieldView         `json:"summary"`
	Experiences []experienceView  `json:"experiences"`
	Skills      []skillView       `json:"skills"`
	CanAdd      map[string]bool   `json:"can_add"`
	Templates   []templateOption  `json:"templates,omitempty"`
	Flash       string            `json:"flash,omitempty"`
	FormErrors  []string          `json:"form_errors,omitempty"`
	Labels      map[string]string `json:"labels"`
	Theme       themeView         `json:"theme"`
}

func buildView(name string, doc model.Document, opts render.RenderOptions) pageView {
	doc = doc.Normalize()

	view := pageView{
		Renderer:    name,
		Editable:    opts.Editable,
		Editing:     opts.Editing != nil,
		FullName:    newField(opts, model.Scalar(model.FieldFullName), doc.FullName, render.LabelFullName, "text"),
		Email:       newField(opts, model.Scalar(model.FieldEmail), doc.Email, render.LabelEmail, "email"),
		Summary:     newField(opts, model.Scalar(model.FieldSummary), doc.Summary, render.LabelSummary, "text"),
		Experiences: make([]experienceView, 0, len(doc.Experiences)),
		Skills:      make([]skillView, 0, len(doc.Skills)),
		CanAdd: map[string]bool{
			string(model.CollectionExperiences): len(doc.Experiences) < model.MaxItems,
			string(model.CollectionSkills):      len(doc.Skills) < model.MaxItems,
		},
		Flash:      strings.TrimSpace(opts.Flash),
		FormErrors: render.MergeFormErrors(nil, opts.FormErrors...),
		Labels:     render.Labels(opts),
		Theme: themeView{
			Style:      render.CSSVarsStyle(opts.Theme),
			Stylesheet: render.AssetURL(opts.Theme, StylesheetName),
		},
	}
	view.Summary.Multiline = true
	if !view.Summary.Editing {
		view.Summary.HTML = sanitizeSummary(doc.Summary)
	}
	if opts.Theme != nil {
		view.Theme.Name = opts.Theme.Theme
		view.Theme.Variant = opts.Theme.Variant
	}

	for idx, item := range doc.Experiences {
		at := func(key string) model.FieldPath { return model.Item(model.CollectionExperiences, idx, key) }
		exp := experienceView{
			Index:      idx,
			ID:         item.ID,
			ItemPath:   at("").String(),
			Name:       newField(opts, at(model.KeyName), item.Name, render.LabelExperienceName, "text"),
			Position:   newField(opts, at(model.KeyPosition), item.Position, render.LabelExperienceTitle, "text"),
			URL:        newField(opts, at(model.KeyURL), item.URL, "", "url"),
			StartDate:  newField(opts, at(model.KeyStartDate), item.StartDate, "", "text"),
			EndDate:    newField(opts, at(model.KeyEndDate), item.EndDate, render.LabelPresent, "text"),
			Summary:    newField(opts, at(model.KeySummary), item.Summary, "", "text"),
			Highlights: item.Highlights,
		}
		exp.Summary.Multiline = true
		view.Experiences = append(view.Experiences, exp)
	}

	for idx, item := range doc.Skills {
		path := model.Item(model.CollectionSkills, idx, "")
		view.Skills = append(view.Skills, skillView{
			Index:    idx,
			ID:       item.ID,
			ItemPath: path.String(),
			Name:     newField(opts, path, item.Name, "", "text"),
			Level:    item.Level,
			Keywords: item.Keywords,
		})
	}

	for _, ref := range opts.Templates {
		view.Templates = append(view.Templates, templateOption{
			ID:       ref.ID,
			Name:     ref.ComponentName,
			Selected: ref.ComponentName == name,
		})
	}

	// Errors for paths the document no longer has still need to surface.
	known := make(map[string]struct{})
	for _, field := range view.fields() {
		known[field.Path] = struct{}{}
	}
	for path, messages := range opts.Errors {
		if _, ok := known[path]; !ok {
			view.FormErrors = render.MergeFormErrors(view.FormErrors, messages...)
		}
	}
	return view
}

func newField(opts render.RenderOptions, path model.FieldPath, value, placeholderKey, inputType string) fieldView {
	key := path.String()
	field := fieldView{
		Path:      key,
		Value:     value,
		Display:   value,
		Empty:     strings.TrimSpace(value) == "",
		InputType: inputType,
		Errors:    opts.ErrorsFor(key),
	}
	if placeholderKey != "" {
		field.Label = render.Label(opts, placeholderKey)
	}
	if field.Empty {
		field.Display = field.Label
	}
	if opts.IsEditing(path) {
		field.Editing = true
		field.Input = opts.Editing.Value
	}
	return field
}

func (v pageView) fields() []fieldView {
	out := []fieldView{v.FullName, v.Email, v.Summary}
	for _, exp := range v.Experiences {
		out = append(out, exp.Name, exp.Position, exp.URL, exp.StartDate, exp.EndDate, exp.Summary)
	}
	for _, skill := range v.Skills {
		out = append(out, skill.Name)
	}
	return out
}
