// Package terminal edits a resume from an interactive terminal. It drives the
// same component the web view uses, so edits go through the identical
// activate, input and commit cycle and obey the same validation rules.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-resumekit/pkg/component"
	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/persist"
	"github.com/goliatone/go-resumekit/pkg/render"
	"github.com/goliatone/go-resumekit/pkg/resolver"
)

// Menu entries shown by Run.
const (
	MenuEdit      = "Edit a field"
	MenuAddExp    = "Add experience"
	MenuAddSkill  = "Add skill"
	MenuDelete    = "Delete an item"
	MenuTemplate  = "Switch template"
	MenuPreview   = "Preview"
	MenuSave      = "Save"
	MenuQuit      = "Quit"
	maxLabelWidth = 48
)

var menu = []string{
	MenuEdit,
	MenuAddExp,
	MenuAddSkill,
	MenuDelete,
	MenuTemplate,
	MenuPreview,
	MenuSave,
	MenuQuit,
}

// Option configures an Editor.
type Option func(*Editor)

// WithPromptDriver swaps the prompt implementation, mainly for tests.
func WithPromptDriver(driver PromptDriver) Option {
	return func(e *Editor) {
		if driver != nil {
			e.driver = driver
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPreview renders previews with renderer instead of the component's
// active template. Terminals read markdown better than html.
func WithPreview(renderer render.Renderer) Option {
	return func(e *Editor) {
		e.preview = renderer
	}
}

// WithTemplates sets the names offered by the template menu. By default the
// component catalog is used.
func WithTemplates(names ...string) Option {
	return func(e *Editor) {
		e.templates = append([]string(nil), names...)
	}
}

// Editor runs an interactive editing session over a component.
type Editor struct {
	driver    PromptDriver
	logger    *slog.Logger
	preview   render.Renderer
	templates []string
}

// New builds an editor. Without WithPromptDriver it prompts on the process
// terminal.
func New(options ...Option) *Editor {
	e := &Editor{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	if e.driver == nil {
		e.driver = NewSurveyDriver(nil)
	}
	return e
}

// Run shows the main menu until the user quits. Unsaved changes are confirmed
// before quitting. Aborting a prompt returns ErrAborted.
func (e *Editor) Run(ctx context.Context, comp *component.Component) error {
	if comp == nil {
		return fmt.Errorf("terminal: component is required")
	}
	saved := comp.Store().Version()

	for {
		choice, err := e.driver.Select(ctx, SelectConfig{
			Message:  fmt.Sprintf("%s (%s)", titleOf(comp.Document()), comp.TemplateName()),
			Options:  menu,
			PageSize: len(menu),
		})
		if err != nil {
			return err
		}
		if choice < 0 || choice >= len(menu) {
			continue
		}

		switch menu[choice] {
		case MenuEdit:
			err = e.editField(ctx, comp)
		case MenuAddExp:
			err = e.add(ctx, comp, model.CollectionExperiences)
		case MenuAddSkill:
			err = e.add(ctx, comp, model.CollectionSkills)
		case MenuDelete:
			err = e.deleteItem(ctx, comp)
		case MenuTemplate:
			err = e.switchTemplate(ctx, comp)
		case MenuPreview:
			err = e.showPreview(ctx, comp)
		case MenuSave:
			if e.save(ctx, comp) {
				saved = comp.Store().Version()
			}
		case MenuQuit:
			if comp.Store().Version() == saved {
				return nil
			}
			discard, confirmErr := e.driver.Confirm(ctx, ConfirmConfig{
				Message: "Discard unsaved changes?",
			})
			if confirmErr != nil {
				return confirmErr
			}
			if discard {
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
}

type fieldChoice struct {
	label string
	path  model.FieldPath
}

// editField opens a session on the chosen field and keeps prompting until
// the value commits. There is no cancel: the last valid value must be
// re-entered to leave a field unchanged.
func (e *Editor) editField(ctx context.Context, comp *component.Component) error {
	choices := fieldChoices(comp.Document())
	labels := make([]string, len(choices))
	for i, choice := range choices {
		labels[i] = choice.label
	}
	idx, err := e.driver.Select(ctx, SelectConfig{
		Message:  "Field",
		Options:  labels,
		PageSize: 12,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(choices) {
		return nil
	}
	path := choices[idx].path

	if err := comp.Dispatch(ctx, component.Activate{Path: path}); err != nil {
		return err
	}

	for {
		session, ok := comp.Session()
		if !ok {
			return nil
		}
		value, err := e.prompt(ctx, session)
		if err != nil {
			return err
		}
		if err := comp.Dispatch(ctx, component.Input{Value: value}); err != nil {
			return err
		}
		err = comp.Dispatch(ctx, component.Commit{})
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrInvalidInput) {
			return err
		}
		if err := e.driver.Info(ctx, "  ! "+messageOf(err)); err != nil {
			return err
		}
	}
}

func (e *Editor) prompt(ctx context.Context, session component.EditSession) (string, error) {
	message := session.Target.String()
	if isLongText(session.Target) {
		return e.driver.TextArea(ctx, TextAreaConfig{
			Message: message,
			Default: session.Live,
		})
	}
	return e.driver.Input(ctx, InputConfig{
		Message: message,
		Default: session.Live,
	})
}

func (e *Editor) add(ctx context.Context, comp *component.Component, collection model.Collection) error {
	err := comp.Dispatch(ctx, component.Add{Collection: collection})
	if errors.Is(err, model.ErrInvalidInput) {
		return e.driver.Info(ctx, "  ! "+messageOf(err))
	}
	if err != nil {
		return err
	}
	doc := comp.Document()
	return e.driver.Info(ctx, fmt.Sprintf("Added %s.%d", collection, doc.Len(collection)-1))
}

func (e *Editor) deleteItem(ctx context.Context, comp *component.Component) error {
	doc := comp.Document()
	choices := itemChoices(doc)
	if len(choices) == 0 {
		return e.driver.Info(ctx, "Nothing to delete")
	}
	labels := make([]string, len(choices))
	for i, choice := range choices {
		labels[i] = choice.label
	}
	idx, err := e.driver.Select(ctx, SelectConfig{
		Message:  "Delete",
		Options:  labels,
		PageSize: 12,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(choices) {
		return nil
	}
	target := choices[idx]

	ok, err := e.driver.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("Delete %s?", target.label),
	})
	if err != nil || !ok {
		return err
	}
	return comp.Dispatch(ctx, component.Delete{
		Collection: target.path.Collection,
		Index:      target.path.Index,
	})
}

func (e *Editor) switchTemplate(ctx context.Context, comp *component.Component) error {
	names := e.templates
	if len(names) == 0 {
		for _, ref := range comp.Catalog() {
			names = append(names, ref.ComponentName)
		}
	}
	if len(names) == 0 {
		return e.driver.Info(ctx, "No templates available")
	}

	current := indexOf(names, comp.TemplateName())
	idx, err := e.driver.Select(ctx, SelectConfig{
		Message:      "Template",
		Options:      names,
		DefaultIndex: current,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(names) {
		return nil
	}
	if err := comp.Dispatch(ctx, component.SwitchTemplate{Name: names[idx]}); err != nil {
		return err
	}
	if resolver.IsFallback(comp.Renderer()) {
		e.logger.Warn("template fell back", "template", names[idx])
		return e.driver.Info(ctx, fmt.Sprintf("  ! template %q could not be loaded", names[idx]))
	}
	return e.driver.Info(ctx, "Template: "+comp.TemplateName())
}

func (e *Editor) showPreview(ctx context.Context, comp *component.Component) error {
	var (
		out []byte
		err error
	)
	if e.preview != nil {
		out, err = e.preview.Render(ctx, comp.Document(), render.RenderOptions{})
	} else {
		out, _, err = comp.View(ctx)
	}
	if err != nil {
		return err
	}
	return e.driver.Info(ctx, strings.TrimRight(string(out), "\n"))
}

// save reports whether the snapshot was accepted. Rejections are shown and
// leave the editor running.
func (e *Editor) save(ctx context.Context, comp *component.Component) bool {
	err := comp.Dispatch(ctx, component.Save{})
	if errors.Is(err, model.ErrInvalidInput) {
		_ = e.driver.Info(ctx, "  ! "+messageOf(err))
		return false
	}
	if flash := comp.Flash(); flash != "" {
		_ = e.driver.Info(ctx, flash)
	}
	if err == nil {
		return true
	}
	e.logger.Warn("save failed", "error", err)
	mapping := render.MapErrorPayload(comp.Document(), persist.FieldErrors(err))
	for path, messages := range mapping.Fields {
		_ = e.driver.Info(ctx, fmt.Sprintf("  ! %s: %s", path, strings.Join(messages, "; ")))
	}
	for _, message := range mapping.Form {
		_ = e.driver.Info(ctx, "  ! "+message)
	}
	return false
}

func fieldChoices(doc model.Document) []fieldChoice {
	paths := []model.FieldPath{
		model.Scalar(model.FieldFullName),
		model.Scalar(model.FieldEmail),
		model.Scalar(model.FieldSummary),
	}
	experienceKeys := []string{
		model.KeyName,
		model.KeyPosition,
		model.KeyURL,
		model.KeyStartDate,
		model.KeyEndDate,
		model.KeySummary,
	}
	for i := range doc.Experiences {
		for _, key := range experienceKeys {
			paths = append(paths, model.Item(model.CollectionExperiences, i, key))
		}
	}
	for i := range doc.Skills {
		paths = append(paths,
			model.Item(model.CollectionSkills, i, ""),
			model.Item(model.CollectionSkills, i, model.KeyLevel),
		)
	}

	out := make([]fieldChoice, 0, len(paths))
	for _, path := range paths {
		value, _ := doc.Lookup(path)
		out = append(out, fieldChoice{label: choiceLabel(path, value), path: path})
	}
	return out
}

func itemChoices(doc model.Document) []fieldChoice {
	out := make([]fieldChoice, 0, len(doc.Experiences)+len(doc.Skills))
	for i, item := range doc.Experiences {
		path := model.Item(model.CollectionExperiences, i, "")
		out = append(out, fieldChoice{label: choiceLabel(path, item.Name), path: path})
	}
	for i, item := range doc.Skills {
		path := model.Item(model.CollectionSkills, i, "")
		out = append(out, fieldChoice{label: choiceLabel(path, item.Name), path: path})
	}
	return out
}

func choiceLabel(path model.FieldPath, value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if utf8.RuneCountInString(value) > maxLabelWidth {
		value = string([]rune(value)[:maxLabelWidth-1]) + "…"
	}
	return fmt.Sprintf("%s: %s", path, value)
}

func isLongText(path model.FieldPath) bool {
	if path.IsScalar() {
		return path.Field == model.FieldSummary
	}
	return path.Key == model.KeySummary
}

func titleOf(doc model.Document) string {
	if name := strings.TrimSpace(doc.FullName); name != "" {
		return name
	}
	return "Resume"
}

func messageOf(err error) string {
	var validation *model.ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	return err.Error()
}
