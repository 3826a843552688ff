// Package html renders resumes as editable HTML fragments. Every variant shares
// one view model and one data-action vocabulary, so the component can swap
// them at runtime without touching the document.
package html

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/render"
	rendertemplate "github.com/goliatone/go-resumekit/pkg/render/template"
	gotemplate "github.com/goliatone/go-resumekit/pkg/render/template/gotemplate"
)

// Built-in template names, as stored in the template catalog.
const (
	ModernName  = "ModernResume"
	ClassicName = "ClassicResume"
)

// Option configures a renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// Renderer is one HTML resume variant.
type Renderer struct {
	name      string
	layout    string
	templates rendertemplate.TemplateRenderer
}

var _ render.Renderer = (*Renderer)(nil)

// NewModern builds the two-column "ModernResume" variant.
func NewModern(options ...Option) (*Renderer, error) {
	return newRenderer(ModernName, "templates/modern.tmpl", options...)
}

// NewClassic builds the single-column "ClassicResume" variant.
func NewClassic(options ...Option) (*Renderer, error) {
	return newRenderer(ClassicName, "templates/classic.tmpl", options...)
}

func newRenderer(name, layout string, options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{name: name, layout: layout, templates: renderer}, nil
}

// Name implements render.Renderer.
func (r *Renderer) Name() string {
	return r.name
}

// ContentType implements render.Renderer.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render implements render.Renderer.
func (r *Renderer) Render(ctx context.Context, doc model.Document, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := r.templates.RenderTemplate(r.layout, buildView(r.name, doc, options))
	if err != nil {
		return nil, fmt.Errorf("html renderer %s: render template: %w", r.name, err)
	}
	return []byte(result), nil
}
