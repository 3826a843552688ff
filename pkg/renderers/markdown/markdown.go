// Package markdown exports a resume as a Markdown document. It is a read-only
// renderer: editing state in RenderOptions is ignored.
package markdown

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/render"
	rendertemplate "github.com/goliatone/go-resumekit/pkg/render/template"
	gotemplate "github.com/goliatone/go-resumekit/pkg/render/template/gotemplate"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Name is the catalog name of the Markdown export.
const Name = "MarkdownResume"

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
}

// WithTemplatesFS supplies an alternate template bundle. It must contain
// templates/resume.tmpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
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

// Renderer implements render.Renderer for Markdown output.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the Markdown renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: embeddedTemplates}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(gotemplate.WithFS(cfg.templateFS))
		if err != nil {
			return nil, fmt.Errorf("markdown renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}
	return &Renderer{templates: renderer}, nil
}

func (r *Renderer) Name() string { return Name }

func (r *Renderer) ContentType() string { return "text/markdown; charset=utf-8" }

// Render implements render.Renderer.
func (r *Renderer) Render(ctx context.Context, doc model.Document, options render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc = doc.Normalize()

	result, err := r.templates.RenderTemplate("templates/resume", map[string]any{
		"full_name":   doc.FullName,
		"email":       doc.Email,
		"summary":     doc.Summary,
		"experiences": doc.Experiences,
		"skills":      doc.Skills,
		"labels":      render.Labels(options),
	})
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: render template: %w", err)
	}
	return []byte(tidy(result)), nil
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// tidy collapses the blank lines template tags leave behind.
func tidy(out string) string {
	return strings.TrimSpace(blankRuns.ReplaceAllString(out, "\n\n")) + "\n"
}
