// Package resumekit wires the built-in renderers, the template resolver and
// the editing component together. Applications that need more control can use
// the packages under pkg/ directly.
package resumekit

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-resumekit/pkg/component"
	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/render"
	"github.com/goliatone/go-resumekit/pkg/renderers/html"
	"github.com/goliatone/go-resumekit/pkg/renderers/markdown"
	"github.com/goliatone/go-resumekit/pkg/resolver"
)

// Document aliases model.Document for callers that only need the facade.
type Document = model.Document

// TemplateRef aliases model.TemplateRef.
type TemplateRef = model.TemplateRef

// RenderOptions aliases render.RenderOptions.
type RenderOptions = render.RenderOptions

// Built-in template names.
const (
	ModernResume   = html.ModernName
	ClassicResume  = html.ClassicName
	MarkdownResume = markdown.Name
)

// Option configures the built-in resolver.
type Option func(*config)

type config struct {
	templatesFS fs.FS
	logger      *slog.Logger
	resolver    []resolver.Option
	extra       *render.Registry
}

// WithTemplatesFS overrides the embedded HTML templates.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templatesFS = files
	}
}

// WithLogger sets the logger used by the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRenderers exposes the renderers of registry next to the built-in
// templates. Names that clash with a built-in are skipped and logged.
func WithRenderers(registry *render.Registry) Option {
	return func(cfg *config) {
		cfg.extra = registry
	}
}

// WithResolverOptions forwards options to resolver.New.
func WithResolverOptions(options ...resolver.Option) Option {
	return func(cfg *config) {
		cfg.resolver = append(cfg.resolver, options...)
	}
}

// Catalog returns the built-in template catalog. Identifiers match the ones
// persisted by the storage API.
func Catalog() []model.TemplateRef {
	return []model.TemplateRef{
		{ID: "1", ComponentName: ModernResume},
		{ID: "2", ComponentName: ClassicResume},
	}
}

// CatalogWith appends the catalog entries of registry to the built-in
// catalog. Entries whose id or name is already taken are dropped.
func CatalogWith(registry *render.Registry) []model.TemplateRef {
	catalog := Catalog()
	if registry == nil {
		return catalog
	}
	for _, ref := range registry.Catalog() {
		if catalogHas(catalog, ref) {
			continue
		}
		catalog = append(catalog, ref)
	}
	return catalog
}

func catalogHas(catalog []model.TemplateRef, ref model.TemplateRef) bool {
	for _, existing := range catalog {
		if existing.ID == ref.ID || existing.ComponentName == ref.ComponentName {
			return true
		}
	}
	return false
}

// NewResolver registers the built-in renderers. Factories run on first use,
// so a broken template bundle only affects the variant that needs it.
func NewResolver(options ...Option) *resolver.Resolver {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	var htmlOptions []html.Option
	if cfg.templatesFS != nil {
		htmlOptions = append(htmlOptions, html.WithTemplatesFS(cfg.templatesFS))
	}

	res := resolver.New(append([]resolver.Option{resolver.WithLogger(cfg.logger)}, cfg.resolver...)...)
	res.MustRegister(ModernResume, func(context.Context) (render.Renderer, error) {
		return html.NewModern(htmlOptions...)
	})
	res.MustRegister(ClassicResume, func(context.Context) (render.Renderer, error) {
		return html.NewClassic(htmlOptions...)
	})
	res.MustRegister(MarkdownResume, func(context.Context) (render.Renderer, error) {
		return markdown.New()
	})
	if cfg.extra != nil {
		for _, name := range cfg.extra.Names() {
			renderer, err := cfg.extra.Get(name)
			if err == nil {
				err = res.RegisterRenderer(renderer)
			}
			if err != nil {
				cfg.logger.Warn("extra renderer skipped", "template", name, "error", err)
			}
		}
	}
	return res
}

// New mounts doc on a component backed by the built-in resolver and catalog.
// Later options win, so callers can replace either.
func New(ctx context.Context, doc model.Document, templateName string, options ...component.Option) *component.Component {
	defaults := []component.Option{
		component.WithResolver(NewResolver()),
		component.WithCatalog(Catalog()),
	}
	return component.New(ctx, doc, templateName, append(defaults, options...)...)
}

// ExportMarkdown renders doc as markdown.
func ExportMarkdown(ctx context.Context, doc model.Document) ([]byte, error) {
	renderer, err := markdown.New()
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, doc, render.RenderOptions{})
}

// DefaultThemeManifest is the built-in theme. Its tokens feed the CSS
// variables of the bundled stylesheet.
func DefaultThemeManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    "resumekit",
		Version: "1.0.0",
		Tokens: map[string]string{
			"brand":          "#2f5f8a",
			"brand-contrast": "#ffffff",
			"text":           "#1f2933",
			"muted":          "#7b8794",
			"danger":         "#c53030",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"brand":          "#90cdf4",
					"brand-contrast": "#1a202c",
					"text":           "#e2e8f0",
					"muted":          "#a0aec0",
				},
			},
		},
	}
}

// ThemeConfig selects name/variant among the default manifest and extra. An
// empty name selects the default manifest.
func ThemeConfig(name, variant string, extra ...*theme.Manifest) (*theme.RendererConfig, error) {
	manifests := append([]*theme.Manifest{DefaultThemeManifest()}, extra...)
	selector, err := render.NewManifestSelector(manifests...)
	if err != nil {
		return nil, fmt.Errorf("resumekit: theme: %w", err)
	}
	return render.ThemeConfig(selector, name, variant)
}
