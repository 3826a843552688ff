package resolver

import (
	"context"
	"html"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/render"
)

// FallbackName is the Name() of every fallback renderer.
const FallbackName = "Fallback"

// Fallback is the deterministic "could not load" display shown in place of a
// template that failed to resolve. It never reads the document.
type Fallback struct {
	Template string
	Cause    error
}

var _ render.Renderer = (*Fallback)(nil)

// NewFallback builds the fallback for the template that failed.
func NewFallback(template string, cause error) *Fallback {
	return &Fallback{Template: template, Cause: cause}
}

// IsFallback reports whether renderer is a resolution fallback.
func IsFallback(renderer render.Renderer) bool {
	_, ok := renderer.(*Fallback)
	return ok
}

func (f *Fallback) Name() string { return FallbackName }

func (f *Fallback) ContentType() string { return "text/html; charset=utf-8" }

// Render writes the localized load failure message. The component flash is
// appended so save failures stay visible while the template is broken.
func (f *Fallback) Render(_ context.Context, _ model.Document, options render.RenderOptions) ([]byte, error) {
	message := render.Label(options, render.LabelLoadFailed, f.Template)

	out := `<div class="rk-resume rk-resume--fallback" data-template="` + FallbackName + `" role="alert">` +
		`<p class="rk-fallback__message">` + html.EscapeString(message) + `</p>`
	if options.Flash != "" {
		out += `<p class="rk-flash" role="status">` + html.EscapeString(options.Flash) + `</p>`
	}
	out += `</div>`
	return []byte(out), nil
}
