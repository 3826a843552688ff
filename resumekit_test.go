package resumekit

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-resumekit/pkg/component"
	"github.com/goliatone/go-resumekit/pkg/render"
	"github.com/goliatone/go-resumekit/pkg/resolver"
	"github.com/goliatone/go-resumekit/pkg/testsupport"
)

func TestAssetsFSContainsStylesheet(t *testing.T) {
	data, err := fs.ReadFile(AssetsFS(), "resumekit.css")
	if err != nil {
		t.Fatalf("expected stylesheet to be readable: %v", err)
	}
	if !strings.Contains(string(data), ".rk-resume") {
		t.Fatalf("expected stylesheet to style the resume root")
	}
}

func TestEmbeddedTemplatesContainLayouts(t *testing.T) {
	for _, name := range []string{"templates/modern.tmpl", "templates/classic.tmpl"} {
		if _, err := fs.Stat(EmbeddedTemplates(), name); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestNewResolverRegistersBuiltins(t *testing.T) {
	res := NewResolver()
	for _, name := range []string{ModernResume, ClassicResume, MarkdownResume} {
		if !res.Has(name) {
			t.Fatalf("expected %s to be registered", name)
		}
		if renderer := res.Resolve(context.Background(), name); resolver.IsFallback(renderer) {
			t.Fatalf("%s resolved to the fallback", name)
		}
	}
}

func TestNewRendersDocumentTemplate(t *testing.T) {
	comp := New(context.Background(), testsupport.SampleDocument(), "")
	if comp.TemplateName() != ModernResume {
		t.Fatalf("expected document template, got %q", comp.TemplateName())
	}
	out, contentType, err := comp.View(context.Background())
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !strings.HasPrefix(contentType, "text/html") {
		t.Fatalf("unexpected content type %q", contentType)
	}
	testsupport.AssertContains(t, string(out), "Ada Lovelace")
}

func TestExportMarkdown(t *testing.T) {
	out, err := ExportMarkdown(context.Background(), testsupport.SampleDocument())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	testsupport.AssertContains(t, string(out), "# Ada Lovelace", "Royal Society")
}

func TestThemeConfigVariant(t *testing.T) {
	cfg, err := ThemeConfig("", "dark")
	if err != nil {
		t.Fatalf("theme: %v", err)
	}
	if cfg.Theme != "resumekit" || cfg.CSSVars["--brand"] != "#90cdf4" || cfg.CSSVars["--danger"] != "#c53030" {
		t.Fatalf("unexpected theme config: %+v", cfg)
	}
	if _, err := ThemeConfig("missing", ""); err == nil {
		t.Fatalf("expected error for unknown theme")
	}
}

type plainRenderer struct{ name string }

func (p plainRenderer) Name() string        { return p.name }
func (p plainRenderer) ContentType() string { return "text/plain; charset=utf-8" }
func (p plainRenderer) Render(_ context.Context, doc Document, _ RenderOptions) ([]byte, error) {
	return []byte(p.name + ":" + doc.FullName), nil
}

func TestWithRenderersAddsHostTemplates(t *testing.T) {
	extra := render.NewRegistry()
	if err := extra.RegisterAs("3", plainRenderer{name: "PlainResume"}); err != nil {
		t.Fatalf("register plain: %v", err)
	}
	if err := extra.RegisterAs("4", plainRenderer{name: ModernResume}); err != nil {
		t.Fatalf("register clash: %v", err)
	}

	res := NewResolver(WithRenderers(extra))
	if renderer := res.Resolve(context.Background(), ModernResume); renderer.ContentType() == "text/plain; charset=utf-8" {
		t.Fatal("built-in template was replaced by a host renderer")
	}

	catalog := CatalogWith(extra)
	want := append(Catalog(), TemplateRef{ID: "3", ComponentName: "PlainResume"})
	if diff := cmp.Diff(want, catalog); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}

	comp := New(context.Background(), testsupport.SampleDocument(), "",
		component.WithResolver(res),
		component.WithCatalog(catalog),
	)
	defer comp.Close()
	if err := comp.Dispatch(context.Background(), component.SwitchTemplate{Name: "PlainResume"}); err != nil {
		t.Fatalf("switch: %v", err)
	}
	out, _, err := comp.View(context.Background())
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if string(out) != "PlainResume:Ada Lovelace" {
		t.Fatalf("unexpected view %q", out)
	}
	if got := comp.Document().TemplateSelected; got.ID != "3" {
		t.Fatalf("expected selection to record catalog id 3, got %+v", got)
	}
}
