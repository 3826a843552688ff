package render

import (
	"context"
	"errors"
	"testing"

	theme "github.com/goliatone/go-theme"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-resumekit/pkg/model"
)

type stubRenderer struct{ name string }

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }
func (s stubRenderer) Render(context.Context, model.Document, RenderOptions) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRegistry_RegisterAndCatalog(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterAs("7", stubRenderer{name: "Timeline"}); err != nil {
		t.Fatalf("register timeline: %v", err)
	}
	if err := registry.Register(stubRenderer{name: "Compact"}); err != nil {
		t.Fatalf("register compact: %v", err)
	}
	if err := registry.RegisterAs("8", stubRenderer{name: "Banner"}); err != nil {
		t.Fatalf("register banner: %v", err)
	}

	if err := registry.Register(stubRenderer{name: "Timeline"}); err == nil {
		t.Fatal("expected duplicate name to fail")
	}
	if err := registry.RegisterAs("7", stubRenderer{name: "Other"}); err == nil {
		t.Fatal("expected duplicate catalog id to fail")
	}
	if err := registry.Register(stubRenderer{name: " "}); err == nil {
		t.Fatal("expected blank name to fail")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatal("expected nil renderer to fail")
	}

	if diff := cmp.Diff([]string{"Timeline", "Compact", "Banner"}, registry.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	wantCatalog := []model.TemplateRef{
		{ID: "7", ComponentName: "Timeline"},
		{ID: "8", ComponentName: "Banner"},
	}
	if diff := cmp.Diff(wantCatalog, registry.Catalog()); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
	if _, err := registry.Get("timeline"); err == nil {
		t.Fatal("names are matched exactly")
	}
	renderer, err := registry.Get("Compact")
	if err != nil || renderer.Name() != "Compact" {
		t.Fatalf("get compact: %v %v", renderer, err)
	}
}

func TestMapErrorPayload(t *testing.T) {
	doc := model.Document{
		Experiences: []model.Experience{{Name: "a"}, {Name: "b"}},
		Skills:      []model.Skill{{Name: "Go"}},
	}

	mapping := MapErrorPayload(doc, map[string][]string{
		"/experiences/1/url": {"bad url", " bad url "},
		"body.email":         {"invalid email"},
		"skills[0]":          {"too short"},
		"experiences.7.name": {"stale"},
		"non_field_errors":   {"try again"},
		"unknown_field":      {"ignored path"},
		"summary":            {"  "},
	})

	wantFields := map[string][]string{
		"experiences.1.url": {"bad url"},
		"email":             {"invalid email"},
		"skills.0":          {"too short"},
	}
	if diff := cmp.Diff(wantFields, mapping.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	form := map[string]bool{}
	for _, msg := range mapping.Form {
		form[msg] = true
	}
	for _, want := range []string{"stale", "try again", "ignored path"} {
		if !form[want] {
			t.Fatalf("expected %q in form errors, got %v", want, mapping.Form)
		}
	}
}

func TestMergeFormErrors(t *testing.T) {
	got := MergeFormErrors([]string{"a", " b "}, "b", "", "c")
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_LocaleFallback(t *testing.T) {
	catalog := DefaultCatalog()

	got, err := catalog.Translate("es-MX", LabelSave)
	if err != nil || got != "Guardar" {
		t.Fatalf("expected Guardar, got %q (%v)", got, err)
	}
	got, err = catalog.Translate("fr", LabelSave)
	if err != nil || got != "Save" {
		t.Fatalf("expected English fallback, got %q (%v)", got, err)
	}
	if _, err := catalog.Translate("en", "nope"); !errors.Is(err, ErrMissingTranslation) {
		t.Fatalf("expected ErrMissingTranslation, got %v", err)
	}
	if got := Label(RenderOptions{}, LabelLoadFailed, "X"); got != `Could not load template "X"` {
		t.Fatalf("unexpected formatted label %q", got)
	}
}

func TestLabels_UseTemplateFriendlyKeys(t *testing.T) {
	labels := Labels(RenderOptions{Translator: Catalog{"en": {LabelSave: "Store"}}})

	if labels["action_save"] != "Store" {
		t.Fatalf("expected translator override, got %q", labels["action_save"])
	}
	if labels["section_skills"] != "Skills" {
		t.Fatalf("expected default catalog fallback, got %q", labels["section_skills"])
	}
	if _, ok := labels["status_load_failed"]; ok {
		t.Fatal("format labels must not be exposed")
	}
}

func TestRendererConfigFromSelection_MergesVariant(t *testing.T) {
	manifest := &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens:  map[string]string{"brand": "#123456", "text": "#111"},
		Assets: theme.Assets{
			Prefix: "/assets/themes/acme",
			Files:  map[string]string{"resumekit.css": "theme.css"},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{"brand": "#654321"},
				Assets: theme.Assets{Files: map[string]string{"print.css": "print.dark.css"}},
			},
		},
	}

	cfg := RendererConfigFromSelection(&theme.Selection{Theme: "acme", Variant: "dark", Manifest: manifest})
	if cfg == nil {
		t.Fatal("expected config")
	}
	if cfg.CSSVars["--brand"] != "#654321" || cfg.CSSVars["--text"] != "#111" {
		t.Fatalf("unexpected css vars: %v", cfg.CSSVars)
	}
	if got := AssetURL(cfg, "resumekit.css"); got != "/assets/themes/acme/theme.css" {
		t.Fatalf("unexpected asset url %q", got)
	}
	if got := AssetURL(cfg, "print.css"); got != "/assets/themes/acme/print.dark.css" {
		t.Fatalf("unexpected variant asset url %q", got)
	}
	if got := AssetURL(cfg, "missing"); got != "" {
		t.Fatalf("expected empty url for unknown asset, got %q", got)
	}
	if got := CSSVarsStyle(cfg); got != ":root {\n--brand: #654321;\n--text: #111;\n}" {
		t.Fatalf("unexpected style %q", got)
	}
}

func TestThemeConfig_UsesSelector(t *testing.T) {
	selector, err := NewManifestSelector(&theme.Manifest{Name: "acme", Version: "1.0.0", Tokens: map[string]string{"brand": "#123456"}})
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}

	cfg, err := ThemeConfig(selector, "", "")
	if err != nil {
		t.Fatalf("theme config: %v", err)
	}
	if cfg == nil || cfg.Tokens["brand"] != "#123456" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	none, err := ThemeConfig(nil, "acme", "")
	if err != nil || none != nil {
		t.Fatalf("expected nil config without selector, got %+v (%v)", none, err)
	}
}

func TestManifestSelector_UnknownTheme(t *testing.T) {
	selector, err := NewManifestSelector(&theme.Manifest{Name: "acme"})
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}
	if _, err := ThemeConfig(selector, "other", ""); err == nil {
		t.Fatal("expected unknown theme error")
	}
	if _, err := NewManifestSelector(&theme.Manifest{Name: "acme"}, &theme.Manifest{Name: "acme"}); err == nil {
		t.Fatal("expected duplicate manifest error")
	}
}
