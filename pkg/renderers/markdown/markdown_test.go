package markdown

import (
	"context"
	"testing"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/render"
	"github.com/goliatone/go-resumekit/pkg/testsupport"
)

func renderDoc(t *testing.T, doc model.Document, opts render.RenderOptions) string {
	t.Helper()
	renderer, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := renderer.Render(context.Background(), doc, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func TestRender_Sections(t *testing.T) {
	out := renderDoc(t, testsupport.SampleDocument(), render.RenderOptions{})

	testsupport.AssertContains(t, out,
		"# Ada Lovelace\n",
		"<ada@example.com>",
		"## Summary",
		"Mathematician & first programmer.",
		"### Analytical Engine, Programmer",
		"_1842 - 1843_",
		"https://example.com/engine",
		"- Note G",
		"### Royal Society, Correspondent",
		"- Mathematics (Expert): analysis, notation",
		"- Poetry",
	)
	testsupport.AssertNotContains(t, out, "&amp;", "\n\n\n")
}

func TestRender_EscapesMarkdown(t *testing.T) {
	doc := testsupport.SampleDocument()
	doc.Skills = []model.Skill{{Name: "C#"}, {Name: "*bold*"}}

	out := renderDoc(t, doc, render.RenderOptions{})

	testsupport.AssertContains(t, out, `- C\#`, `- \*bold\*`)
}

func TestRender_EmptyDocument(t *testing.T) {
	out := renderDoc(t, model.Document{}, render.RenderOptions{Locale: "es"})

	testsupport.AssertContains(t, out, "# Nombre completo", "Resumen no disponible", "Sin experiencia", "Sin habilidades")
}

func TestRenderer_Metadata(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if renderer.Name() != Name || renderer.ContentType() != "text/markdown; charset=utf-8" {
		t.Fatalf("unexpected metadata %s %s", renderer.Name(), renderer.ContentType())
	}
}
