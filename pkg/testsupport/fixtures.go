// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-resumekit/pkg/model"
)

// SampleDocument returns a fully populated resume. Each call returns a fresh
// value so tests can mutate it freely.
func SampleDocument() model.Document {
	return model.Document{
		ID:       "resume-1",
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Summary:  "Mathematician & first programmer.",
		Experiences: []model.Experience{
			{
				ID:        "exp-1",
				Name:      "Analytical Engine",
				Position:  "Programmer",
				URL:       "https://example.com/engine",
				StartDate: "1842",
				EndDate:   "1843",
				Summary:   "Wrote the first published algorithm.",
				Highlights: []string{
					"Note G",
				},
			},
			{
				ID:       "exp-2",
				Name:     "Royal Society",
				Position: "Correspondent",
				URL:      "https://example.com/society",
				Summary:  "Letters on computation.",
			},
		},
		Skills: []model.Skill{
			{ID: "skill-1", Name: "Mathematics", Level: "Expert", Keywords: []string{"analysis", "notation"}},
			{ID: "skill-2", Name: "Poetry"},
			{ID: "skill-3", Name: "Engineering"},
		},
		TemplateSelected: model.TemplateRef{ID: "1", ComponentName: "ModernResume"},
	}.Normalize()
}

// LoadDocument reads a JSON or YAML fixture, failing the test on error.
func LoadDocument(t *testing.T, path string) model.Document {
	t.Helper()

	doc, err := model.LoadFile(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// AssertContains fails the test when any of fragments is missing from out.
func AssertContains(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected output to contain %q\noutput:\n%s", fragment, out)
		}
	}
}

// AssertNotContains fails the test when any of fragments is present in out.
func AssertNotContains(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if strings.Contains(out, fragment) {
			t.Fatalf("expected output not to contain %q\noutput:\n%s", fragment, out)
		}
	}
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
