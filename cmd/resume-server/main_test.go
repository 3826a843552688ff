package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-resumekit/internal/config"
	"github.com/goliatone/go-resumekit/internal/logging"
	"github.com/goliatone/go-resumekit/pkg/model"
)

func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	router, err := buildRouter(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestSeedDocumentDefault(t *testing.T) {
	doc, err := seedDocument("")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if doc.ID != "demo" || len(doc.Experiences) != 2 || len(doc.Skills) != 3 {
		t.Fatalf("unexpected seed: %+v", doc)
	}
	if doc.TemplateSelected.ComponentName != "ModernResume" {
		t.Fatalf("unexpected template: %+v", doc.TemplateSelected)
	}
}

func TestBuildRouterServesPageAndAPI(t *testing.T) {
	server := newTestServer(t, config.Defaults())

	code, body := get(t, server.URL+"/resumes/demo")
	if code != http.StatusOK {
		t.Fatalf("page: expected 200, got %d: %s", code, body)
	}
	if !strings.Contains(body, "Jordan Rivera") {
		t.Fatalf("page does not show the seeded resume:\n%s", body)
	}

	code, body = get(t, server.URL+"/api/v1/resumes/demo")
	if code != http.StatusOK {
		t.Fatalf("api: expected 200, got %d: %s", code, body)
	}
	var doc model.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Email != "jordan.rivera@example.com" {
		t.Fatalf("unexpected api document: %+v", doc)
	}
}

func TestBuildRouterBasePath(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.BasePath = "/cv"
	server := newTestServer(t, cfg)

	if code, _ := get(t, server.URL+"/cv/resumes/demo"); code != http.StatusOK {
		t.Fatalf("expected page under base path, got %d", code)
	}
	if code, _ := get(t, server.URL+"/cv/api/v1/templates"); code != http.StatusOK {
		t.Fatalf("expected api under base path, got %d", code)
	}
}

func TestBuildRouterRejectsUnknownTheme(t *testing.T) {
	cfg := config.Defaults()
	cfg.Theme.Name = "missing"
	if _, err := buildRouter(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected error for unknown theme")
	}
}
