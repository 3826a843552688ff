package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-resumekit"
	"github.com/goliatone/go-resumekit/internal/config"
	"github.com/goliatone/go-resumekit/internal/logging"
	"github.com/goliatone/go-resumekit/pkg/component"
	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/persist"
	"github.com/goliatone/go-resumekit/pkg/renderers/markdown"
	"github.com/goliatone/go-resumekit/pkg/terminal"
)

type options struct {
	file     string
	id       string
	export   string
	template string
}

func main() {
	var (
		configFlag   = flag.String("config", "", "YAML config file")
		fileFlag     = flag.String("file", "", "Resume file (JSON or YAML) to edit or export")
		idFlag       = flag.String("id", "", "Resume id on the storage API (with -endpoint)")
		endpointFlag = flag.String("endpoint", "", "Storage API base URL (overrides persist.endpoint)")
		exportFlag   = flag.String("export", "", "Write markdown to this path (\"-\" for stdout) instead of editing")
		templateFlag = flag.String("template", "", "Template to edit with (defaults to the resume's selection)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *endpointFlag != "" {
		cfg.Persist.Endpoint = strings.TrimRight(*endpointFlag, "/")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{file: *fileFlag, id: *idFlag, export: *exportFlag, template: *templateFlag}
	err = run(ctx, cfg, opts, logger, os.Stdout, nil)
	switch {
	case errors.Is(err, terminal.ErrAborted):
		fmt.Fprintln(os.Stderr, "aborted")
		os.Exit(130)
	case err != nil:
		log.Fatalf("resume-cli: %v", err)
	}
}

// run exports or edits one resume. driver is nil outside tests.
func run(ctx context.Context, cfg config.Config, opts options, logger *slog.Logger, stdout io.Writer, driver terminal.PromptDriver) error {
	backend, err := newBackend(cfg, opts)
	if err != nil {
		return err
	}
	doc, err := backend.Load(ctx, opts.id)
	if err != nil {
		return err
	}

	if opts.export != "" {
		return export(ctx, doc, opts.export, stdout)
	}

	templateName := opts.template
	if templateName == "" && doc.TemplateSelected.ComponentName == "" {
		templateName = cfg.Templates.Default
	}
	comp := resumekit.New(ctx, doc, templateName,
		component.WithResolver(resumekit.NewResolver(resumekit.WithLogger(logger))),
		component.WithSaver(backend),
		component.WithTemplateSelector(backend),
		component.WithLocale(cfg.Templates.Locale, nil),
		component.WithLogger(logger),
	)
	defer comp.Close()

	preview, err := markdown.New()
	if err != nil {
		return err
	}
	editorOptions := []terminal.Option{
		terminal.WithLogger(logger),
		terminal.WithPreview(preview),
		terminal.WithTemplates(resumekit.ModernResume, resumekit.ClassicResume),
	}
	if driver != nil {
		editorOptions = append(editorOptions, terminal.WithPromptDriver(driver))
	}
	return terminal.New(editorOptions...).Run(ctx, comp)
}

func export(ctx context.Context, doc model.Document, target string, stdout io.Writer) error {
	out, err := resumekit.ExportMarkdown(ctx, doc)
	if err != nil {
		return err
	}
	if target == "-" {
		_, err = stdout.Write(out)
		return err
	}
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Fprintf(stdout, "Markdown written to %s\n", target)
	return nil
}

func newBackend(cfg config.Config, opts options) (persist.Backend, error) {
	if opts.file != "" {
		return &fileStore{path: opts.file, catalog: resumekit.Catalog()}, nil
	}
	if cfg.Persist.Endpoint == "" {
		return nil, fmt.Errorf("either -file or -endpoint is required")
	}
	if opts.id == "" {
		return nil, fmt.Errorf("-id is required with -endpoint")
	}
	return persist.NewClient(cfg.Persist.Endpoint,
		persist.WithTimeout(cfg.Persist.Timeout),
		persist.WithSaveMethod(cfg.Persist.SaveMethod),
	)
}

// fileStore persists a single resume file in the format its extension names.
type fileStore struct {
	path    string
	catalog []model.TemplateRef
}

var _ persist.Backend = (*fileStore)(nil)

func (f *fileStore) Load(context.Context, string) (model.Document, error) {
	return model.LoadFile(f.path)
}

func (f *fileStore) Templates(context.Context) ([]model.TemplateRef, error) {
	return append([]model.TemplateRef(nil), f.catalog...), nil
}

func (f *fileStore) Save(_ context.Context, snapshot persist.Snapshot) error {
	return f.write(snapshot.Document(f.catalog))
}

func (f *fileStore) SelectTemplate(ctx context.Context, _ string, templateID string) error {
	doc, err := f.Load(ctx, "")
	if err != nil {
		return err
	}
	ref, ok := persist.FindTemplate(f.catalog, templateID)
	if !ok {
		return fmt.Errorf("%w: template %q", persist.ErrNotFound, templateID)
	}
	doc.TemplateSelected = ref
	return f.write(doc)
}

func (f *fileStore) write(doc model.Document) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}
