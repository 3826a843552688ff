package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-resumekit"
	"github.com/goliatone/go-resumekit/internal/config"
	"github.com/goliatone/go-resumekit/internal/logging"
	"github.com/goliatone/go-resumekit/pkg/api"
	"github.com/goliatone/go-resumekit/pkg/live"
	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/persist"
	"github.com/goliatone/go-resumekit/pkg/render"
	theme "github.com/goliatone/go-theme"
)

//go:embed seed.yaml
var defaultSeed []byte

func main() {
	var (
		configFlag   = flag.String("config", "", "YAML config file")
		addrFlag     = flag.String("addr", "", "HTTP listen address (overrides server.addr)")
		seedFlag     = flag.String("seed", "", "Resume file (JSON or YAML) loaded into the in-memory store")
		endpointFlag = flag.String("endpoint", "", "Remote storage API base URL (overrides persist.endpoint)")
		readOnlyFlag = flag.Bool("read-only", false, "Serve resumes without editing")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if *seedFlag != "" {
		cfg.Data.Seed = *seedFlag
	}
	if *endpointFlag != "" {
		cfg.Persist.Endpoint = *endpointFlag
	}
	if *readOnlyFlag {
		cfg.Server.ReadOnly = true
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	router, err := buildRouter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "base_path", cfg.Server.BasePath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildRouter mounts the storage API (in-memory mode only) under
// <base>/api and the resume pages under <base>.
func buildRouter(ctx context.Context, cfg config.Config, logger *slog.Logger) (*mux.Router, error) {
	themeCfg, err := themeConfig(cfg)
	if err != nil {
		return nil, err
	}

	resolverOptions := []resumekit.Option{resumekit.WithLogger(logger)}
	if cfg.Templates.Dir != "" {
		templates := os.DirFS(cfg.Templates.Dir)
		if _, err := fs.Stat(templates, "templates"); err != nil {
			return nil, fmt.Errorf("templates dir %s: %w", cfg.Templates.Dir, err)
		}
		resolverOptions = append(resolverOptions, resumekit.WithTemplatesFS(templates))
	}
	res := resumekit.NewResolver(resolverOptions...)

	router := mux.NewRouter()
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store, ok := backend.(api.Store); ok {
		apiPath, err := api.RegisterRoutes(ctx, router, path.Join(cfg.Server.BasePath, "api"), store, api.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("api routes: %w", err)
		}
		logger.Info("storage api mounted", "path", apiPath)
	}

	liveOptions := []live.Option{
		live.WithTheme(themeCfg),
		live.WithLocale(cfg.Templates.Locale, render.DefaultCatalog()),
		live.WithLogger(logger),
		live.WithDefaultTemplate(cfg.Templates.Default),
	}
	if cfg.Server.ReadOnly {
		liveOptions = append(liveOptions, live.ReadOnly())
	}
	server, err := live.NewServer(backend, res, liveOptions...)
	if err != nil {
		return nil, fmt.Errorf("live server: %w", err)
	}
	livePath, err := server.RegisterRoutes(router, cfg.Server.BasePath)
	if err != nil {
		return nil, fmt.Errorf("live routes: %w", err)
	}
	logger.Info("resume pages mounted", "path", livePath)
	return router, nil
}

// newBackend returns the remote storage client when an endpoint is set and a
// seeded in-memory store otherwise.
func newBackend(ctx context.Context, cfg config.Config) (persist.Loader, error) {
	if cfg.Persist.Endpoint != "" {
		client, err := persist.NewClient(cfg.Persist.Endpoint,
			persist.WithTimeout(cfg.Persist.Timeout),
			persist.WithSaveMethod(cfg.Persist.SaveMethod),
		)
		if err != nil {
			return nil, fmt.Errorf("persist client: %w", err)
		}
		return client, nil
	}

	store := persist.NewMemoryStore(resumekit.Catalog()...)
	doc, err := seedDocument(cfg.Data.Seed)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return store, nil
}

func seedDocument(file string) (model.Document, error) {
	if file == "" {
		return model.DecodeYAML(defaultSeed)
	}
	doc, err := model.LoadFile(file)
	if err != nil {
		return model.Document{}, fmt.Errorf("seed %s: %w", file, err)
	}
	if doc.ID == "" {
		doc.ID = "demo"
	}
	return doc, nil
}

func themeConfig(cfg config.Config) (*theme.RendererConfig, error) {
	var extra []*theme.Manifest
	if cfg.Theme.Manifest != "" {
		manifest, err := config.LoadThemeManifest(cfg.Theme.Manifest)
		if err != nil {
			return nil, err
		}
		extra = append(extra, manifest)
	}
	themeCfg, err := resumekit.ThemeConfig(cfg.Theme.Name, cfg.Theme.Variant, extra...)
	if err != nil {
		return nil, err
	}
	return themeCfg, nil
}
