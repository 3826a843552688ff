package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-resumekit/pkg/component"
	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/persist"
	"github.com/goliatone/go-resumekit/pkg/render"
	rendertemplate "github.com/goliatone/go-resumekit/pkg/render/template"
	gotemplate "github.com/goliatone/go-resumekit/pkg/render/template/gotemplate"
	"github.com/goliatone/go-resumekit/pkg/renderers/html"
	"github.com/goliatone/go-resumekit/pkg/resolver"
)

const pageTemplate = "templates/page"

// Option configures a Server.
type Option func(*Server)

// WithSaver overrides the save collaborator. By default the loader is used
// when it also implements persist.Saver.
func WithSaver(saver persist.Saver) Option {
	return func(s *Server) {
		s.saver = saver
	}
}

// WithTemplateSelector overrides where template choices are recorded.
func WithTemplateSelector(selector persist.TemplateSelector) Option {
	return func(s *Server) {
		s.selector = selector
	}
}

// WithTheme passes theme tokens to every renderer.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(s *Server) {
		s.theme = cfg
	}
}

// WithLocale selects the label locale.
func WithLocale(locale string, translator render.Translator) Option {
	return func(s *Server) {
		s.locale = locale
		s.translator = translator
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultTemplate is used for resumes that have no template selected.
func WithDefaultTemplate(name string) Option {
	return func(s *Server) {
		s.defaultTemplate = strings.TrimSpace(name)
	}
}

// WithCheckOrigin replaces the websocket origin check. The default accepts
// same-host origins only.
func WithCheckOrigin(check func(*http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = check
	}
}

// WithPageRenderer replaces the engine rendering the page shell.
func WithPageRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.page = renderer
		}
	}
}

// ReadOnly serves views without editing affordances or websocket.
func ReadOnly() Option {
	return func(s *Server) {
		s.readOnly = true
	}
}

// Server serves resume pages and their live sessions.
type Server struct {
	loader          persist.Loader
	saver           persist.Saver
	selector        persist.TemplateSelector
	resolver        *resolver.Resolver
	theme           *theme.RendererConfig
	locale          string
	translator      render.Translator
	defaultTemplate string
	readOnly        bool
	logger          *slog.Logger
	upgrader        websocket.Upgrader
	page            rendertemplate.TemplateRenderer
}

// NewServer builds a server reading resumes from loader and resolving
// templates through r.
func NewServer(loader persist.Loader, r *resolver.Resolver, options ...Option) (*Server, error) {
	if loader == nil {
		return nil, errors.New("live: loader is required")
	}
	if r == nil {
		return nil, errors.New("live: resolver is required")
	}

	s := &Server{
		loader:   loader,
		resolver: r,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	if saver, ok := loader.(persist.Saver); ok {
		s.saver = saver
	}
	if selector, ok := loader.(persist.TemplateSelector); ok {
		s.selector = selector
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	if s.page == nil {
		engine, err := gotemplate.New(gotemplate.WithFS(TemplatesFS()))
		if err != nil {
			return nil, fmt.Errorf("live: page engine: %w", err)
		}
		s.page = engine
	}
	return s, nil
}

// RegisterRoutes mounts the page, websocket and asset routes under basePath
// and returns the mount prefix.
func (s *Server) RegisterRoutes(router *mux.Router, basePath string) (string, error) {
	if router == nil {
		return "", errors.New("live: missing router")
	}
	prefix := mountPath(basePath)

	routes := router
	if prefix != "" {
		routes = router.PathPrefix(prefix).Subrouter()
	}
	routes.HandleFunc("/resumes/{id}", s.servePage).Methods(http.MethodGet, http.MethodHead)
	routes.HandleFunc("/resumes/{id}/live", s.serveLive).Methods(http.MethodGet)
	routes.PathPrefix("/assets/").Handler(
		http.StripPrefix(prefix+"/assets/", http.FileServer(http.FS(html.AssetsFS()))),
	).Methods(http.MethodGet, http.MethodHead)
	return prefix, nil
}

// Open loads resumeID and starts a live session for it.
func (s *Server) Open(ctx context.Context, resumeID string) (*Session, error) {
	doc, catalog, err := s.load(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, resumeID, func(ctx context.Context, loop *component.Loop) (*component.Component, error) {
		options := append(s.componentOptions(catalog), component.WithPoster(loop))
		return component.New(ctx, doc, s.templateFor(doc), options...), nil
	}, s.logger)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	doc, catalog, err := s.load(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	comp := component.New(ctx, doc, s.templateFor(doc), s.componentOptions(catalog)...)
	defer comp.Close()

	view, contentType, err := comp.View(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !strings.HasPrefix(contentType, "text/html") {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(view)
		return
	}

	stylesheet := render.AssetURL(s.theme, html.StylesheetName)
	if stylesheet == "" {
		stylesheet = s.assetsPath(r) + html.StylesheetName
	}
	page, err := s.page.RenderTemplate(pageTemplate, map[string]any{
		"lang":       pageLang(s.locale),
		"title":      doc.FullName,
		"stylesheet": stylesheet,
		"live_path":  strings.TrimRight(r.URL.Path, "/") + "/live",
		"read_only":  s.readOnly,
		"view":       string(view),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, page)
}

func (s *Server) serveLive(w http.ResponseWriter, r *http.Request) {
	if s.readOnly {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	id := mux.Vars(r)["id"]

	// Load before upgrading so unknown resumes get a plain 404.
	session, err := s.Open(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer session.Close()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", "resume", id, "error", err)
		return
	}

	s.logger.Info("live session opened", "resume", id)
	if err := session.Serve(r.Context(), ws); err != nil {
		s.logger.Warn("live session ended", "resume", id, "error", err)
		return
	}
	s.logger.Info("live session closed", "resume", id)
}

func (s *Server) load(ctx context.Context, id string) (model.Document, []model.TemplateRef, error) {
	doc, err := s.loader.Load(ctx, id)
	if err != nil {
		return model.Document{}, nil, err
	}
	catalog, err := s.loader.Templates(ctx)
	if err != nil {
		s.logger.Warn("template catalog unavailable", "error", err)
		catalog = nil
	}
	if doc.TemplateSelected.ComponentName == "" {
		if ref, ok := persist.FindTemplate(catalog, doc.TemplateSelected.ID); ok {
			doc.TemplateSelected = ref
		}
	}
	return doc, catalog, nil
}

func (s *Server) templateFor(doc model.Document) string {
	if doc.TemplateSelected.ComponentName != "" {
		return ""
	}
	return s.defaultTemplate
}

func (s *Server) componentOptions(catalog []model.TemplateRef) []component.Option {
	options := []component.Option{
		component.WithResolver(s.resolver),
		component.WithCatalog(catalog),
		component.WithTheme(s.theme),
		component.WithLocale(s.locale, s.translator),
		component.WithLogger(s.logger),
	}
	if s.saver != nil {
		options = append(options, component.WithSaver(s.saver))
	}
	if s.selector != nil {
		options = append(options, component.WithTemplateSelector(s.selector))
	}
	if s.readOnly {
		options = append(options, component.ReadOnly())
	}
	return options
}

func (s *Server) assetsPath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			if idx := strings.Index(tmpl, "/resumes/"); idx >= 0 {
				return tmpl[:idx] + "/assets/"
			}
		}
	}
	return "/assets/"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	var httpErr persist.HTTPError
	switch {
	case errors.Is(err, persist.ErrNotFound):
		code = http.StatusNotFound
	case errors.As(err, &httpErr):
		code = httpErr.StatusCode()
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	http.Error(w, http.StatusText(code), code)
}

func mountPath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" || basePath == "/" {
		return ""
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/")
}

func pageLang(locale string) string {
	if locale = strings.TrimSpace(locale); locale != "" {
		return locale
	}
	return "en"
}
