package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/persist"
)

const defaultMaxBody = 1 << 20

// Store is the storage the API exposes.
type Store interface {
	persist.Backend
	SetTemplates(ctx context.Context, catalog []model.TemplateRef) error
}

// Options configures the handlers.
type Options struct {
	Logger   *slog.Logger
	Contract *Contract
	MaxBody  int64
}

// Option mutates Options.
type Option func(*Options)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithContract replaces the embedded contract.
func WithContract(contract *Contract) Option {
	return func(o *Options) {
		o.Contract = contract
	}
}

// WithMaxBody caps request bodies, in bytes.
func WithMaxBody(limit int64) Option {
	return func(o *Options) {
		o.MaxBody = limit
	}
}

// NewOptions applies fns over the defaults. The embedded contract is loaded
// when none was supplied.
func NewOptions(ctx context.Context, fns ...Option) (Options, error) {
	opts := Options{MaxBody: defaultMaxBody}
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = defaultMaxBody
	}
	if opts.Contract == nil {
		contract, err := LoadContract(ctx)
		if err != nil {
			return Options{}, err
		}
		opts.Contract = contract
	}
	return opts, nil
}

type handler struct {
	store Store
	opts  Options
}

// NewRouter returns a router serving the API at the root path.
func NewRouter(ctx context.Context, store Store, fns ...Option) (*mux.Router, error) {
	router := mux.NewRouter()
	if _, err := RegisterRoutes(ctx, router, "", store, fns...); err != nil {
		return nil, err
	}
	return router, nil
}

// RegisterRoutes mounts the API under basePath and returns the mount prefix.
func RegisterRoutes(ctx context.Context, router *mux.Router, basePath string, store Store, fns ...Option) (string, error) {
	if router == nil {
		return "", fmt.Errorf("api: missing router")
	}
	if store == nil {
		return "", fmt.Errorf("api: missing store")
	}
	opts, err := NewOptions(ctx, fns...)
	if err != nil {
		return "", err
	}

	h := &handler{store: store, opts: opts}
	prefix := MountPath(basePath)

	routes := router
	if prefix != "" {
		routes = router.PathPrefix(prefix).Subrouter()
	}
	routes.HandleFunc("/v1/resumes/{id}", h.getResume).Methods(http.MethodGet, http.MethodHead)
	routes.HandleFunc("/v1/resumes/{id}", h.saveResume).Methods(http.MethodPost, http.MethodPut)
	routes.HandleFunc("/v1/resumes/{id}/template", h.selectTemplate).Methods(http.MethodPut)
	routes.HandleFunc("/v1/templates", h.listTemplates).Methods(http.MethodGet, http.MethodHead)
	routes.HandleFunc("/v1/templates", h.replaceTemplates).Methods(http.MethodPut)
	routes.HandleFunc("/openapi.yaml", serveContract).Methods(http.MethodGet)
	return prefix, nil
}

// MountPath normalises basePath into a route prefix. The root mounts at "".
func MountPath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" || basePath == "/" {
		return ""
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/")
}

func (h *handler) getResume(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, doc)
}

func (h *handler) saveResume(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	body, ok := h.readBody(w, r, SchemaResume)
	if !ok {
		return
	}

	var snapshot persist.Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		h.writeError(w, r, statusError(http.StatusBadRequest, err))
		return
	}
	if snapshot.ID == "" {
		snapshot.ID = id
	}
	if snapshot.ID != id {
		writeFieldErrors(w, map[string][]string{"/id": {"does not match the resume in the path"}})
		return
	}
	if fields := h.unknownTemplate(r.Context(), snapshot.TemplateSelected); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	if err := h.store.Save(r.Context(), snapshot); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.opts.Logger.Info("resume saved", "resume", id)

	doc, err := h.store.Load(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, doc)
}

func (h *handler) selectTemplate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	body, ok := h.readBody(w, r, SchemaTemplateSelection)
	if !ok {
		return
	}

	var payload struct {
		TemplateSelected string `json:"template_selected"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		h.writeError(w, r, statusError(http.StatusBadRequest, err))
		return
	}
	if err := h.store.SelectTemplate(r.Context(), id, strings.TrimSpace(payload.TemplateSelected)); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.opts.Logger.Info("template selected", "resume", id, "template", payload.TemplateSelected)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.store.Templates(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if catalog == nil {
		catalog = []model.TemplateRef{}
	}
	writeJSON(w, r, http.StatusOK, catalog)
}

func (h *handler) replaceTemplates(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r, SchemaTemplateCatalog)
	if !ok {
		return
	}

	var catalog []model.TemplateRef
	if err := json.Unmarshal(body, &catalog); err != nil {
		h.writeError(w, r, statusError(http.StatusBadRequest, err))
		return
	}
	if err := h.store.SetTemplates(r.Context(), catalog); err != nil {
		h.writeError(w, r, statusError(http.StatusUnprocessableEntity, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readBody reads the request body and validates it against schema. It writes
// the error response itself and reports false when the request is rejected.
func (h *handler) readBody(w http.ResponseWriter, r *http.Request, schema string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, h.opts.MaxBody+1))
	if err != nil {
		h.writeError(w, r, statusError(http.StatusBadRequest, err))
		return nil, false
	}
	if int64(len(body)) > h.opts.MaxBody {
		h.writeError(w, r, statusError(http.StatusRequestEntityTooLarge, errors.New("request body too large")))
		return nil, false
	}

	fields, err := h.opts.Contract.Validate(schema, body)
	if err != nil {
		h.writeError(w, r, statusError(http.StatusBadRequest, err))
		return nil, false
	}
	if len(fields) > 0 {
		h.opts.Logger.Debug("request rejected", "path", r.URL.Path, "schema", schema, "fields", len(fields))
		writeFieldErrors(w, fields)
		return nil, false
	}
	return body, true
}

func (h *handler) unknownTemplate(ctx context.Context, templateID string) map[string][]string {
	if templateID == "" {
		return nil
	}
	catalog, err := h.store.Templates(ctx)
	if err != nil || len(catalog) == 0 {
		return nil
	}
	if _, ok := persist.FindTemplate(catalog, templateID); ok {
		return nil
	}
	return map[string][]string{"/template_selected": {"unknown template"}}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	var httpErr persist.HTTPError
	switch {
	case errors.Is(err, persist.ErrNotFound):
		code = http.StatusNotFound
	case errors.As(err, &httpErr):
		code = httpErr.StatusCode()
	}
	if code >= http.StatusInternalServerError {
		h.opts.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, r, code, errorResponse{Error: http.StatusText(code)})
}

type errorResponse struct {
	Error  string              `json:"error"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func writeFieldErrors(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, nil, http.StatusUnprocessableEntity, errorResponse{
		Error:  "validation failed",
		Errors: fields,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if r != nil && r.Method == http.MethodHead {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}

func serveContract(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(contractYAML)
}

func statusError(code int, err error) error {
	return &persist.StatusError{Code: code, Body: err.Error()}
}
