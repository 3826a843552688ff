// Package component is the editable resume component: a state store, the
// edit and list controllers, a template resolver and a single dispatcher for
// the tagged actions the view layer emits. A Component is not safe for
// concurrent use; drive it from one Loop.
package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/persist"
	"github.com/goliatone/go-resumekit/pkg/render"
	"github.com/goliatone/go-resumekit/pkg/resolver"
	"github.com/goliatone/go-resumekit/pkg/state"
)

// Option configures a Component.
type Option func(*Component)

// WithResolver sets the template resolver. Without one every template name
// resolves to the fallback display.
func WithResolver(r *resolver.Resolver) Option {
	return func(c *Component) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithPoster makes template switches and saves asynchronous: their
// completions are delivered through poster, normally a Loop.
func WithPoster(poster resolver.Poster) Option {
	return func(c *Component) {
		c.poster = poster
	}
}

// WithSaver sets the save collaborator.
func WithSaver(saver persist.Saver) Option {
	return func(c *Component) {
		c.saver = saver
	}
}

// WithTemplateSelector records template choices against the resume.
func WithTemplateSelector(selector persist.TemplateSelector) Option {
	return func(c *Component) {
		c.selector = selector
	}
}

// WithCatalog sets the entries offered by the template picker.
func WithCatalog(catalog []model.TemplateRef) Option {
	return func(c *Component) {
		c.catalog = append([]model.TemplateRef(nil), catalog...)
	}
}

// WithTheme passes resolved theme tokens to renderers.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(c *Component) {
		c.theme = cfg
	}
}

// WithLocale selects the label locale.
func WithLocale(locale string, translator render.Translator) Option {
	return func(c *Component) {
		c.locale = locale
		c.translator = translator
	}
}

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Component) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ReadOnly renders without editing affordances and rejects every action
// except SwitchTemplate.
func ReadOnly() Option {
	return func(c *Component) {
		c.readOnly = true
	}
}

// ErrReadOnly is returned for editing actions on a read-only component.
var ErrReadOnly = errors.New("component: read only")

// Listener is told that the rendered view changed and View should be called.
type Listener func()

// Component owns the live document of one resume view.
type Component struct {
	store    *state.Store
	edit     *EditController
	list     *ListController
	resolver *resolver.Resolver
	switcher *resolver.Switcher
	poster   resolver.Poster

	renderer     render.Renderer
	templateName string

	saver      persist.Saver
	selector   persist.TemplateSelector
	catalog    []model.TemplateRef
	theme      *theme.RendererConfig
	locale     string
	translator render.Translator
	readOnly   bool
	logger     *slog.Logger

	flash       string
	saveFields  map[string][]string
	saveForm    []string
	listeners   []subscription
	nextID      int
	unsubscribe func()
}

type subscription struct {
	id       int
	listener Listener
}

// New mounts doc with templateName. An empty templateName falls back to the
// component name stored in the document.
func New(ctx context.Context, doc model.Document, templateName string, options ...Option) *Component {
	c := &Component{
		store:  state.New(doc),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	if c.resolver == nil {
		c.resolver = resolver.New(resolver.WithLogger(c.logger))
	}
	if c.poster != nil {
		c.switcher = resolver.NewSwitcher(c.resolver, c.poster)
	}
	c.edit = NewEditController(c.store)
	c.list = NewListController(c.store)
	c.unsubscribe = c.store.Subscribe(func(model.Document) { c.changed() })

	c.templateName = pickTemplate(templateName, c.store.Get())
	c.renderer = c.resolver.Resolve(ctx, c.templateName)
	return c
}

// Mount is the initial data feed: it replaces the document wholesale, drops
// any edit session and resolves templateName. Template switches still loading
// are discarded when they settle.
func (c *Component) Mount(ctx context.Context, doc model.Document, templateName string) {
	c.edit.Reset()
	c.flash = ""
	c.clearSaveErrors()
	c.templateName = pickTemplate(templateName, doc)
	if c.switcher != nil {
		c.switcher.Supersede()
	}
	c.renderer = c.resolver.Resolve(ctx, c.templateName)
	c.store.Replace(doc)
}

// Close detaches the component from its store.
func (c *Component) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.listeners = nil
}

// Subscribe registers fn to run after every change of the rendered view.
func (c *Component) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, subscription{id: id, listener: fn})
	return func() {
		for idx, sub := range c.listeners {
			if sub.id == id {
				c.listeners = append(c.listeners[:idx:idx], c.listeners[idx+1:]...)
				return
			}
		}
	}
}

// Document returns a snapshot of the live document.
func (c *Component) Document() model.Document {
	return c.store.Get()
}

// Store exposes the state container.
func (c *Component) Store() *state.Store {
	return c.store
}

// Renderer returns the active renderer.
func (c *Component) Renderer() render.Renderer {
	return c.renderer
}

// TemplateName returns the name the active renderer was resolved for.
func (c *Component) TemplateName() string {
	return c.templateName
}

// Session returns the open edit session, if any.
func (c *Component) Session() (EditSession, bool) {
	return c.edit.Session()
}

// Catalog returns the templates offered by the picker.
func (c *Component) Catalog() []model.TemplateRef {
	return append([]model.TemplateRef(nil), c.catalog...)
}

// Flash returns the current status message.
func (c *Component) Flash() string {
	return c.flash
}

// Dispatch applies one action. Handled failures (invalid input, rejected
// saves) are returned for the caller's information and are also reflected in
// the next View; none of them leave the component unusable.
func (c *Component) Dispatch(ctx context.Context, action Action) error {
	if c.readOnly {
		if _, ok := action.(SwitchTemplate); !ok {
			return fmt.Errorf("%w: %s", ErrReadOnly, ActionName(action))
		}
	}

	c.logger.Debug("dispatch", "action", ActionName(action))

	switch a := action.(type) {
	case Activate:
		return c.activate(a.Path)
	case Input:
		return c.edit.Input(a.Value)
	case Commit:
		return c.commit()
	case Delete:
		return c.structural(func() error {
			if !c.list.DeleteItem(a.Collection, a.Index) {
				c.logger.Debug("delete ignored", "collection", a.Collection, "index", a.Index)
			}
			return nil
		})
	case Add:
		return c.structural(func() error {
			return c.list.AddItem(a.Collection, nil)
		})
	case SwitchTemplate:
		if err := c.blur(); err != nil {
			return err
		}
		c.switchTemplate(ctx, a.Name)
		return nil
	case Save:
		if err := c.blur(); err != nil {
			return err
		}
		return c.save(ctx)
	case nil:
		return fmt.Errorf("component: nil action")
	default:
		return fmt.Errorf("component: unsupported action %T", action)
	}
}

// View renders the document with the active renderer. A renderer error is
// logged and replaced with the fallback display.
func (c *Component) View(ctx context.Context) ([]byte, string, error) {
	opts := c.renderOptions()
	doc := c.store.Get()

	out, err := c.renderer.Render(ctx, doc, opts)
	if err == nil {
		return out, c.renderer.ContentType(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, "", ctxErr
	}
	c.logger.Error("render failed", "template", c.renderer.Name(), "error", err)

	fallback := resolver.NewFallback(c.templateName, err)
	out, err = fallback.Render(ctx, doc, opts)
	if err != nil {
		return nil, "", err
	}
	return out, fallback.ContentType(), nil
}

func (c *Component) renderOptions() render.RenderOptions {
	opts := render.RenderOptions{
		Editable:   !c.readOnly,
		Flash:      c.flash,
		FormErrors: c.saveForm,
		Templates:  c.catalog,
		Theme:      c.theme,
		Locale:     c.locale,
		Translator: c.translator,
	}

	errs := make(map[string][]string, len(c.saveFields)+1)
	for path, messages := range c.saveFields {
		errs[path] = messages
	}
	if session, ok := c.edit.Session(); ok {
		opts.Editing = &render.EditingState{Path: session.Target, Value: session.Live}
		if err := c.edit.Err(); err != nil {
			errs[session.Target.String()] = []string{validationMessage(err)}
		}
	}
	if len(errs) > 0 {
		opts.Errors = errs
	}
	return opts
}

func (c *Component) activate(path model.FieldPath) error {
	before, hadSession := c.edit.Session()
	err := c.edit.Activate(path)
	after, hasSession := c.edit.Session()

	// A successful blur-commit already re-rendered through the store.
	if err != nil || hadSession != hasSession || before.Target != after.Target {
		c.changed()
	}
	return err
}

func (c *Component) commit() error {
	session, ok := c.edit.Session()
	if !ok {
		return nil
	}
	delete(c.saveFields, session.Target.String())

	version := c.store.Version()
	if err := c.edit.Commit(); err != nil {
		c.changed()
		return err
	}
	// Stale targets close the session without a store write.
	if c.store.Version() == version {
		c.changed()
	}
	return nil
}

// blur commits the open session, as a focus change would.
func (c *Component) blur() error {
	if _, ok := c.edit.Session(); !ok {
		return nil
	}
	return c.commit()
}

// structural runs a list mutation after committing the open session, so a
// session never outlives the positions it was opened on.
func (c *Component) structural(mutate func() error) error {
	if err := c.blur(); err != nil {
		return err
	}
	c.clearSaveErrors()
	if err := mutate(); err != nil {
		c.flash = validationMessage(err)
		c.changed()
		return err
	}
	return nil
}

func (c *Component) switchTemplate(ctx context.Context, name string) {
	name = strings.TrimSpace(name)
	ref, inCatalog := persist.FindTemplate(c.catalog, name)
	if inCatalog {
		name = ref.ComponentName
		c.recordTemplate(ctx, ref)
	}

	apply := func(result resolver.Result) {
		c.templateName = result.Name
		c.renderer = result.Renderer
		if inCatalog {
			c.store.Set(state.Patch{TemplateSelected: state.Template(ref)})
			return
		}
		c.changed()
	}

	if c.switcher == nil {
		renderer, err := c.resolver.Lookup(ctx, name)
		if err != nil {
			c.logger.Warn("template resolution failed", "template", name, "error", err)
			renderer = resolver.NewFallback(name, err)
		}
		apply(resolver.Result{Name: name, Renderer: renderer, Err: err})
		return
	}
	c.switcher.Switch(ctx, name, apply)
}

func (c *Component) recordTemplate(ctx context.Context, ref model.TemplateRef) {
	if c.selector == nil {
		return
	}
	resumeID := c.store.Get().ID
	if resumeID == "" {
		return
	}
	record := func() error {
		return c.selector.SelectTemplate(ctx, resumeID, ref.ID)
	}
	report := func(err error) {
		if err == nil {
			return
		}
		c.logger.Warn("record template failed", "resume", resumeID, "template", ref.ID, "error", err)
		c.flash = render.Label(c.labelOptions(), render.LabelSelectFailed)
		c.changed()
	}
	c.async(record, report)
}

func (c *Component) save(ctx context.Context) error {
	if c.saver == nil {
		return fmt.Errorf("component: no save collaborator configured")
	}
	snapshot := persist.NewSnapshot(c.store.Get())
	doc := c.store.Get()

	var result error
	c.async(func() error {
		return c.saver.Save(ctx, snapshot)
	}, func(err error) {
		result = err
		c.clearSaveErrors()
		if err != nil {
			c.logger.Warn("save failed", "resume", snapshot.ID, "error", err)
			mapping := render.MapErrorPayload(doc, persist.FieldErrors(err))
			c.saveFields = mapping.Fields
			c.saveForm = mapping.Form
			c.flash = render.Label(c.labelOptions(), render.LabelSaveFailed)
		} else {
			c.flash = render.Label(c.labelOptions(), render.LabelSaved)
		}
		c.changed()
	})
	return result
}

// async runs work off the loop when a poster is configured and delivers done
// back onto it; otherwise both run inline.
func (c *Component) async(work func() error, done func(error)) {
	if c.poster == nil {
		done(work())
		return
	}
	go func() {
		err := work()
		if !c.poster.Post(func() { done(err) }) {
			c.logger.Debug("completion dropped, loop stopped", "error", err)
		}
	}()
}

func (c *Component) clearSaveErrors() {
	c.saveFields = nil
	c.saveForm = nil
}

func (c *Component) labelOptions() render.RenderOptions {
	return render.RenderOptions{Locale: c.locale, Translator: c.translator}
}

func (c *Component) changed() {
	listeners := append([]subscription(nil), c.listeners...)
	for _, sub := range listeners {
		sub.listener()
	}
}

func pickTemplate(name string, doc model.Document) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(doc.TemplateSelected.ComponentName)
}

func validationMessage(err error) string {
	var validation *model.ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	return err.Error()
}
