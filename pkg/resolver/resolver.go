// Package resolver turns template names into renderers. Factories are
// registered up front; resolution never fails, it degrades to a Fallback
// renderer and logs the cause.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-resumekit/pkg/render"
)

// Factory builds the renderer registered under a name. It may be slow (it
// can parse templates or fetch a remote bundle) and is run at most once per
// name while it keeps succeeding.
type Factory func(ctx context.Context) (render.Renderer, error)

var (
	// ErrEmptyName is reported when a blank template name is resolved.
	ErrEmptyName = errors.New("resolver: template name is empty")
	// ErrUnknownTemplate is reported for names without a factory.
	ErrUnknownTemplate = errors.New("resolver: unknown template")
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report failed resolutions.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFallback overrides how the fallback renderer is built.
func WithFallback(build func(name string, cause error) render.Renderer) Option {
	return func(r *Resolver) {
		if build != nil {
			r.fallback = build
		}
	}
}

// WithoutCache disables the per-name cache, so every Resolve runs the factory.
func WithoutCache() Option {
	return func(r *Resolver) {
		r.caching = false
	}
}

// Resolver maps template names to renderers. It is safe for concurrent use
// because asynchronous resolutions run factories off the event loop.
type Resolver struct {
	mu        sync.RWMutex
	factories map[string]Factory
	cache     map[string]render.Renderer
	caching   bool

	loads    singleflight.Group
	logger   *slog.Logger
	fallback func(name string, cause error) render.Renderer
}

// New creates an empty resolver.
func New(options ...Option) *Resolver {
	r := &Resolver{
		factories: make(map[string]Factory),
		cache:     make(map[string]render.Renderer),
		caching:   true,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		fallback: func(name string, cause error) render.Renderer {
			return NewFallback(name, cause)
		},
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds a factory under name. Names are matched exactly.
func (r *Resolver) Register(name string, factory Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if factory == nil {
		return fmt.Errorf("resolver: factory for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("resolver: template %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Resolver) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// RegisterRenderer registers an already built renderer under its Name().
func (r *Resolver) RegisterRenderer(renderer render.Renderer) error {
	if renderer == nil {
		return fmt.Errorf("resolver: renderer is required")
	}
	return r.Register(renderer.Name(), func(context.Context) (render.Renderer, error) {
		return renderer, nil
	})
}

// Names lists registered template names in sorted order.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a factory is registered for name.
func (r *Resolver) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[strings.TrimSpace(name)]
	return ok
}

// Resolve returns the renderer for name. Unknown or empty names, factory
// errors and factory panics all yield the fallback renderer; the failure is
// logged and never returned.
func (r *Resolver) Resolve(ctx context.Context, name string) render.Renderer {
	renderer, err := r.Lookup(ctx, name)
	if err != nil {
		r.logger.Warn("template resolution failed",
			"template", name,
			"error", err,
		)
		return r.fallback(name, err)
	}
	return renderer
}

// Lookup is Resolve without the fallback, for callers that need the cause.
func (r *Resolver) Lookup(ctx context.Context, name string) (render.Renderer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	r.mu.RLock()
	cached, ok := r.cache[name]
	factory, registered := r.factories[name]
	r.mu.RUnlock()

	if ok {
		return cached, nil
	}
	if !registered {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	// Concurrent callers share one load that ignores their cancellation. A
	// cancelled caller only stops waiting.
	loadCtx := context.WithoutCancel(ctx)
	results := r.loads.DoChan(name, func() (any, error) {
		return load(loadCtx, name, factory)
	})
	var result singleflight.Result
	select {
	case result = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if result.Err != nil {
		return nil, result.Err
	}
	renderer := result.Val.(render.Renderer)

	if r.caching {
		r.mu.Lock()
		r.cache[name] = renderer
		r.mu.Unlock()
	}
	return renderer, nil
}

// Forget drops the cached renderer for name so the next resolution reloads it.
func (r *Resolver) Forget(name string) {
	r.mu.Lock()
	delete(r.cache, strings.TrimSpace(name))
	r.mu.Unlock()
}

func load(ctx context.Context, name string, factory Factory) (renderer render.Renderer, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			renderer = nil
			err = fmt.Errorf("resolver: load %q panicked: %v", name, recovered)
		}
	}()

	renderer, err = factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolver: load %q: %w", name, err)
	}
	if renderer == nil {
		return nil, fmt.Errorf("resolver: load %q: factory returned no renderer", name)
	}
	return renderer, nil
}
