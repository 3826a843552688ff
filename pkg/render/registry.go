package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-resumekit/pkg/model"
)

// Registry collects renderers a host brings on top of the built-in templates,
// together with the catalog identifier each one is persisted under. Names are
// matched exactly because they come from stored TemplateRefs.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
	order   []string
}

type registryEntry struct {
	id       string
	renderer Renderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds renderer under its Name without a catalog entry. It can be
// resolved by name but is not offered in template pickers.
func (r *Registry) Register(renderer Renderer) error {
	return r.RegisterAs("", renderer)
}

// RegisterAs adds renderer and lists it in Catalog under id. An empty id
// behaves like Register.
func (r *Registry) RegisterAs(id string, renderer Renderer) error {
	if renderer == nil {
		return fmt.Errorf("render: renderer is required")
	}
	name := strings.TrimSpace(renderer.Name())
	if name == "" {
		return fmt.Errorf("render: renderer name is required")
	}
	id = strings.TrimSpace(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("render: template %q already registered", name)
	}
	if id != "" {
		for _, entry := range r.entries {
			if entry.id == id {
				return fmt.Errorf("render: catalog id %q already used by %q", id, entry.renderer.Name())
			}
		}
	}
	r.entries[name] = registryEntry{id: id, renderer: renderer}
	r.order = append(r.order, name)
	return nil
}

// Get returns the renderer registered as name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("render: template %q not registered", name)
	}
	return entry.renderer, nil
}

// Names lists template names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Catalog returns the entries registered with an id, in registration order,
// ready to be appended to a host's template catalog.
func (r *Registry) Catalog() []model.TemplateRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.TemplateRef
	for _, name := range r.order {
		if entry := r.entries[name]; entry.id != "" {
			out = append(out, model.TemplateRef{ID: entry.id, ComponentName: name})
		}
	}
	return out
}
