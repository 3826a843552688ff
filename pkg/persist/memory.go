package persist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-resumekit/pkg/model"
)

// MemoryStore keeps resumes and the template catalog in memory. It backs the
// reference server and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	resumes   map[string]model.Document
	templates []model.TemplateRef
	saves     int
}

var _ Backend = (*MemoryStore)(nil)

// NewMemoryStore creates a store seeded with catalog.
func NewMemoryStore(catalog ...model.TemplateRef) *MemoryStore {
	return &MemoryStore{
		resumes:   make(map[string]model.Document),
		templates: append([]model.TemplateRef(nil), catalog...),
	}
}

// Put stores doc under its ID.
func (m *MemoryStore) Put(_ context.Context, doc model.Document) error {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return fmt.Errorf("persist: resume id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes[id] = doc.Normalize()
	return nil
}

// Load implements Loader.
func (m *MemoryStore) Load(_ context.Context, resumeID string) (model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.resumes[strings.TrimSpace(resumeID)]
	if !ok {
		return model.Document{}, fmt.Errorf("%w: resume %q", ErrNotFound, resumeID)
	}
	return doc.Clone(), nil
}

// IDs lists stored resume identifiers in sorted order.
func (m *MemoryStore) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.resumes))
	for id := range m.resumes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Save implements Saver. The snapshot's bare template id is resolved against
// the catalog.
func (m *MemoryStore) Save(_ context.Context, snapshot Snapshot) error {
	id := strings.TrimSpace(snapshot.ID)
	if id == "" {
		return fmt.Errorf("persist: save: resume id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes[id] = snapshot.Document(m.templates)
	m.saves++
	return nil
}

// Saves counts accepted Save calls.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// SelectTemplate implements TemplateSelector.
func (m *MemoryStore) SelectTemplate(_ context.Context, resumeID, templateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.TrimSpace(resumeID)
	doc, ok := m.resumes[key]
	if !ok {
		return fmt.Errorf("%w: resume %q", ErrNotFound, resumeID)
	}
	ref, ok := FindTemplate(m.templates, templateID)
	if !ok {
		return fmt.Errorf("%w: template %q", ErrNotFound, templateID)
	}
	doc.TemplateSelected = ref
	m.resumes[key] = doc
	return nil
}

// Templates implements Loader.
func (m *MemoryStore) Templates(context.Context) ([]model.TemplateRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.TemplateRef(nil), m.templates...), nil
}

// SetTemplates replaces the catalog.
func (m *MemoryStore) SetTemplates(_ context.Context, catalog []model.TemplateRef) error {
	for _, ref := range catalog {
		if strings.TrimSpace(ref.ComponentName) == "" {
			return fmt.Errorf("persist: template %q has no component name", ref.ID)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append([]model.TemplateRef(nil), catalog...)
	return nil
}
