// Package state holds the reactive container for a resume document. The store
// owns the only writable copy of the document; every accepted write notifies
// subscribers, which re-render from a fresh snapshot.
package state

import (
	"github.com/goliatone/go-resumekit/pkg/model"
)

// Listener is invoked after every write with a snapshot of the document.
type Listener func(doc model.Document)

// Patch describes a shallow, field-level merge. Nil fields are left untouched;
// non-nil collections replace the stored sequence wholesale.
type Patch struct {
	FullName         *string
	Email            *string
	Summary          *string
	Experiences      *[]model.Experience
	Skills           *[]model.Skill
	TemplateSelected *model.TemplateRef
}

// String returns a pointer to v, for building patches inline.
func String(v string) *string { return &v }

// Experiences wraps a sequence for Patch.Experiences.
func Experiences(items []model.Experience) *[]model.Experience { return &items }

// Skills wraps a sequence for Patch.Skills.
func Skills(items []model.Skill) *[]model.Skill { return &items }

// Template wraps a reference for Patch.TemplateSelected.
func Template(ref model.TemplateRef) *model.TemplateRef { return &ref }

type subscription struct {
	id       int
	listener Listener
}

// Store is the reactive state container. It is not safe for concurrent use:
// all reads and writes are expected to come from a single event loop (see
// component.Loop).
type Store struct {
	doc       model.Document
	listeners []subscription
	nextID    int
	version   uint64

	notifying bool
	pending   []Patch
}

// New creates a store holding a normalised copy of doc.
func New(doc model.Document) *Store {
	return &Store{doc: doc.Normalize()}
}

// Get returns a deep copy of the current document. Mutating it has no effect
// on the store and never notifies.
func (s *Store) Get() model.Document {
	return s.doc.Clone()
}

// Version counts the writes accepted so far.
func (s *Store) Version() uint64 {
	return s.version
}

// Set merges patch into the document and notifies every subscriber. There is
// no diffing: an empty patch still triggers a full re-render. Writes issued
// from inside a listener are applied after the current notification round.
func (s *Store) Set(patch Patch) {
	if s.notifying {
		s.pending = append(s.pending, clonePatch(patch))
		return
	}
	s.apply(patch)
	s.flush()
}

// Replace swaps the whole document. It is reserved for the initial data feed
// from the host; editing goes through Set.
func (s *Store) Replace(doc model.Document) {
	s.doc = doc.Normalize()
	s.version++
	s.notify()
	s.drain()
}

// Subscribe registers a listener and returns a function removing it.
func (s *Store) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, listener: listener})
	return func() {
		for idx, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:idx:idx], s.listeners[idx+1:]...)
				return
			}
		}
	}
}

func (s *Store) apply(patch Patch) {
	if patch.FullName != nil {
		s.doc.FullName = *patch.FullName
	}
	if patch.Email != nil {
		s.doc.Email = *patch.Email
	}
	if patch.Summary != nil {
		s.doc.Summary = *patch.Summary
	}
	if patch.Experiences != nil {
		items := model.CloneExperiences(*patch.Experiences)
		if items == nil {
			items = []model.Experience{}
		}
		s.doc.Experiences = items
	}
	if patch.Skills != nil {
		items := model.CloneSkills(*patch.Skills)
		if items == nil {
			items = []model.Skill{}
		}
		s.doc.Skills = items
	}
	if patch.TemplateSelected != nil {
		s.doc.TemplateSelected = *patch.TemplateSelected
	}
	s.version++
}

func (s *Store) flush() {
	s.notify()
	s.drain()
}

func (s *Store) drain() {
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.apply(next)
		s.notify()
	}
}

func (s *Store) notify() {
	s.notifying = true
	defer func() { s.notifying = false }()

	listeners := append([]subscription(nil), s.listeners...)
	for _, sub := range listeners {
		sub.listener(s.doc.Clone())
	}
}

func clonePatch(patch Patch) Patch {
	out := patch
	if patch.Experiences != nil {
		out.Experiences = Experiences(model.CloneExperiences(*patch.Experiences))
	}
	if patch.Skills != nil {
		out.Skills = Skills(model.CloneSkills(*patch.Skills))
	}
	return out
}
