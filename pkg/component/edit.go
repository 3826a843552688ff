package component

import (
	"errors"
	"strings"

	"github.com/goliatone/go-resumekit/pkg/model"
	"github.com/goliatone/go-resumekit/pkg/state"
)

// ErrNoSession is returned when Input or Commit arrive with no field in edit
// mode.
var ErrNoSession = errors.New("component: no active edit session")

// EditSession is the field currently in edit mode.
type EditSession struct {
	Target   model.FieldPath
	Original string
	Live     string
	// ItemID pins list item sessions to the item they were opened on, so a
	// commit after the list shifted cannot land on a neighbour.
	ItemID string
}

// EditController drives the Viewing/Editing state machine. At most one
// session is open at a time.
type EditController struct {
	store   *state.Store
	session *EditSession
	err     error
}

// NewEditController binds a controller to store.
func NewEditController(store *state.Store) *EditController {
	return &EditController{store: store}
}

// Session returns the open session, if any.
func (c *EditController) Session() (EditSession, bool) {
	if c.session == nil {
		return EditSession{}, false
	}
	return *c.session, true
}

// Err returns the validation error of the open session, if any.
func (c *EditController) Err() error {
	return c.err
}

// Activate moves path into Editing, prefilled with its stored value. An open
// session on another field is committed first, as a blur would; if that
// commit is rejected the open session stays and its error is returned.
// Activating a path that does not resolve is a no-op.
func (c *EditController) Activate(path model.FieldPath) error {
	if c.session != nil {
		if c.session.Target == path {
			return nil
		}
		if err := c.Commit(); err != nil {
			return err
		}
	}

	doc := c.store.Get()
	value, ok := doc.Lookup(path)
	if !ok {
		return nil
	}
	c.session = &EditSession{
		Target:   path,
		Original: value,
		Live:     value,
		ItemID:   itemID(doc, path),
	}
	c.err = nil
	return nil
}

// Input replaces the live value.
func (c *EditController) Input(value string) error {
	if c.session == nil {
		return ErrNoSession
	}
	c.session.Live = value
	return nil
}

// Commit trims the live value, validates it and writes it back through the
// store, returning to Viewing. Invalid input keeps the session open with the
// offending value and returns a *model.ValidationError. A target that no
// longer resolves closes the session without writing anything.
func (c *EditController) Commit() error {
	if c.session == nil {
		return ErrNoSession
	}
	session := *c.session
	value := strings.TrimSpace(session.Live)

	doc := c.store.Get()
	if _, ok := doc.Lookup(session.Target); !ok || itemID(doc, session.Target) != session.ItemID {
		c.close()
		return nil
	}

	if err := model.Validate(session.Target, value); err != nil {
		c.err = err
		return err
	}

	patch, ok := patchFor(doc, session.Target, value)
	c.close()
	if !ok {
		return nil
	}
	c.store.Set(patch)
	return nil
}

// Reset drops the open session without writing. It is used when the host
// replaces the whole document, never as a user-facing cancel.
func (c *EditController) Reset() {
	c.close()
}

func (c *EditController) close() {
	c.session = nil
	c.err = nil
}

func itemID(doc model.Document, path model.FieldPath) string {
	if path.IsScalar() || path.Index < 0 || path.Index >= doc.Len(path.Collection) {
		return ""
	}
	switch path.Collection {
	case model.CollectionExperiences:
		return doc.Experiences[path.Index].ID
	case model.CollectionSkills:
		return doc.Skills[path.Index].ID
	}
	return ""
}

// patchFor builds the write for path. List items are replaced by building a
// new sequence so siblings keep their values.
func patchFor(doc model.Document, path model.FieldPath, value string) (state.Patch, bool) {
	if path.IsScalar() {
		switch path.Field {
		case model.FieldFullName:
			return state.Patch{FullName: state.String(value)}, true
		case model.FieldEmail:
			return state.Patch{Email: state.String(value)}, true
		case model.FieldSummary:
			return state.Patch{Summary: state.String(value)}, true
		}
		return state.Patch{}, false
	}

	if path.Index < 0 || path.Index >= doc.Len(path.Collection) {
		return state.Patch{}, false
	}

	switch path.Collection {
	case model.CollectionExperiences:
		items := model.CloneExperiences(doc.Experiences)
		updated, ok := model.WithExperienceField(items[path.Index], path.Key, value)
		if !ok {
			return state.Patch{}, false
		}
		items[path.Index] = updated
		return state.Patch{Experiences: state.Experiences(items)}, true
	case model.CollectionSkills:
		items := model.CloneSkills(doc.Skills)
		updated, ok := model.WithSkillField(items[path.Index], path.Key, value)
		if !ok {
			return state.Patch{}, false
		}
		items[path.Index] = updated
		return state.Patch{Skills: state.Skills(items)}, true
	}
	return state.Patch{}, false
}
