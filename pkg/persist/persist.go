// Package persist is the boundary to the resume storage collaborator: the
// save call, the template catalog and the initial data feed.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-resumekit/pkg/model"
)

var (
	// ErrNotFound is returned when a resume or template does not exist.
	ErrNotFound = errors.New("persist: not found")
	// ErrRejected wraps every non-success response of the storage API.
	ErrRejected = errors.New("persist: request rejected")
)

// Saver stores a full snapshot of a resume.
type Saver interface {
	Save(ctx context.Context, snapshot Snapshot) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, snapshot Snapshot) error

// Save implements Saver.
func (f SaverFunc) Save(ctx context.Context, snapshot Snapshot) error { return f(ctx, snapshot) }

// TemplateSelector records the template chosen for a resume.
type TemplateSelector interface {
	SelectTemplate(ctx context.Context, resumeID, templateID string) error
}

// Loader supplies the initial data feed and the template catalog.
type Loader interface {
	Load(ctx context.Context, resumeID string) (model.Document, error)
	Templates(ctx context.Context) ([]model.TemplateRef, error)
}

// Backend is everything a component host needs from storage.
type Backend interface {
	Saver
	TemplateSelector
	Loader
}

// Snapshot is the save payload: the document with template_selected reduced
// to the bare template identifier.
type Snapshot struct {
	ID               string             `json:"id,omitempty"`
	FullName         string             `json:"full_name"`
	Email            string             `json:"email"`
	Summary          string             `json:"summary"`
	Experiences      []model.Experience `json:"experiences"`
	Skills           []model.Skill      `json:"skills"`
	TemplateSelected string             `json:"template_selected,omitempty"`
}

// NewSnapshot copies doc into a Snapshot. The template identifier falls back
// to the component name when the reference has no id yet.
func NewSnapshot(doc model.Document) Snapshot {
	doc = doc.Normalize()
	templateID := strings.TrimSpace(doc.TemplateSelected.ID)
	if templateID == "" {
		templateID = strings.TrimSpace(doc.TemplateSelected.ComponentName)
	}
	return Snapshot{
		ID:               doc.ID,
		FullName:         doc.FullName,
		Email:            doc.Email,
		Summary:          doc.Summary,
		Experiences:      doc.Experiences,
		Skills:           doc.Skills,
		TemplateSelected: templateID,
	}
}

// Document rebuilds a document, resolving the template identifier against
// catalog. Unknown identifiers are kept as a bare reference.
func (s Snapshot) Document(catalog []model.TemplateRef) model.Document {
	doc := model.Document{
		ID:          s.ID,
		FullName:    s.FullName,
		Email:       s.Email,
		Summary:     s.Summary,
		Experiences: model.CloneExperiences(s.Experiences),
		Skills:      model.CloneSkills(s.Skills),
	}
	if ref, ok := FindTemplate(catalog, s.TemplateSelected); ok {
		doc.TemplateSelected = ref
	} else if s.TemplateSelected != "" {
		doc.TemplateSelected = model.TemplateRef{ID: s.TemplateSelected}
	}
	return doc.Normalize()
}

// FindTemplate looks a catalog entry up by id or component name.
func FindTemplate(catalog []model.TemplateRef, key string) (model.TemplateRef, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return model.TemplateRef{}, false
	}
	for _, ref := range catalog {
		if ref.ID == key {
			return ref, true
		}
	}
	for _, ref := range catalog {
		if ref.ComponentName == key {
			return ref, true
		}
	}
	return model.TemplateRef{}, false
}

// HTTPError is implemented by errors that carry an HTTP status.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError is a non-success response from the storage API. Field errors
// from the response body are kept so the component can show them inline.
type StatusError struct {
	Code   int
	Body   string
	Fields map[string][]string
}

func (e *StatusError) Error() string {
	text := http.StatusText(e.Code)
	if text == "" {
		text = "unexpected status"
	}
	if e.Body != "" && len(e.Fields) == 0 {
		return "persist: " + text + ": " + e.Body
	}
	return "persist: " + text
}

// Unwrap lets callers match with errors.Is(err, ErrRejected).
func (e *StatusError) Unwrap() error { return ErrRejected }

// StatusCode implements HTTPError.
func (e *StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// FieldErrors extracts the field error payload of err, if any.
func FieldErrors(err error) map[string][]string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Fields
	}
	return nil
}

// decodeFieldErrors accepts both {"errors": {...}} and a bare field map.
func decodeFieldErrors(body []byte) map[string][]string {
	if len(body) == 0 {
		return nil
	}
	var envelope struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		return envelope.Errors
	}
	var bare map[string][]string
	if err := json.Unmarshal(body, &bare); err == nil && len(bare) > 0 {
		return bare
	}
	return nil
}
