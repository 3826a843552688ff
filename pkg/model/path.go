package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Collection names the ordered sequences of a Document.
type Collection string

const (
	CollectionExperiences Collection = "experiences"
	CollectionSkills      Collection = "skills"
)

// Top-level scalar fields.
const (
	FieldFullName = "full_name"
	FieldEmail    = "email"
	FieldSummary  = "summary"
)

// Item subfield keys.
const (
	KeyName      = "name"
	KeyPosition  = "position"
	KeyURL       = "url"
	KeyStartDate = "start_date"
	KeyEndDate   = "end_date"
	KeySummary   = "summary"
	KeyLevel     = "level"
)

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	return c == CollectionExperiences || c == CollectionSkills
}

// FieldPath addresses a scalar field or a subfield of a list item. Exactly one
// of Field or Collection is set.
type FieldPath struct {
	Field      string
	Collection Collection
	Index      int
	Key        string
}

// Scalar builds a path to a top-level field.
func Scalar(field string) FieldPath {
	return FieldPath{Field: field}
}

// Item builds a path to a list item subfield. An empty key addresses the item
// itself (for skills, its name).
func Item(collection Collection, index int, key string) FieldPath {
	return FieldPath{Collection: collection, Index: index, Key: key}
}

// IsScalar reports whether the path addresses a top-level field.
func (p FieldPath) IsScalar() bool {
	return p.Collection == ""
}

// IsZero reports whether the path is empty.
func (p FieldPath) IsZero() bool {
	return p.Field == "" && p.Collection == ""
}

// String renders the dotted form used in data-path attributes and error maps:
// `full_name`, `skills.2`, `experiences.1.url`.
func (p FieldPath) String() string {
	if p.IsScalar() {
		return p.Field
	}
	out := string(p.Collection) + "." + strconv.Itoa(p.Index)
	if p.Key != "" {
		out += "." + p.Key
	}
	return out
}

// ParseFieldPath reverses FieldPath.String. Unknown fields and collections are
// rejected so the view layer cannot address arbitrary document state.
func ParseFieldPath(raw string) (FieldPath, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FieldPath{}, fmt.Errorf("model: field path is required")
	}

	segments := strings.Split(trimmed, ".")
	if len(segments) == 1 {
		switch segments[0] {
		case FieldFullName, FieldEmail, FieldSummary:
			return Scalar(segments[0]), nil
		}
		return FieldPath{}, fmt.Errorf("model: unknown field %q", segments[0])
	}

	collection := Collection(segments[0])
	if !collection.Valid() {
		return FieldPath{}, fmt.Errorf("model: unknown collection %q", segments[0])
	}
	if len(segments) > 3 {
		return FieldPath{}, fmt.Errorf("model: field path %q is too deep", trimmed)
	}
	index, err := strconv.Atoi(segments[1])
	if err != nil {
		return FieldPath{}, fmt.Errorf("model: field path %q: index: %w", trimmed, err)
	}

	path := Item(collection, index, "")
	if len(segments) == 3 {
		path.Key = segments[2]
		if !KnownKey(collection, path.Key) {
			return FieldPath{}, fmt.Errorf("model: unknown key %q for %s", path.Key, collection)
		}
	}
	return path, nil
}

// KnownKey reports whether key is an editable subfield of collection items.
func KnownKey(collection Collection, key string) bool {
	switch collection {
	case CollectionExperiences:
		switch key {
		case KeyName, KeyPosition, KeyURL, KeyStartDate, KeyEndDate, KeySummary:
			return true
		}
	case CollectionSkills:
		switch key {
		case "", KeyName, KeyLevel:
			return true
		}
	}
	return false
}
