package model

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxSummaryLength bounds the resume summary, in runes.
	MaxSummaryLength = 500
	// MaxItems bounds each collection.
	MaxItems = 50
)

// ErrInvalidInput marks values rejected by field-level validation.
var ErrInvalidInput = errors.New("model: invalid input")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError describes why a value was rejected for a path.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(path FieldPath, message string) error {
	return &ValidationError{Path: path.String(), Message: message}
}

// Validate performs the syntactic checks for a value about to be written at
// path. The value is expected to be trimmed already.
func Validate(path FieldPath, value string) error {
	if path.IsScalar() {
		switch path.Field {
		case FieldFullName:
			if strings.TrimSpace(value) == "" {
				return invalid(path, "name must not be empty")
			}
		case FieldEmail:
			if !emailPattern.MatchString(value) {
				return invalid(path, "email address is not valid")
			}
		case FieldSummary:
			if utf8.RuneCountInString(value) > MaxSummaryLength {
				return invalid(path, fmt.Sprintf("summary must be at most %d characters", MaxSummaryLength))
			}
		}
		return nil
	}

	switch {
	case path.Collection == CollectionExperiences && path.Key == KeyURL:
		if value == "" {
			return nil
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return invalid(path, "url must be an absolute http(s) address")
		}
	case path.Collection == CollectionExperiences && path.Key == KeySummary:
		if utf8.RuneCountInString(value) > MaxSummaryLength {
			return invalid(path, fmt.Sprintf("summary must be at most %d characters", MaxSummaryLength))
		}
	case path.Collection == CollectionSkills && (path.Key == "" || path.Key == KeyName):
		if strings.TrimSpace(value) == "" {
			return invalid(path, "skill must not be empty")
		}
	}
	return nil
}

// ValidateLength rejects collections longer than MaxItems.
func ValidateLength(collection Collection, length int) error {
	if length > MaxItems {
		return &ValidationError{
			Path:    string(collection),
			Message: fmt.Sprintf("list must have at most %d items", MaxItems),
		}
	}
	return nil
}
