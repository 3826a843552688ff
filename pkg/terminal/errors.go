package terminal

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("terminal: aborted")
	// ErrNoOptions is returned when a selection is requested with nothing to
	// choose from.
	ErrNoOptions = errors.New("terminal: nothing to select")
)
