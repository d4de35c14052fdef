package model

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal error kinds. Any of these aborts a stage; everything else is
// reported as a Warning and processing continues.
var (
	ErrSourceUnreadable = errors.New("source document unreadable")
	ErrInvalidJSON      = errors.New("invalid presentation JSON")
	ErrOutputWrite      = errors.New("output cannot be written")
)

// StageError ties a fatal error to the stage and artifact it concerns.
type StageError struct {
	Stage string
	Path  string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

// Unwrap returns the wrapped error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is one of the document-level error kinds.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceUnreadable) ||
		errors.Is(err, ErrInvalidJSON) ||
		errors.Is(err, ErrOutputWrite)
}

// Warning is a recoverable, shape-level or data-quality diagnostic.
// Slide is 1-based; Shape is the shape name when known.
type Warning struct {
	Stage   string
	Slide   int
	Shape   string
	Message string
}

// String formats the warning on one line.
func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(w.Stage)
	if w.Slide > 0 {
		fmt.Fprintf(&b, " slide %d", w.Slide)
	}
	if w.Shape != "" {
		fmt.Fprintf(&b, " shape %q", w.Shape)
	}
	b.WriteString(": ")
	b.WriteString(w.Message)
	return b.String()
}

// FormatWarnings joins warnings one per line.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
