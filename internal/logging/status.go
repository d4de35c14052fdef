package logging

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Status prints the short human-facing result lines of a command.
type Status struct {
	out     io.Writer
	enabled bool
}

// NewStatus writes status lines to out. Colors are used only when enabled
// is true and color output has not been disabled globally (NO_COLOR, no tty).
func NewStatus(out io.Writer, enabled bool) *Status {
	return &Status{out: out, enabled: enabled && !color.NoColor}
}

// Success reports a produced artifact.
func (s *Status) Success(format string, args ...any) {
	s.line("✓", color.FgGreen, format, args...)
}

// Warn reports a recoverable problem.
func (s *Status) Warn(format string, args ...any) {
	s.line("!", color.FgYellow, format, args...)
}

// Failure reports a failed stage.
func (s *Status) Failure(format string, args ...any) {
	s.line("✗", color.FgRed, format, args...)
}

func (s *Status) line(mark string, attr color.Attribute, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(s.out, "%s %s\n", s.colorize(mark, attr, color.Bold), msg)
}

// colorize applies color to text if color is enabled
func (s *Status) colorize(text string, attributes ...color.Attribute) string {
	if !s.enabled {
		return text
	}
	c := color.New(attributes...)
	c.EnableColor()
	return c.Sprint(text)
}
