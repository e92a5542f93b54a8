// Package output provides consistent CLI status formatting shared by every
// omnicontext subcommand: icon-prefixed status lines, success/warning/error
// variants, and simple indented code blocks.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Writer formats status lines to an underlying writer (normally the
// command's stdout).
type Writer struct {
	out io.Writer
}

// New builds a Writer over out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a message with a leading icon, or three spaces of
// indentation when icon is empty so continuation lines line up under it.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf formats msg before printing it with icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints msg with a checkmark.
func (w *Writer) Success(msg string) { w.Status("✅", msg) }

// Successf formats msg before printing it with a checkmark.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints msg with a warning icon.
func (w *Writer) Warning(msg string) { w.Status("⚠️ ", msg) }

// Warningf formats msg before printing it with a warning icon.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints msg with an error icon.
func (w *Writer) Error(msg string) { w.Status("❌", msg) }

// Errorf formats msg before printing it with an error icon.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints a blank line.
func (w *Writer) Newline() { _, _ = fmt.Fprintln(w.out) }

// Code prints content indented two spaces, bracketed by blank lines.
func (w *Writer) Code(content string) {
	w.Newline()
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	w.Newline()
}
