// Package console renders user-facing run output.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
)

// Reporter receives user-facing messages from the planner and executors.
type Reporter interface {
	// Infof prints progress.
	Infof(format string, args ...any)
	// Commandf echoes a game command that is about to run.
	Commandf(format string, args ...any)
	// Warnf prints a non-fatal problem.
	Warnf(format string, args ...any)
	// Successf prints a final success line.
	Successf(format string, args ...any)
	// Errorf prints a final failure line.
	Errorf(format string, args ...any)
}

// Console is a Reporter writing lipgloss-styled lines.
type Console struct {
	w io.Writer

	heading lipgloss.Style
	info    lipgloss.Style
	command lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

// New returns a Console writing to w. Colour is only emitted when w is a terminal.
func New(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		heading: r.NewStyle().Foreground(primaryColor).Bold(true),
		info:    r.NewStyle(),
		command: r.NewStyle().Foreground(mutedColor),
		warn:    r.NewStyle().Foreground(warningColor).Bold(true),
		success: r.NewStyle().Foreground(successColor).Bold(true),
		failure: r.NewStyle().Foreground(errorColor).Bold(true),
	}
}

// Discard drops all output.
var Discard Reporter = New(io.Discard)

func (c *Console) line(style lipgloss.Style, prefix, format string, args ...any) {
	fmt.Fprintln(c.w, style.Render(prefix+fmt.Sprintf(format, args...)))
}

func (c *Console) Infof(format string, args ...any) {
	c.line(c.info, "", format, args...)
}

func (c *Console) Commandf(format string, args ...any) {
	c.line(c.command, "> ", format, args...)
}

func (c *Console) Warnf(format string, args ...any) {
	c.line(c.warn, "WARNING: ", format, args...)
}

func (c *Console) Successf(format string, args ...any) {
	c.line(c.success, "", format, args...)
}

func (c *Console) Errorf(format string, args ...any) {
	c.line(c.failure, "ERROR: ", format, args...)
}

// Heading renders a section title in the primary colour.
func (c *Console) Heading(title string) {
	fmt.Fprintln(c.w, c.heading.Render(title))
}

// Recorder is a Reporter that keeps every line, for tests and summaries.
type Recorder struct {
	Lines []string
}

func (r *Recorder) add(kind, format string, args ...any) {
	r.Lines = append(r.Lines, kind+": "+fmt.Sprintf(format, args...))
}

func (r *Recorder) Infof(format string, args ...any)    { r.add("info", format, args...) }
func (r *Recorder) Commandf(format string, args ...any) { r.add("command", format, args...) }
func (r *Recorder) Warnf(format string, args ...any)    { r.add("warn", format, args...) }
func (r *Recorder) Successf(format string, args ...any) { r.add("success", format, args...) }
func (r *Recorder) Errorf(format string, args ...any)   { r.add("error", format, args...) }

// Count returns how many recorded lines are of the given kind.
func (r *Recorder) Count(kind string) int {
	n := 0
	prefix := kind + ": "
	for _, l := range r.Lines {
		if len(l) >= len(prefix) && l[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
