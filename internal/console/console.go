// Package console prints the user-facing progress of the watcher: banners,
// detected content, extracted and translated text. Diagnostics go through
// slog instead.
package console

import (
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Printer writes colored, block-structured output. It is safe for
// concurrent use; each block is written atomically.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	banner  *color.Color
	heading *color.Color
	body    *color.Color
	ok      *color.Color
	warn    *color.Color
	fail    *color.Color
}

// New returns a Printer writing to w. Colors are disabled when noColor is
// set.
func New(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w:       w,
		banner:  color.New(color.FgCyan, color.Bold),
		heading: color.New(color.FgYellow, color.Bold),
		body:    color.New(color.Reset),
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.banner, p.heading, p.body, p.ok, p.warn, p.fail} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

func (p *Printer) line(c *color.Color, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = c.Fprintf(p.w, format+"\n", args...)
}

// Started prints the start banner.
func (p *Printer) Started(what string) {
	p.line(p.banner, "Monitoring the clipboard for new %s. Press Ctrl+C to exit.", what)
}

// Stopped prints the stop banner.
func (p *Printer) Stopped() {
	p.line(p.banner, "\nMonitoring stopped.")
}

// Detected announces a new clipboard payload of the given kind.
func (p *Printer) Detected(kind string) {
	switch kind {
	case "image":
		p.line(p.heading, "\nNew image detected. Extracting text...")
	default:
		p.line(p.heading, "\nNew %s detected.", kind)
	}
}

// Result prints the source text and its translation as one block.
func (p *Printer) Result(source, translated string, copied bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = p.heading.Fprintln(p.w, "\nExtracted Text:")
	_, _ = p.body.Fprintln(p.w, indent(source))
	_, _ = p.heading.Fprintln(p.w, "\nTranslated Text:")
	_, _ = p.body.Fprintln(p.w, indent(translated))
	if copied {
		_, _ = p.ok.Fprintln(p.w, "\nTranslated text copied to the clipboard.")
	}
}

// Notice prints a plain informational line.
func (p *Printer) Notice(format string, args ...any) {
	p.line(p.body, format, args...)
}

// Warn prints a highlighted warning line.
func (p *Printer) Warn(format string, args ...any) {
	p.line(p.warn, "Warning: "+format, args...)
}

// Error prints a highlighted error line.
func (p *Printer) Error(format string, args ...any) {
	p.line(p.fail, "Error: "+format, args...)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// Describe names what the watcher is looking for.
func Describe(watchText bool) string {
	if watchText {
		return "images and text"
	}
	return "images"
}
