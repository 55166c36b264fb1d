// Package render writes answers and status lines to the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const defaultWordWrap = 100

// Printer renders Markdown answers and prefixed status lines to one writer.
type Printer struct {
	w        io.Writer
	markdown *glamour.TermRenderer
	errStyle lipgloss.Style
	infStyle lipgloss.Style
}

type printerConfig struct {
	style    string
	wordWrap int
}

// Option configures a Printer.
type Option func(*printerConfig)

// WithStyle selects a glamour standard style such as "dark" or "notty"
// instead of detecting one from the terminal.
func WithStyle(style string) Option {
	return func(c *printerConfig) {
		c.style = style
	}
}

// WithWordWrap sets the Markdown wrap width.
func WithWordWrap(n int) Option {
	return func(c *printerConfig) {
		c.wordWrap = n
	}
}

// NewPrinter creates a Printer for w. If no Markdown renderer can be built,
// Markdown prints the raw text.
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	cfg := printerConfig{wordWrap: defaultWordWrap}
	for _, opt := range opts {
		opt(&cfg)
	}

	styleOpt := glamour.WithAutoStyle()
	if cfg.style != "" {
		styleOpt = glamour.WithStandardStyle(cfg.style)
	}
	md, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(cfg.wordWrap))
	if err != nil {
		md = nil
	}

	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:        w,
		markdown: md,
		errStyle: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		infStyle: r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Markdown renders text as Markdown.
func (p *Printer) Markdown(text string) {
	if p.markdown != nil {
		if out, err := p.markdown.Render(text); err == nil {
			fmt.Fprint(p.w, out)
			return
		}
	}
	fmt.Fprintln(p.w, strings.TrimRight(text, "\n"))
}

// Error prints "Error: msg".
func (p *Printer) Error(msg string) {
	p.line(p.errStyle, "Error:", msg)
}

// APIError prints "API Error: msg".
func (p *Printer) APIError(msg string) {
	p.line(p.errStyle, "API Error:", msg)
}

// Info prints "Info: msg".
func (p *Printer) Info(msg string) {
	p.line(p.infStyle, "Info:", msg)
}

func (p *Printer) line(style lipgloss.Style, prefix, msg string) {
	fmt.Fprintf(p.w, "%s %s\n", style.Render(prefix), msg)
}
