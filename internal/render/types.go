// Package render turns diagram source into SVG markup through an external
// engine, with debouncing and stale-result protection in Pipeline.
package render

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Markup is rendered output exactly as the engine produced it. It is
// handed to display surfaces untouched and never interpreted here.
type Markup string

// Theme selects the presentation mode diagrams are rendered in.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// MermaidTheme maps t onto the theme names the Mermaid engine understands.
func (t Theme) MermaidTheme() string {
	if t == ThemeDark {
		return "dark"
	}
	return "default"
}

const defaultFontFamily = "ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, monospace"

// Options is the renderer configuration for a single render call. It is
// passed with every Request instead of living in package state.
type Options struct {
	Theme         Theme  `json:"theme" yaml:"theme"`
	FontFamily    string `json:"font_family,omitempty" yaml:"font_family"`
	SecurityLevel string `json:"security_level,omitempty" yaml:"security_level"`
	Background    string `json:"background,omitempty" yaml:"background"`
}

// DefaultOptions returns the dark-theme configuration used on startup.
func DefaultOptions() Options {
	return Options{
		Theme:         ThemeDark,
		FontFamily:    defaultFontFamily,
		SecurityLevel: "loose",
		Background:    "transparent",
	}
}

// WithTheme returns a copy of o using theme t.
func (o Options) WithTheme(t Theme) Options {
	o.Theme = t
	return o
}

// MermaidConfig is the initialize() configuration handed to the engine.
func (o Options) MermaidConfig() map[string]any {
	cfg := map[string]any{
		"startOnLoad": false,
		"theme":       o.Theme.MermaidTheme(),
	}
	if o.FontFamily != "" {
		cfg["fontFamily"] = o.FontFamily
	}
	if o.SecurityLevel != "" {
		cfg["securityLevel"] = o.SecurityLevel
	}
	return cfg
}

// Request is one render call. ID is unique per call so engines that cache
// by element id never collide.
type Request struct {
	ID      string
	Source  string
	Options Options
}

// Engine renders diagram source. Implementations must be safe for
// concurrent use and must not share mutable state between calls.
type Engine interface {
	Render(ctx context.Context, req Request) (Markup, error)
	Name() string
}

// SyntaxError is a structured failure reported by an engine for source it
// could not parse or lay out.
type SyntaxError struct {
	Message string
	Line    int
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error on line %d: %s", e.Line, e.Message)
	}
	return "syntax error: " + e.Message
}

// ErrEmptySource is reported when a blank document is submitted.
var ErrEmptySource = errors.New("diagram source is empty")

// Detail returns the user-facing error text for a failed render.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		return se.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "render timed out"
	}
	return err.Error()
}

var parseErrorLine = regexp.MustCompile(`(?i)(?:parse )?error on line (\d+)`)

// parseSyntaxError builds a SyntaxError from engine diagnostics, dropping
// stack frames and blank lines.
func parseSyntaxError(output string) *SyntaxError {
	var kept []string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "at ") {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t\r"))
	}

	msg := strings.Join(kept, "\n")
	if msg == "" {
		msg = "unknown syntax error"
	}

	se := &SyntaxError{Message: msg}
	if m := parseErrorLine.FindStringSubmatch(msg); m != nil {
		se.Line, _ = strconv.Atoi(m[1])
	}
	return se
}
