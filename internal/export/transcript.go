package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"github.com/ziadkadry99/mermaid-studio/internal/conversation"
	"github.com/ziadkadry99/mermaid-studio/internal/highlight"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

// TranscriptOptions controls transcript rendering.
type TranscriptOptions struct {
	Title   string
	Theme   render.Theme
	Diagram render.Markup
}

type transcriptEntry struct {
	Role string
	Time string
	Body template.HTML
}

// Transcript renders the conversation as a single HTML page. Message
// bodies are treated as Markdown; raw HTML inside them is not emitted.
// The current diagram markup, when given, is embedded as-is.
func Transcript(msgs []conversation.Message, opts TranscriptOptions) ([]byte, error) {
	if opts.Title == "" {
		opts.Title = "Mermaid Studio transcript"
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithCustomStyle(highlight.Style(opts.Theme)),
			),
		),
	)

	entries := make([]transcriptEntry, 0, len(msgs))
	for i, m := range msgs {
		var buf bytes.Buffer
		if err := md.Convert([]byte(m.Content), &buf); err != nil {
			return nil, fmt.Errorf("converting message %d: %w", i, err)
		}
		e := transcriptEntry{Role: string(m.Role), Body: template.HTML(buf.String())}
		if !m.CreatedAt.IsZero() {
			e.Time = m.CreatedAt.Format(time.RFC3339)
		}
		entries = append(entries, e)
	}

	tmpl, err := template.New("transcript").Parse(transcriptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing transcript template: %w", err)
	}

	var out bytes.Buffer
	err = tmpl.Execute(&out, struct {
		Title   string
		Dark    bool
		Entries []transcriptEntry
		Diagram template.HTML
	}{
		Title:   opts.Title,
		Dark:    opts.Theme != render.ThemeLight,
		Entries: entries,
		Diagram: template.HTML(opts.Diagram),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering transcript: %w", err)
	}
	return out.Bytes(), nil
}

const transcriptTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: ui-sans-serif, system-ui, sans-serif; margin: 2rem auto; max-width: 52rem; {{if .Dark}}background: #0f172a; color: #e2e8f0;{{else}}background: #ffffff; color: #1f2937;{{end}} }
.msg { border-radius: 8px; padding: 0.75rem 1rem; margin: 0.75rem 0; {{if .Dark}}background: #1e293b;{{else}}background: #f9fafb;{{end}} }
.msg.user { border-left: 4px solid #61afef; }
.msg.assistant { border-left: 4px solid #c678dd; }
.meta { font-size: 0.75rem; opacity: 0.7; }
pre { padding: 0.75rem; border-radius: 6px; overflow-x: auto; }
.diagram { margin-top: 2rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Entries}}<div class="msg {{.Role}}">
<div class="meta">{{.Role}}{{if .Time}} &middot; {{.Time}}{{end}}</div>
{{.Body}}
</div>
{{end}}{{if .Diagram}}<div class="diagram">
<h2>Current diagram</h2>
{{.Diagram}}
</div>
{{end}}</body>
</html>
`
