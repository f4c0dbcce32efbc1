package content

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	input := "Here:\n```mermaid\ngraph TD\nA-->B\n```\nDone"

	got := Parse(input)

	require.Len(t, got, 3)
	assert.Equal(t, Segment{Kind: KindText, Content: "Here:"}, got[0])
	assert.Equal(t, Segment{Kind: KindDiagram, Content: "graph TD\nA-->B"}, got[1])
	assert.Equal(t, Segment{Kind: KindText, Content: "Done"}, got[2])

	src, ok := Extract(input)
	require.True(t, ok)
	assert.Equal(t, "graph TD\nA-->B", src)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Segment
	}{
		{
			name:  "empty input",
			input: "",
			want:  []Segment{{Kind: KindText, Content: ""}},
		},
		{
			name:  "plain text kept verbatim",
			input: "  just words  ",
			want:  []Segment{{Kind: KindText, Content: "  just words  "}},
		},
		{
			name:  "other language",
			input: "```go\nfmt.Println(1)\n```",
			want:  []Segment{{Kind: KindCode, Content: "fmt.Println(1)", Language: "go"}},
		},
		{
			name:  "untagged fence",
			input: "see\n```\nplain\n```",
			want: []Segment{
				{Kind: KindText, Content: "see"},
				{Kind: KindCode, Content: "plain"},
			},
		},
		{
			name:  "tag is case-insensitive",
			input: "```Mermaid\npie\n```",
			want:  []Segment{{Kind: KindDiagram, Content: "pie"}},
		},
		{
			name:  "unterminated fence is text",
			input: "intro\n```mermaid\ngraph TD\nA-->B",
			want:  []Segment{{Kind: KindText, Content: "intro\n```mermaid\ngraph TD\nA-->B"}},
		},
		{
			name:  "first closing fence ends the block",
			input: "```md\nouter\n```inner```",
			want: []Segment{
				{Kind: KindCode, Content: "outer", Language: "md"},
				{Kind: KindText, Content: "inner```"},
			},
		},
		{
			name:  "whitespace-only text between blocks is dropped",
			input: "```mermaid\ngraph TD\n```\n\n   \n```json\n{}\n```",
			want: []Segment{
				{Kind: KindDiagram, Content: "graph TD"},
				{Kind: KindCode, Content: "{}", Language: "json"},
			},
		},
		{
			name:  "only an empty block",
			input: "```\n```",
			want:  []Segment{{Kind: KindCode, Content: ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParseCoversAllNonWhitespace(t *testing.T) {
	inputs := []string{
		"a\n```mermaid\ngraph TD\nA-->B\n```\nb\n```py\nprint(1)\n```\nc",
		"```x\ny\n```",
		"no fences at all",
		"lead ``` not a fence",
	}
	for _, in := range inputs {
		var b strings.Builder
		for _, s := range Parse(in) {
			if s.Kind == KindDiagram {
				b.WriteString(diagramTag)
			}
			b.WriteString(s.Language)
			b.WriteString(s.Content)
		}
		want := stripSpace(strings.ReplaceAll(in, "```", ""))
		got := stripSpace(strings.ReplaceAll(b.String(), "```", ""))
		assert.Equal(t, want, got, "input %q", in)
	}
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestDiagrams(t *testing.T) {
	input := "```mermaid\ngraph TD\n```\ntext\n```go\nx\n```\n```mermaid\npie\n```"
	got := Diagrams(input)
	require.Len(t, got, 2)
	assert.Equal(t, "graph TD", got[0].Content)
	assert.Equal(t, "pie", got[1].Content)
}

func TestExtractLastBlockWins(t *testing.T) {
	for n := 1; n <= 4; n++ {
		var b strings.Builder
		b.WriteString("Intro text.\n")
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&b, "Attempt %d:\n```mermaid\n  graph LR\n  N%d-->M%d  \n```\n", i, i, i)
		}
		b.WriteString("Hope this helps.")

		got, ok := Extract(b.String())
		require.True(t, ok, "n=%d", n)
		assert.Equal(t, fmt.Sprintf("graph LR\n  N%d-->M%d", n, n), got, "n=%d", n)
	}
}

func TestExtractFallback(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"bare flowchart", "\n  flowchart LR\nA-->B\n", "flowchart LR\nA-->B", true},
		{"bare sequence", "sequenceDiagram\nA->>B: hi", "sequenceDiagram\nA->>B: hi", true},
		{"prose", "I could not draw that.", "", false},
		{"keyword must be a whole word", "pieces of the plan are ready", "", false},
		{"keyword then newline", "pie\n\"Dogs\": 3", "pie\n\"Dogs\": 3", true},
		{"other fence only", "```go\npackage main\n```", "", false},
		{"uppercase tag is not canonical", "```MERMAID\ngraph TD\n```", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
