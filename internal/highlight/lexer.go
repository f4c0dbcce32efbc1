// Package highlight tokenizes Mermaid source for editor highlighting and
// formats fenced code for transcripts.
package highlight

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Mermaid is the registered chroma lexer, available as "mermaid" or "mmd".
var Mermaid = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "Mermaid",
		Aliases:   []string{"mermaid", "mmd"},
		Filenames: []string{"*.mmd", "*.mermaid"},
		MimeTypes: []string{"text/vnd.mermaid"},
	},
	mermaidRules,
))

func mermaidRules() chroma.Rules {
	return chroma.Rules{
		"root": {
			{Pattern: `\s+`, Type: chroma.TextWhitespace},
			{Pattern: `%%[^\n]*`, Type: chroma.CommentSingle},
			{Pattern: `"[^"]*"?`, Type: chroma.LiteralStringDouble},
			{Pattern: `'[^']*'?`, Type: chroma.LiteralStringSingle},
			{Pattern: "`[^`]*`?", Type: chroma.LiteralStringBacktick},
			{Pattern: chroma.Words(``, `\b`,
				"stateDiagram-v2", "stateDiagram", "sequenceDiagram", "classDiagram",
				"erDiagram", "flowchart", "graph", "gantt", "journey", "gitGraph", "pie",
				"quadrantChart", "requirementDiagram", "C4Context", "C4Container",
				"C4Component", "C4Dynamic", "C4Deployment", "mindmap", "timeline",
				"zenuml", "sankey-beta", "xychart-beta", "block-beta",
			), Type: chroma.KeywordDeclaration},
			{Pattern: chroma.Words(``, `\b`, "TB", "TD", "BT", "RL", "LR"), Type: chroma.KeywordConstant},
			{Pattern: chroma.Words(``, `\b`,
				// layout
				"subgraph", "end", "direction",
				// sequence
				"participant", "actor", "Note", "activate", "deactivate", "loop", "alt",
				"else", "opt", "par", "and", "rect", "autonumber", "over", "left of", "right of",
				// class
				"class", "namespace", "interface", "enum", "annotation", "abstract",
				"static", "public", "private", "protected", "internal", "external",
				// state
				"state", "note", "fork", "join", "choice", "concurrent",
				// er
				"entity", "relationship", "identifies", "only one", "zero or one",
				"one or more", "zero or more", "many",
				// gantt, journey, pie
				"title", "dateFormat", "axisFormat", "section", "excludes", "includes",
				"todayMarker", "active", "done", "crit", "milestone", "after", "task", "showData",
				// git
				"commit", "branch", "checkout", "merge", "cherry-pick", "reset", "revert", "tag",
			), Type: chroma.Keyword},
			{Pattern: chroma.Words(``, `\b`,
				"style", "classDef", "linkStyle", "fill", "stroke", "stroke-width",
				"color", "background", "theme", "themeVariables",
			), Type: chroma.NameProperty},
			{Pattern: `<-->|<->|-->>|->>[+-]?|-->[+-]?|---|==>|===|-\.->|-\.-|--o|--x|-x|->|o--o|x--x|[|\[\]{}()]`, Type: chroma.Operator},
			{Pattern: `[A-Za-z_][A-Za-z0-9_]*`, Type: chroma.NameVariable},
			{Pattern: `[0-9]+`, Type: chroma.LiteralNumberInteger},
			{Pattern: `[:;]`, Type: chroma.Punctuation},
			{Pattern: `.`, Type: chroma.Text},
		},
	}
}
