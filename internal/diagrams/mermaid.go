// Package diagrams holds the Mermaid vocabulary shared by the extractor, the
// highlighter and the workspace, plus the single-document model.
package diagrams

import "strings"

// DefaultSource seeds a fresh workspace before the user has typed anything.
const DefaultSource = `graph TD
    A[User] -->|Asks Question| B(Next AI Mermaid)
    B -->|Generates| C{IsValid?}
    C -->|Yes| D[Render Diagram]
    C -->|No| E[Show Error]`

// Keywords are the diagram-type declarations a Mermaid document may open
// with. Longer spellings come before their prefixes.
var Keywords = []string{
	"stateDiagram-v2",
	"stateDiagram",
	"sequenceDiagram",
	"classDiagram",
	"erDiagram",
	"flowchart",
	"graph",
	"gantt",
	"pie",
	"journey",
	"gitGraph",
	"mindmap",
	"timeline",
	"quadrantChart",
	"requirementDiagram",
	"C4Context",
	"C4Container",
	"C4Component",
	"C4Dynamic",
	"C4Deployment",
	"zenuml",
	"sankey-beta",
	"xychart-beta",
	"block-beta",
}

// DetectType returns the diagram keyword src starts with, or "" when it
// does not look like Mermaid. Leading whitespace and %% comment lines are
// skipped. The keyword must be followed by the end of input or a
// non-identifier character, so "graphic" is not a graph.
func DetectType(src string) string {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		for _, kw := range Keywords {
			if hasKeywordPrefix(line, kw) {
				return kw
			}
		}
		return ""
	}
	return ""
}

// StartsWithKeyword reports whether s, exactly as given, opens with a
// diagram keyword.
func StartsWithKeyword(s string) bool {
	for _, kw := range Keywords {
		if hasKeywordPrefix(s, kw) {
			return true
		}
	}
	return false
}

func hasKeywordPrefix(s, kw string) bool {
	if !strings.HasPrefix(s, kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	return !isIdentByte(s[len(kw)])
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
