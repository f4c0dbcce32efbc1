package content

import (
	"regexp"
	"strings"

	"github.com/ziadkadry99/mermaid-studio/internal/diagrams"
)

// mermaidBlock matches only blocks tagged exactly "mermaid" whose closing
// fence sits on its own line.
var mermaidBlock = regexp.MustCompile("(?s)```mermaid\\n(.*?)\\n```")

// Extract returns the diagram source an assistant reply should contribute
// to the current document. The last mermaid block wins. Without any block,
// a reply that itself starts with a diagram keyword is taken whole. The
// boolean is false when the reply carries no diagram; callers must then
// leave the document alone.
func Extract(reply string) (string, bool) {
	matches := mermaidBlock.FindAllStringSubmatch(reply, -1)
	if len(matches) > 0 {
		return strings.TrimSpace(matches[len(matches)-1][1]), true
	}

	trimmed := strings.TrimSpace(reply)
	if diagrams.StartsWithKeyword(trimmed) {
		return trimmed, true
	}
	return "", false
}
