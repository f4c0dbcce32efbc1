// Package content splits assistant replies into typed segments and pulls the
// authoritative diagram source out of them.
package content

import (
	"regexp"
	"strings"
)

// Kind classifies a Segment.
type Kind string

const (
	KindText    Kind = "text"
	KindDiagram Kind = "diagram"
	KindCode    Kind = "code"
)

// Segment is one contiguous piece of a message: prose, a fenced diagram or
// a fenced block of other code.
type Segment struct {
	Kind     Kind   `json:"kind"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// diagramTag is the fence tag that marks diagram source.
const diagramTag = "mermaid"

// fencedBlock matches ```tag\n...``` where the tag is optional. The body is
// matched lazily so the first closing fence ends the block.
var fencedBlock = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")

// Parse splits text into text, diagram and code segments in source order.
// It never fails: an unterminated fence is ordinary text. When nothing
// else is produced the whole input comes back as a single text segment,
// even if it is empty.
func Parse(text string) []Segment {
	var parts []Segment
	last := 0

	for _, m := range fencedBlock.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			if prose := strings.TrimSpace(text[last:m[0]]); prose != "" {
				parts = append(parts, Segment{Kind: KindText, Content: prose})
			}
		}

		var lang string
		if m[2] >= 0 {
			lang = strings.ToLower(text[m[2]:m[3]])
		}
		body := strings.TrimSpace(text[m[4]:m[5]])

		if lang == diagramTag {
			parts = append(parts, Segment{Kind: KindDiagram, Content: body})
		} else {
			parts = append(parts, Segment{Kind: KindCode, Content: body, Language: lang})
		}

		last = m[1]
	}

	if last < len(text) {
		if prose := strings.TrimSpace(text[last:]); prose != "" {
			parts = append(parts, Segment{Kind: KindText, Content: prose})
		}
	}

	if len(parts) == 0 {
		parts = append(parts, Segment{Kind: KindText, Content: text})
	}
	return parts
}

// Diagrams returns only the diagram segments of text, in order.
func Diagrams(text string) []Segment {
	var out []Segment
	for _, s := range Parse(text) {
		if s.Kind == KindDiagram {
			out = append(out, s)
		}
	}
	return out
}
