package highlight

import (
	"fmt"

	"github.com/alecthomas/chroma/v2"
)

// Kind is the highlighting category an editor styles a token with.
type Kind string

const (
	KindKeyword     Kind = "keyword"
	KindProperty    Kind = "property"
	KindVariable    Kind = "variable"
	KindString      Kind = "string"
	KindComment     Kind = "comment"
	KindNumber      Kind = "number"
	KindOperator    Kind = "operator"
	KindPunctuation Kind = "punctuation"
	KindText        Kind = "text"
)

// Token is one highlighted span.
type Token struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// KindOf maps a chroma token type onto a Kind.
func KindOf(tt chroma.TokenType) Kind {
	switch {
	case tt.InCategory(chroma.Keyword):
		return KindKeyword
	case tt == chroma.NameProperty || tt == chroma.NameAttribute:
		return KindProperty
	case tt.InCategory(chroma.Name):
		return KindVariable
	case tt.InSubCategory(chroma.LiteralString):
		return KindString
	case tt.InSubCategory(chroma.LiteralNumber):
		return KindNumber
	case tt.InCategory(chroma.Comment):
		return KindComment
	case tt.InCategory(chroma.Operator):
		return KindOperator
	case tt.InCategory(chroma.Punctuation):
		return KindPunctuation
	default:
		return KindText
	}
}

// Tokens splits Mermaid source into highlighted spans. Adjacent spans of
// the same kind are merged; concatenating every Value yields src.
func Tokens(src string) ([]Token, error) {
	it, err := Mermaid.Tokenise(nil, src)
	if err != nil {
		return nil, fmt.Errorf("tokenising mermaid source: %w", err)
	}

	var out []Token
	for _, t := range it.Tokens() {
		if t.Value == "" {
			continue
		}
		k := KindOf(t.Type)
		if n := len(out); n > 0 && out[n-1].Kind == k {
			out[n-1].Value += t.Value
			continue
		}
		out = append(out, Token{Kind: k, Value: t.Value})
	}
	return out, nil
}
