package highlight

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

// Editor palettes, registered with chroma's style registry.
var (
	DarkStyle = styles.Register(chroma.MustNewStyle("mstudio-dark", chroma.StyleEntries{
		chroma.Background:    "#e2e8f0 bg:#1e293b",
		chroma.Keyword:       "bold #c678dd",
		chroma.NameProperty:  "#61afef",
		chroma.Name:          "#e06c75",
		chroma.LiteralString: "#98c379",
		chroma.Comment:       "italic #5c6370",
		chroma.LiteralNumber: "#d19a66",
		chroma.Operator:      "bold #56b6c2",
		chroma.Punctuation:   "#abb2bf",
	}))

	LightStyle = styles.Register(chroma.MustNewStyle("mstudio-light", chroma.StyleEntries{
		chroma.Background:    "#1f2937 bg:#ffffff",
		chroma.Keyword:       "bold #a626a4",
		chroma.NameProperty:  "#0184bc",
		chroma.Name:          "#e45649",
		chroma.LiteralString: "#50a14f",
		chroma.Comment:       "italic #a0a1a7",
		chroma.LiteralNumber: "#c18401",
		chroma.Operator:      "bold #0997b3",
		chroma.Punctuation:   "#383a42",
	}))
)

// Style returns the palette for theme.
func Style(theme render.Theme) *chroma.Style {
	if theme == render.ThemeLight {
		return LightStyle
	}
	return DarkStyle
}

// HTML renders code as a standalone highlighted <pre> block using inline
// styles. Unknown languages are left unhighlighted.
func HTML(code, lang string, theme render.Theme) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenising %s: %w", lang, err)
	}

	var buf strings.Builder
	f := html.New(html.TabWidth(2))
	if err := f.Format(&buf, Style(theme), it); err != nil {
		return "", fmt.Errorf("formatting %s: %w", lang, err)
	}
	return buf.String(), nil
}

// CSS returns class-based rules for theme, for pages that format with
// html.WithClasses.
func CSS(theme render.Theme) (string, error) {
	var buf strings.Builder
	if err := html.New(html.WithClasses(true)).WriteCSS(&buf, Style(theme)); err != nil {
		return "", fmt.Errorf("writing highlight css: %w", err)
	}
	return buf.String(), nil
}
