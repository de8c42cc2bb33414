// Package markdown renders assistant replies to HTML fragments so browser
// clients can show formatted text without shipping their own renderer.
package markdown

import (
	"strings"

	md "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Render converts markdown source to an HTML fragment. Parsers are
// single-use, so one is built per call.
func Render(src string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return strings.TrimSpace(string(md.ToHTML([]byte(src), p, r)))
}
