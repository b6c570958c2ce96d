package report

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ToHTML renders markdown produced by this package. A parser is stateful, so
// each call builds its own. Narrative lines carry category labels from the
// uploaded data, so raw HTML is dropped and only safe link schemes survive.
func ToHTML(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML | html.Safelink})
	return template.HTML(markdown.ToHTML([]byte(md), p, renderer))
}

// LinesToHTML renders each narrative line as inline markdown
func LinesToHTML(lines []string) []template.HTML {
	out := make([]template.HTML, len(lines))
	for i, line := range lines {
		out[i] = ToHTML(line)
	}
	return out
}
