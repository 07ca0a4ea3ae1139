// Package render converts markdown post bodies to HTML. Blogs that
// deliver raw markdown in their webhooks go through here before link
// extraction; HTML-bodied posts never do.
package render

import (
	"github.com/gomarkdown/markdown"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

func MarkdownToHTML(md []byte) []byte {
	md = markdown.NormalizeNewlines(md)

	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough |
			parser.SpaceHeadings | parser.HeadingIDs | parser.AutoHeadingIDs |
			parser.Footnotes | parser.DefinitionLists,
	).Parse(md)

	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank,
	}
	return markdown.Render(doc, md_html.NewRenderer(opts))
}
