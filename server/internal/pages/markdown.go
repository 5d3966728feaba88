package pages

import (
	"bytes"
	"html/template"
	"log/slog"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

func newMarkdownRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// markdown renders the library file id. An unreadable file renders empty,
// like HTML content.
func (p *Pages) markdown(id string) template.HTML {
	src := p.lib.Content(id)
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(src), &buf); err != nil {
		slog.Warn("pages: markdown render failed", "file", id, "err", err)
		return ""
	}
	return template.HTML(buf.String())
}
