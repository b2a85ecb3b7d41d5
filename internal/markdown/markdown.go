// Package markdown renders ticket descriptions to HTML.  Raw HTML in the
// source is escaped, so the output is safe to embed in a page.
package markdown

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md     goldmark.Markdown
	mdOnce sync.Once
)

func converter() goldmark.Markdown {
	mdOnce.Do(func() {
		md = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return md
}

// Render converts src to HTML.  On a conversion error the source is
// returned escaped inside a <pre> block.
func Render(src string) template.HTML {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := converter().Convert([]byte(src), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(buf.String())
}
