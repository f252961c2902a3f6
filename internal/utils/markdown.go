package utils

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns a stored Markdown body into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	images bool
}

// Render never fails; unparsable input is sanitized as-is.
func (r *Renderer) Render(source string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return r.policy.Sanitize(source)
	}
	out := string(r.policy.SanitizeBytes(buf.Bytes()))
	if r.images {
		out = EnhanceHTML(out)
	}
	return out
}

func linkPolicy(p *bluemonday.Policy) *bluemonday.Policy {
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

var (
	// articleRenderer allows headings and images.
	articleRenderer = &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: linkPolicy(bluemonday.UGCPolicy()),
		images: true,
	}

	// commentRenderer keeps inline formatting, lists, quotes and code only.
	commentRenderer = &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		),
		policy: commentPolicy(),
	}
)

func commentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.AllowElements("p", "br", "strong", "em", "del", "code", "pre", "blockquote", "ul", "ol", "li")
	return linkPolicy(p)
}

func RenderArticle(source string) string {
	return articleRenderer.Render(source)
}

func RenderComment(source string) string {
	return commentRenderer.Render(source)
}
