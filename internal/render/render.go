package render

import (
	"bytes"
	"html"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer turns message text into display markup. Implementations must be
// pure and must not alter plain text beyond wrapping it.
type Renderer interface {
	Render(text string) string
}

// Markdown renders GitHub flavoured markdown to HTML
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates the markdown renderer used for chat transcripts
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// Render converts markdown text to HTML, escaping the text if conversion fails
func (m *Markdown) Render(text string) string {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		return "<p>" + html.EscapeString(text) + "</p>"
	}
	return buf.String()
}

// Plain returns text unchanged; used by terminal hosts
type Plain struct{}

func (Plain) Render(text string) string { return text }

// Func adapts a function to Renderer
type Func func(text string) string

func (f Func) Render(text string) string { return f(text) }

var inlineImage = regexp.MustCompile(`data:image/[a-z]+;base64,[A-Za-z0-9+/=]+`)

// UserContent moves inline data-URL images into their own markdown image
// paragraphs so text and pictures render separately.
func UserContent(content string) string {
	if !inlineImage.MatchString(content) {
		return content
	}
	return inlineImage.ReplaceAllStringFunc(content, func(url string) string {
		return "\n\n![](" + url + ")\n\n"
	})
}
