package markdown

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			&frontmatter.Extender{},
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithXHTML(),
		),
	)

	return &Parser{
		md: md,
	}
}

// ParseWithFrontmatter converts markdown to HTML and decodes any YAML
// frontmatter into meta.
func (p *Parser) ParseWithFrontmatter(source []byte) (content []byte, meta map[string]any, err error) {
	context := parser.NewContext()
	var buf bytes.Buffer

	err = p.md.Convert(source, &buf, parser.WithContext(context))
	if err != nil {
		return nil, nil, err
	}

	data := frontmatter.Get(context)
	if data == nil {
		meta = make(map[string]any)
	} else {
		err = data.Decode(&meta)
		if err != nil {
			meta = make(map[string]any)
		}
	}

	return buf.Bytes(), meta, nil
}

// Message is a rendered email: subject from frontmatter, HTML from the body
// and the expanded markdown as the plain-text alternative.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// RenderTemplate expands a markdown template with data, then converts it.
// The subject frontmatter key is itself a template.
func (p *Parser) RenderTemplate(tmpl *template.Template, data any) (*Message, error) {
	var src bytes.Buffer
	err := tmpl.Execute(&src, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", tmpl.Name(), err)
	}

	html, meta, err := p.ParseWithFrontmatter(src.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", tmpl.Name(), err)
	}

	subject, _ := meta["subject"].(string)

	return &Message{
		Subject: subject,
		HTML:    string(html),
		Text:    string(stripFrontmatter(src.Bytes())),
	}, nil
}

func stripFrontmatter(src []byte) []byte {
	const fence = "---\n"
	if !bytes.HasPrefix(src, []byte(fence)) {
		return src
	}
	rest := src[len(fence):]
	end := bytes.Index(rest, []byte("\n"+fence))
	if end < 0 {
		return src
	}
	return bytes.TrimLeft(rest[end+len(fence)+1:], "\n")
}
