package markdown

import (
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithFrontmatter(t *testing.T) {
	p := NewParser()

	html, meta, err := p.ParseWithFrontmatter([]byte("---\nsubject: Hello\n---\n# Title\n\nBody text"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", meta["subject"])
	assert.Contains(t, string(html), "<h1>Title</h1>")
	assert.NotContains(t, string(html), "subject")
}

func TestParseWithoutFrontmatter(t *testing.T) {
	html, meta, err := NewParser().ParseWithFrontmatter([]byte("plain *text*"))
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Contains(t, string(html), "<em>text</em>")
}

func TestRenderTemplate(t *testing.T) {
	tmpl := template.Must(template.New("t.md").Parse("---\nsubject: \"Due in {{.Days}} days\"\n---\nHi {{.Name}},\n\n[Open]({{.Link}})\n"))

	msg, err := NewParser().RenderTemplate(tmpl, map[string]any{"Days": 3, "Name": "Ada", "Link": "https://example.org/x"})
	require.NoError(t, err)
	assert.Equal(t, "Due in 3 days", msg.Subject)
	assert.Contains(t, msg.HTML, `<a href="https://example.org/x">Open</a>`)
	assert.Equal(t, "Hi Ada,\n\n[Open](https://example.org/x)\n", msg.Text)
}
