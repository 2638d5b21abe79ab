package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWikiLinks(t *testing.T) {
	linker := NewLinker("/wiki/")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "[[test]]", `<a href="/wiki/test">test</a>`},
		{"named", "[[test|this link has a name]]", `<a href="/wiki/test">this link has a name</a>`},
		{"whitespace", "[[ test ]]", `<a href="/wiki/test">test</a>`},
		{"two words", "[[two words ]]", `<a href="/wiki/two_words">two words</a>`},
		{"embedded", "see [[a]] and [[b|B]].", `see <a href="/wiki/a">a</a> and <a href="/wiki/b">B</a>.`},
		{"empty target", "[[]]", "[[]]"},
		{"blank target", "[[ |name]]", "[[ |name]]"},
		{"multiline", "[[multi\nline]]", "[[multi\nline]]"},
		{"escaped slash", "[[Section/Page]]", `<a href="/wiki/Section%2FPage">Section/Page</a>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, linker.ResolveWikiLinks(tt.in))
		})
	}
}

func TestResolveWikiLinksUnescapesTarget(t *testing.T) {
	linker := NewLinker("/wiki")
	out := linker.ResolveWikiLinks("[[Tom &amp; Jerry]]")
	assert.Equal(t, `<a href="/wiki/Tom_&amp;_Jerry">Tom &amp; Jerry</a>`, out)
}

func TestWikify(t *testing.T) {
	linker := NewLinker("/wiki")
	upper := RendererFunc(strings.ToUpper)

	wrapped := Wikify(upper, linker)
	assert.Equal(t, `<a href="/wiki/TEST">TEST</a>`, wrapped.Render("[[test]]"))

	assert.Same(t, wrapped, Wikify(wrapped, linker))
	assert.Equal(t, `<a href="/wiki/TEST">TEST</a>`, Wikify(wrapped, linker).Render("[[test]]"))
}

func TestPlainRenderer(t *testing.T) {
	out := Plain().Render("hello <b>\nworld\n\nsecond")
	assert.Equal(t, "<p>hello &lt;b&gt;<br />\nworld</p>\n<p>second</p>\n", out)
}

func TestMarkdownRendererDropsScripts(t *testing.T) {
	out := Markdown().Render("# Title\n\n<script>alert(1)</script>\n\n*em*")
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<em>em</em>")
	assert.NotContains(t, out, "<script>")
}

func TestHTMLRendererSanitizes(t *testing.T) {
	out := HTML().Render(`<p onclick="x()">hi</p><script>alert(1)</script>`)
	assert.Equal(t, "<p>hi</p>", out)
}

func TestDefaultRegistry(t *testing.T) {
	registry, err := NewDefaultRegistry([]string{TypePlain, TypeMarkdown}, NewLinker("/wiki"))
	require.NoError(t, err)

	assert.Equal(t, []string{TypeMarkdown, TypePlain}, registry.Types())
	assert.True(t, registry.Enabled(TypePlain))
	assert.False(t, registry.Enabled(TypeHTML))

	out, err := registry.Render(TypePlain, "go to [[Home]]")
	require.NoError(t, err)
	assert.Equal(t, "<p>go to <a href=\"/wiki/Home\">Home</a></p>\n", out)

	_, err = registry.Render(TypeHTML, "x")
	assert.ErrorIs(t, err, ErrUnknownMarkupType)

	_, err = NewDefaultRegistry([]string{"textile"}, NewLinker("/wiki"))
	assert.ErrorIs(t, err, ErrUnknownMarkupType)
}
