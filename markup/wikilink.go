package markup

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"wiki-engine/models"
)

// linkPattern matches [[target]] and [[target|name]] on a single line.
var linkPattern = regexp.MustCompile(`\[\[([^\[\]|\n]*?)(?:\|([^\[\]\n]*?))?\]\]`)

// Linker rewrites wiki links into anchors pointing at article views.
type Linker struct {
	BasePath string
}

func NewLinker(basePath string) *Linker {
	return &Linker{BasePath: strings.TrimRight(basePath, "/")}
}

// ArticleURL is the canonical view URL of title.
func (l *Linker) ArticleURL(title string) string {
	return l.BasePath + "/" + url.PathEscape(models.NormalizeTitle(title))
}

// ResolveWikiLinks expects already escaped HTML. Links with an empty target
// are left as they are.
func (l *Linker) ResolveWikiLinks(text string) string {
	return linkPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := linkPattern.FindStringSubmatch(match)
		target := strings.TrimSpace(groups[1])
		if target == "" {
			return match
		}
		name := strings.TrimSpace(groups[2])
		if name == "" {
			name = target
		}
		href := l.ArticleURL(html.UnescapeString(target))
		return `<a href="` + html.EscapeString(href) + `">` + name + `</a>`
	})
}

type wikified struct {
	inner  Renderer
	linker *Linker
}

func (w *wikified) Render(raw string) string {
	return w.linker.ResolveWikiLinks(w.inner.Render(raw))
}

// Wikify runs linker over the output of renderer. Wrapping a renderer that
// Wikify already produced returns it unchanged.
func Wikify(renderer Renderer, linker *Linker) Renderer {
	if w, ok := renderer.(*wikified); ok {
		return w
	}
	return &wikified{inner: renderer, linker: linker}
}
