package markup

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Plain escapes the text and keeps its paragraph and line structure.
func Plain() Renderer {
	return RendererFunc(func(raw string) string {
		raw = strings.ReplaceAll(raw, "\r\n", "\n")
		var out strings.Builder
		for _, para := range strings.Split(raw, "\n\n") {
			para = strings.Trim(para, "\n")
			if strings.TrimSpace(para) == "" {
				continue
			}
			lines := strings.Split(para, "\n")
			for i, line := range lines {
				lines[i] = html.EscapeString(line)
			}
			out.WriteString("<p>")
			out.WriteString(strings.Join(lines, "<br />\n"))
			out.WriteString("</p>\n")
		}
		return out.String()
	})
}

// Markdown renders CommonMark plus GFM tables and strikethrough. Raw HTML in
// the source is dropped by goldmark and the result is sanitized again.
func Markdown() Renderer {
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	policy := bluemonday.UGCPolicy()
	return RendererFunc(func(raw string) string {
		var buf bytes.Buffer
		if err := md.Convert([]byte(raw), &buf); err != nil {
			return "<p>" + html.EscapeString(raw) + "</p>\n"
		}
		return policy.Sanitize(buf.String())
	})
}

// HTML passes user supplied HTML through a user-generated-content policy.
func HTML() Renderer {
	policy := bluemonday.UGCPolicy()
	return RendererFunc(func(raw string) string {
		return policy.Sanitize(raw)
	})
}
