package templates

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/vnkhanh/crowdsourcing/logger"
)

//go:embed html/*.html
var files embed.FS

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown renders survey descriptions and report annotations. Raw html in
// the source is dropped by goldmark's default renderer.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		logger.WithError(err).Warn("markdown render failed")
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"join":     strings.Join,
		"add":      func(a, b int) int { return a + b },
	}
}

// Load parses every embedded page. Names are the file names, e.g.
// "survey_detail.html".
func Load() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(files, "html/*.html")
}

// Pick returns the first name defined in t, so a survey can ship its own
// "survey_report_<slug>.html" and fall back to the generic page.
func Pick(t *template.Template, names ...string) string {
	for _, n := range names {
		if t.Lookup(n) != nil {
			return n
		}
	}
	return names[len(names)-1]
}
