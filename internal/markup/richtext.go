// Package markup converts article HTML into the constrained formats accepted
// by the publishing surfaces.
package markup

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
)

var (
	manyNewlines   = regexp.MustCompile(`\n{3,}`)
	manySpaces     = regexp.MustCompile(` {2,}`)
	spaceNewline   = regexp.MustCompile(` +\n`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

var droppedTags = map[string]bool{
	"head":     true,
	"meta":     true,
	"title":    true,
	"style":    true,
	"script":   true,
	"noscript": true,
	"template": true,
}

var inlineTags = map[string]bool{
	"span": true, "a": true, "b": true, "strong": true, "i": true, "em": true,
	"u": true, "s": true, "code": true, "small": true, "sup": true, "sub": true,
	"mark": true, "abbr": true, "time": true, "label": true, "cite": true,
	"q": true, "del": true, "ins": true, "kbd": true, "var": true, "font": true,
	"html": true, "body": true, "img": true,
}

// RichText renders an HTML document as Telegram-flavoured rich text.
func RichText(doc []byte) (string, error) {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return "", errors.Wrap(err, "parse html")
	}

	w := &richWriter{}
	for _, n := range parsed.Nodes {
		w.walk(n)
	}
	return normalize(w.b.String()), nil
}

type richWriter struct {
	b strings.Builder
}

func (w *richWriter) walk(n *html.Node) {
	switch n.Type {
	case html.DocumentNode:
		w.children(n)
	case html.TextNode:
		w.text(n.Data)
	case html.ElementNode:
		w.element(n)
	}
}

func (w *richWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *richWriter) element(n *html.Node) {
	tag := strings.ToLower(n.Data)
	if droppedTags[tag] {
		return
	}

	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.blockBreak()
		w.b.WriteString("<b>")
		w.children(n)
		w.b.WriteString("</b>")
		w.blockBreak()
	case "b", "strong":
		w.b.WriteString("<b>")
		w.children(n)
		w.b.WriteString("</b>")
	case "a":
		href, ok := attr(n, "href")
		if !ok || href == "" {
			w.children(n)
			return
		}
		w.b.WriteString(`<a href="`)
		w.b.WriteString(html.EscapeString(href))
		w.b.WriteString(`">`)
		w.children(n)
		w.b.WriteString("</a>")
	case "br":
		w.b.WriteString("\n")
	default:
		if inlineTags[tag] {
			w.children(n)
			return
		}
		w.blockBreak()
		w.children(n)
		w.blockBreak()
	}
}

func (w *richWriter) text(raw string) {
	t := whitespaceRuns.ReplaceAllString(raw, " ")
	out := w.b.String()

	if strings.TrimSpace(t) == "" {
		if out == "" || endsWithSpace(out) {
			return
		}
		w.b.WriteString(" ")
		return
	}

	if out == "" || endsWithSpace(out) {
		t = strings.TrimLeft(t, " ")
	}
	w.b.WriteString(html.EscapeString(t))
}

// blockBreak terminates the current block with an empty line unless the
// output is empty or already ends with one.
func (w *richWriter) blockBreak() {
	out := w.b.String()
	if out == "" || strings.HasSuffix(out, "\n\n") {
		return
	}
	if strings.HasSuffix(out, "\n") {
		w.b.WriteString("\n")
		return
	}
	w.b.WriteString("\n\n")
}

func endsWithSpace(s string) bool {
	return strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n")
}

func normalize(s string) string {
	s = manySpaces.ReplaceAllString(s, " ")
	s = spaceNewline.ReplaceAllString(s, "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	return s
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val), true
		}
	}
	return "", false
}
