package markup

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Title returns the first heading of a document, falling back to <title>.
// An unparseable or untitled document yields "".
func Title(doc []byte) string {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"h1", "h2", "h3", "title"} {
		text := strings.TrimSpace(parsed.Find(sel).First().Text())
		if text != "" {
			return whitespaceRuns.ReplaceAllString(text, " ")
		}
	}
	return ""
}
