// Package web downloads source pages and pulls the readable article out of them.
package web

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"NewsRelay/internal/ports"
)

// ErrNoContent is returned when no readable text survives extraction.
var ErrNoContent = errors.New("no readable content")

var (
	noiseSelector   = "script, style, noscript, nav, header, footer, aside, form, iframe, svg, button"
	contentSelector = []string{"article", "main", "[role=main]", "body"}
)

// Extractor is a small readability pass built on goquery.
type Extractor struct{}

var _ ports.Extractor = Extractor{}

// Extract returns the article title and its cleaned inner HTML.
func (Extractor) Extract(_ context.Context, raw []byte, pageURL string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", "", errors.Wrap(err, "parse document")
	}

	title := pageTitle(doc)
	doc.Find(noiseSelector).Remove()

	root := contentRoot(doc)
	if root == nil {
		return title, "", errors.Wrapf(ErrNoContent, "page %s", pageURL)
	}
	// The title is emitted separately, so a leading h1 duplicating it is dropped.
	if h1 := root.Find("h1").First(); h1.Length() > 0 && strings.TrimSpace(h1.Text()) == title {
		h1.Remove()
	}
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		stripAttrs(s)
	})

	content, err := root.Html()
	if err != nil {
		return title, "", errors.Wrap(err, "render content")
	}
	content = strings.TrimSpace(content)
	if strings.TrimSpace(root.Text()) == "" {
		return title, "", errors.Wrapf(ErrNoContent, "page %s", pageURL)
	}
	return title, content, nil
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range contentSelector {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}
		// Pick the candidate with the most text when a page has several.
		best := found.First()
		bestLen := len(strings.TrimSpace(best.Text()))
		found.Each(func(_ int, s *goquery.Selection) {
			if n := len(strings.TrimSpace(s.Text())); n > bestLen {
				best, bestLen = s, n
			}
		})
		if bestLen > 0 {
			return best
		}
	}
	return nil
}

func stripAttrs(s *goquery.Selection) {
	node := s.Get(0)
	if node == nil {
		return
	}
	kept := node.Attr[:0]
	for _, a := range node.Attr {
		if a.Key == "href" || a.Key == "src" || a.Key == "alt" {
			kept = append(kept, a)
		}
	}
	node.Attr = kept
}
