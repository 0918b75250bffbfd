package markup

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/net/html"
)

// ShortFormLimit is the message length limit of the short-form surface,
// in UTF-16 code units of the rendered text.
const ShortFormLimit = 4096

var blockishTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// PlainText strips markup from rich text the way the chat client renders it:
// block-ish tags become a single space, entities are decoded and whitespace
// is collapsed.
func PlainText(richText string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(richText))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockishTags[strings.ToLower(string(name))] {
				b.WriteByte(' ')
			}
		}
	}
}

// UTF16Len counts UTF-16 code units, two for runes outside the BMP.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		l := utf16.RuneLen(r)
		if l < 0 {
			l = 1
		}
		n += l
	}
	return n
}

// MeasuredLen is the length the short-form surface enforces its limit on.
func MeasuredLen(richText string) int {
	return UTF16Len(PlainText(richText))
}

// FitsShortForm reports whether richText can be sent as a single message.
func FitsShortForm(richText string, limit int) bool {
	if limit <= 0 {
		limit = ShortFormLimit
	}
	return MeasuredLen(richText) <= limit
}
