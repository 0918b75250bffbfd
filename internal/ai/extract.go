package ai

import "strings"

// extractor returns the HTML it found in a model response, if any.
type extractor func(raw string) (string, bool)

// extractors run in order; the first hit wins.
var extractors = []extractor{
	documentBlock,
	htmlFence,
	anyFence,
}

// ExtractHTML pulls the most plausible HTML document out of a model
// response, falling back to the trimmed response itself.
func ExtractHTML(raw string) string {
	for _, ex := range extractors {
		if out, ok := ex(raw); ok {
			return out
		}
	}
	return strings.TrimSpace(raw)
}

// documentBlock spans from the first <html or <!doctype to the last </html>.
func documentBlock(raw string) (string, bool) {
	lower := asciiLower(raw)
	start := -1
	for _, marker := range []string{"<html", "<!doctype"} {
		if i := strings.Index(lower, marker); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	end := strings.LastIndex(lower, "</html>")
	if start < 0 || end < start {
		return "", false
	}
	return strings.TrimSpace(raw[start : end+len("</html>")]), true
}

// htmlFence returns the body of the first ```html fenced block.
func htmlFence(raw string) (string, bool) {
	i := strings.Index(asciiLower(raw), "```html")
	if i < 0 {
		return "", false
	}
	rest := raw[i+len("```html"):]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// anyFence returns the body of the first fenced block, skipping its info line.
func anyFence(raw string) (string, bool) {
	i := strings.Index(raw, "```")
	if i < 0 {
		return "", false
	}
	rest := raw[i+3:]
	nl := strings.Index(rest, "\n")
	if nl < 0 {
		return "", false
	}
	rest = rest[nl+1:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// LooksLikeHTML is the structural check a text result must pass.
func LooksLikeHTML(s string) bool {
	lower := asciiLower(s)
	has := strings.Contains
	return (has(lower, "<html") && has(lower, "</html>")) ||
		(has(lower, "<body") && has(lower, "</body>")) ||
		(has(lower, "<!doctype html") && has(lower, "</html>"))
}

// asciiLower lowercases A-Z only so byte offsets stay aligned with s.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
