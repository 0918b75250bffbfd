package usecase

import (
	"context"
	"html"
	"strings"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// ErrEmptyArticle marks a page with nothing left after extraction.
var ErrEmptyArticle = errors.New("article is empty")

// Download stores the raw source page.
type Download struct {
	Fetcher ports.Fetcher
}

func (d Download) Handle(ctx context.Context, item domain.Item) domain.Outcome {
	body, err := d.Fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return domain.HardFailure(errors.Wrapf(err, "download %s", item.URL))
	}
	if len(body) == 0 {
		return domain.HardFailure(errors.Newf("download %s: empty body", item.URL))
	}
	return domain.Success(body, "")
}

// Scrape turns the raw page into a minimal article document.
type Scrape struct {
	Blobs     ports.BlobStore
	Extractor ports.Extractor
}

func (s Scrape) Handle(ctx context.Context, item domain.Item) domain.Outcome {
	raw, err := s.Blobs.Get(ctx, item.ID, "news")
	if err != nil {
		return domain.HardFailure(errors.Wrap(err, "load downloaded page"))
	}
	title, content, err := s.Extractor.Extract(ctx, raw, item.URL)
	if err != nil {
		return domain.HardFailure(errors.Wrap(err, "extract article"))
	}
	if strings.TrimSpace(content) == "" {
		return domain.HardFailure(ErrEmptyArticle)
	}
	if strings.TrimSpace(title) == "" {
		title = item.Title
	}
	return domain.Success([]byte(articleDocument(title, content)), "")
}

// Generate feeds an upstream artifact to a model with a fixed system prompt.
// Translate, rewrite and illustrate differ only in these fields.
type Generate struct {
	Blobs     ports.BlobStore
	Generator ports.Generator
	Prompt    string
	Kind      ports.RequestKind
	Input     string
}

func (g Generate) Handle(ctx context.Context, item domain.Item) domain.Outcome {
	input, err := g.Blobs.Get(ctx, item.ID, g.Input)
	if err != nil {
		return domain.HardFailure(errors.Wrapf(err, "load %s artifact", g.Input))
	}
	return g.Generator.Generate(ctx, ports.GenerateRequest{
		Kind:         g.Kind,
		SystemPrompt: g.Prompt,
		UserContent:  string(input),
	})
}

func articleDocument(title, content string) string {
	escaped := html.EscapeString(title)
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n<title>")
	b.WriteString(escaped)
	b.WriteString("</title>\n</head>\n<body>\n<h1>")
	b.WriteString(escaped)
	b.WriteString("</h1>\n")
	b.WriteString(content)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
