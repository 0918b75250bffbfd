package usecase

import (
	"context"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/markup"
	"NewsRelay/internal/ports"
)

const (
	defaultRetryAfter = 60 * time.Second
	footerTimeLayout  = "2006-01-02 15:04:05"
)

var (
	// ErrMissingImage means the illustrate stage left no picture behind.
	ErrMissingImage = errors.New("illustration is missing")
	// ErrTooLong means the message exceeds the short-form budget and no
	// long-form surface is configured.
	ErrTooLong = errors.New("message exceeds the short-form limit")
)

// PublishOptions shapes the published message.
type PublishOptions struct {
	PublishedLabel string
	SourceLabel    string
	ArticleLabel   string
	Location       *time.Location
	MessageLimit   int
}

// Publish posts the rewritten article with its illustration, switching to a
// long-form page plus a short teaser when the article does not fit.
type Publish struct {
	Blobs   ports.BlobStore
	Short   ports.ShortPublisher
	Long    ports.LongPublisher
	Clock   ports.Clock
	Options PublishOptions
	Logger  *slog.Logger
}

func (p Publish) Handle(ctx context.Context, item domain.Item) domain.Outcome {
	doc, err := p.Blobs.Get(ctx, item.ID, "rewriter")
	if err != nil {
		return domain.HardFailure(errors.Wrap(err, "load rewritten article"))
	}
	image, err := p.Blobs.Get(ctx, item.ID, "illustrator")
	if errors.Is(err, ports.ErrNotFound) {
		return domain.HardFailure(ErrMissingImage)
	}
	if err != nil {
		return domain.HardFailure(errors.Wrap(err, "load illustration"))
	}

	rich, err := markup.RichText(doc)
	if err != nil {
		return domain.HardFailure(errors.Wrap(err, "render rich text"))
	}
	footer := p.footer(item)
	message := strings.TrimRight(rich, " \n") + footer

	if markup.FitsShortForm(message, p.Options.MessageLimit) {
		if err := p.send(ctx, item, message, image); err != nil {
			return domain.HardFailure(err)
		}
		return domain.Success(nil, "")
	}

	if p.Long == nil {
		return domain.HardFailure(errors.Wrapf(ErrTooLong, "%d UTF-16 units", markup.MeasuredLen(message)))
	}
	p.logger().Info("message over short-form limit, publishing long form",
		"item_id", item.ID, "units", markup.MeasuredLen(message))

	pageURL, err := p.publishLong(ctx, item, doc)
	if err != nil {
		return domain.HardFailure(err)
	}
	if err := p.send(ctx, item, p.teaser(item, doc, pageURL)+footer, image); err != nil {
		return domain.HardFailure(err)
	}
	return domain.Success(nil, "")
}

func (p Publish) publishLong(ctx context.Context, item domain.Item, doc []byte) (string, error) {
	nodes, err := markup.Nodes(doc)
	if err != nil {
		return "", errors.Wrap(err, "build page nodes")
	}
	content, truncated, err := markup.FitNodes(nodes, markup.LongFormBudget)
	if err != nil {
		return "", errors.Wrap(err, "encode page nodes")
	}
	if truncated {
		p.logger().Warn("long-form content truncated", "item_id", item.ID, "bytes", len(content))
	}

	var pageURL string
	err = p.retryOnce(ctx, func() error {
		u, err := p.Long.PublishLong(ctx, p.title(item, doc), content)
		pageURL = u
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "create long-form page")
	}
	return pageURL, nil
}

// send records the exact message as the publisher artifact, then posts it.
func (p Publish) send(ctx context.Context, item domain.Item, message string, image []byte) error {
	if err := p.Blobs.Put(ctx, item.ID, "publisher", []byte(message)); err != nil {
		return errors.Wrap(err, "store published message")
	}
	err := p.retryOnce(ctx, func() error {
		return p.Short.PublishShort(ctx, message, image)
	})
	return errors.Wrap(err, "publish message")
}

func (p Publish) retryOnce(ctx context.Context, op func() error) error {
	err := op()
	var limited *ports.RateLimitedError
	if !errors.As(err, &limited) {
		return err
	}
	wait := limited.RetryAfter
	if wait <= 0 {
		wait = defaultRetryAfter
	}
	p.logger().Warn("rate limited, retrying once", "wait", wait)
	if err := p.Clock.Sleep(ctx, wait); err != nil {
		return errors.Wrap(err, "wait for rate limit")
	}
	return op()
}

func (p Publish) footer(item domain.Item) string {
	loc := p.Options.Location
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(html.EscapeString(p.Options.PublishedLabel))
	b.WriteString(": ")
	b.WriteString(item.PublishedAt.In(loc).Format(footerTimeLayout))
	b.WriteString("\n<a href=\"")
	b.WriteString(html.EscapeString(item.URL))
	b.WriteString("\">")
	b.WriteString(html.EscapeString(p.Options.SourceLabel))
	b.WriteString("</a>")
	return b.String()
}

func (p Publish) teaser(item domain.Item, doc []byte, pageURL string) string {
	return "<b>" + html.EscapeString(p.title(item, doc)) + "</b>\n\n<a href=\"" +
		html.EscapeString(pageURL) + "\">" + html.EscapeString(p.Options.ArticleLabel) + "</a>"
}

func (p Publish) title(item domain.Item, doc []byte) string {
	if t := markup.Title(doc); t != "" {
		return t
	}
	return item.Title
}

func (p Publish) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
