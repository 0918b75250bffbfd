package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/domain"
)

var (
	// ErrNotFound is returned by stores when the record or blob is absent.
	ErrNotFound = errors.New("not found")
	// ErrStaleStatus means a compare-and-set lost against another writer.
	ErrStaleStatus = errors.New("status changed concurrently")
)

// StatusStore persists items and their routing status.
type StatusStore interface {
	List(ctx context.Context, statuses []domain.Status) ([]domain.Item, error)
	Get(ctx context.Context, id string) (domain.Item, error)
	Insert(ctx context.Context, item domain.Item) (bool, error)
	Transition(ctx context.Context, id string, from, to domain.Status, lastError string) error
	Counts(ctx context.Context) (map[domain.Status]int, error)
}

// BlobStore keeps stage artifacts keyed by item id and artifact name.
type BlobStore interface {
	Get(ctx context.Context, id, artifact string) ([]byte, error)
	Put(ctx context.Context, id, artifact string, data []byte) error
}

// RequestKind selects text or image generation.
type RequestKind int

const (
	KindText RequestKind = iota
	KindImage
)

// GenerateRequest is the provider-agnostic input to a model call.
type GenerateRequest struct {
	Kind         RequestKind
	SystemPrompt string
	UserContent  string
}

// Generator is implemented by every AI backend.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) domain.Outcome
}

// Fetcher downloads raw source documents.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor pulls the readable article out of a raw page.
type Extractor interface {
	Extract(ctx context.Context, raw []byte, pageURL string) (title, content string, err error)
}

// ShortPublisher posts rich text (and an optional photo) to a chat.
type ShortPublisher interface {
	PublishShort(ctx context.Context, richText string, image []byte) error
}

// LongPublisher creates a long-form page and returns its URL.
type LongPublisher interface {
	PublishLong(ctx context.Context, title string, content []byte) (string, error)
}

// RateLimitedError is returned by publishers when the remote side throttles.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Clock abstracts time for pollers and delayed retries.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
	After(d time.Duration) <-chan time.Time
}

// Scheduler drives a periodic job until ctx is done.
type Scheduler interface {
	Run(ctx context.Context, job func(context.Context, time.Time)) error
}
