package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Item is a single news entry travelling through the pipeline.
type Item struct {
	ID          string
	Title       string
	URL         string
	PublishedAt time.Time
	Status      Status
	LastError   string
}

// Status is the only routing field of an item.
type Status string

const (
	StatusNew        Status = "new"
	StatusDownloaded Status = "downloaded"
	StatusScraped    Status = "scraped"
	StatusTranslated Status = "translated"

	StatusRewriter      Status = "rewriter"
	StatusRewriterRetry Status = "rewriter_retry"
	StatusRewriterError Status = "rewriter_error"

	StatusIllustrator      Status = "illustrator"
	StatusIllustratorRetry Status = "illustrator_retry"
	StatusIllustratorError Status = "illustrator_error"

	StatusPublished    Status = "published"
	StatusPublishError Status = "publish_error"
)

// AllStatuses lists every status in graph order.
func AllStatuses() []Status {
	return []Status{
		StatusNew,
		StatusDownloaded,
		StatusScraped,
		StatusTranslated,
		StatusRewriter,
		StatusRewriterRetry,
		StatusRewriterError,
		StatusIllustrator,
		StatusIllustratorRetry,
		StatusIllustratorError,
		StatusPublished,
		StatusPublishError,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no stage consumes s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRewriterError, StatusIllustratorError, StatusPublished, StatusPublishError:
		return true
	}
	return false
}

// Fingerprint derives the immutable item id from its source URL.
func Fingerprint(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
