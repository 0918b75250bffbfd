package web

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/config"
	"NewsRelay/internal/ports"
)

const maxBodyBytes = 16 << 20

// ErrTooLarge means the source page exceeds the body size limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Fetcher downloads source pages.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; a nil client gets the configured timeout.
func NewFetcher(client *http.Client, cfg config.FetchConfig) *Fetcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	agent := strings.TrimSpace(cfg.UserAgent)
	if agent == "" {
		agent = "NewsRelay/1.0"
	}
	return &Fetcher{client: client, userAgent: agent, maxBytes: maxBodyBytes}
}

// Fetch returns the raw body; any non-2xx status is an error.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request document")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("source returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}
	if int64(len(body)) > f.maxBytes {
		return nil, errors.Wrapf(ErrTooLarge, "more than %d bytes", f.maxBytes)
	}
	return body, nil
}
