// Package telegraph publishes long articles as Telegraph pages.
package telegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/config"
	"NewsRelay/internal/ports"
)

const (
	maxTitleRunes  = 256
	maxAuthorRunes = 128
	floodPrefix    = "FLOOD_WAIT_"
)

// Client calls the createPage method.
type Client struct {
	accessToken string
	authorName  string
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
}

var _ ports.LongPublisher = (*Client)(nil)

type createPageRequest struct {
	AccessToken   string          `json:"access_token"`
	Title         string          `json:"title"`
	AuthorName    string          `json:"author_name,omitempty"`
	Content       json.RawMessage `json:"content"`
	ReturnContent bool            `json:"return_content"`
}

type createPageResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Result struct {
		URL  string `json:"url"`
		Path string `json:"path"`
	} `json:"result"`
}

// NewClient validates the access token and fills defaults.
func NewClient(cfg config.TelegraphConfig, client *http.Client, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("telegraph client misconfigured: access token is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.telegra.ph"
	}
	return &Client{
		accessToken: cfg.AccessToken,
		authorName:  clip(cfg.AuthorName, maxAuthorRunes),
		baseURL:     base,
		client:      client,
		logger:      logger.With("component", "telegraph"),
	}, nil
}

// PublishLong creates a page from an encoded node array and returns its URL.
func (c *Client) PublishLong(ctx context.Context, title string, content []byte) (string, error) {
	title = clip(strings.TrimSpace(title), maxTitleRunes)
	if title == "" {
		title = "Untitled"
	}
	if !json.Valid(content) {
		return "", errors.New("telegraph content is not valid JSON")
	}

	payload, err := json.Marshal(createPageRequest{
		AccessToken: c.accessToken,
		Title:       title,
		AuthorName:  c.authorName,
		Content:     content,
	})
	if err != nil {
		return "", errors.Wrap(err, "encode page")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createPage", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "new createPage request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "createPage request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read createPage response")
	}

	var parsed createPageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrapf(err, "parse createPage response (%d)", resp.StatusCode)
	}
	if !parsed.OK {
		if wait, ok := floodWait(parsed.Error); ok {
			return "", &ports.RateLimitedError{RetryAfter: wait}
		}
		return "", errors.Newf("telegraph createPage failed: %s", parsed.Error)
	}
	if parsed.Result.URL == "" {
		return "", errors.New("telegraph createPage returned no url")
	}

	c.logger.Info("page created", "path", parsed.Result.Path, "bytes", len(content))
	return parsed.Result.URL, nil
}

func floodWait(apiErr string) (time.Duration, bool) {
	if !strings.HasPrefix(apiErr, floodPrefix) {
		return 0, false
	}
	secs, err := strconv.Atoi(strings.TrimPrefix(apiErr, floodPrefix))
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
