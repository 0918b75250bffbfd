package telegram

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"NewsRelay/internal/config"
	"NewsRelay/internal/ports"
)

// DefaultRetryAfter applies when a 429 carries no retry_after hint.
const DefaultRetryAfter = 60 * time.Second

// Publisher posts a photo followed by an HTML message through the Bot API.
type Publisher struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu sync.Mutex
	// photos delivered whose message has not gone out yet, keyed by post.
	pendingPhotos map[[sha256.Size]byte]struct{}
}

var _ ports.ShortPublisher = (*Publisher)(nil)

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// NewPublisher registers bot token and chat identifier.
func NewPublisher(cfg config.TelegramConfig, client *http.Client, logger *slog.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.BotToken) == "" || strings.TrimSpace(cfg.ChatID) == "" {
		return nil, errors.New("telegram publisher misconfigured: bot token and chat id are required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.telegram.org"
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Publisher{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		baseURL:  base,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With("component", "telegram"),

		pendingPhotos: map[[sha256.Size]byte]struct{}{},
	}, nil
}

// PublishShort sends the photo without a caption, then the message itself.
// A repeated call for the same post after the message failed resumes at the
// message, so the photo is delivered once.
func (p *Publisher) PublishShort(ctx context.Context, richText string, image []byte) error {
	key := postKey(richText, image)
	if len(image) > 0 && !p.photoPending(key) {
		if err := p.sendPhoto(ctx, image); err != nil {
			return err
		}
		p.setPhotoPending(key, true)
	}
	if err := p.sendMessage(ctx, richText); err != nil {
		return err
	}
	p.setPhotoPending(key, false)
	return nil
}

func (p *Publisher) photoPending(key [sha256.Size]byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pendingPhotos[key]
	return ok
}

func (p *Publisher) setPhotoPending(key [sha256.Size]byte, pending bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pending {
		p.pendingPhotos[key] = struct{}{}
		return
	}
	delete(p.pendingPhotos, key)
}

func postKey(richText string, image []byte) [sha256.Size]byte {
	h := sha256.New()
	_, _ = h.Write(image)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(richText))
	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))
	return key
}

func (p *Publisher) sendPhoto(ctx context.Context, image []byte) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("chat_id", p.chatID); err != nil {
		return errors.Wrap(err, "build photo form")
	}
	part, err := form.CreateFormFile("photo", "image.png")
	if err != nil {
		return errors.Wrap(err, "build photo form")
	}
	if _, err := part.Write(image); err != nil {
		return errors.Wrap(err, "build photo form")
	}
	if err := form.Close(); err != nil {
		return errors.Wrap(err, "build photo form")
	}

	return p.call(ctx, "sendPhoto", form.FormDataContentType(), &body)
}

func (p *Publisher) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                p.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	return p.call(ctx, "sendMessage", "application/json", bytes.NewReader(payload))
}

func (p *Publisher) call(ctx context.Context, method, contentType string, body io.Reader) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "%s pacing", method)
	}

	endpoint := p.baseURL + "/bot" + p.botToken + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return errors.Wrapf(err, "new %s request", method)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		// The token is part of the URL; never surface it.
		return errors.Newf("%s request failed: %s", method, redact(err.Error(), p.botToken))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s response", method)
	}

	var parsed apiResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode == http.StatusTooManyRequests || parsed.ErrorCode == http.StatusTooManyRequests {
		wait := DefaultRetryAfter
		if parsed.Parameters.RetryAfter > 0 {
			wait = time.Duration(parsed.Parameters.RetryAfter) * time.Second
		}
		p.logger.Warn("rate limited", "method", method, "retry_after", wait)
		return &ports.RateLimitedError{RetryAfter: wait}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !parsed.OK {
		desc := parsed.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return errors.Newf("telegram %s failed (%d): %s", method, resp.StatusCode, desc)
	}

	p.logger.Debug("telegram call ok", "method", method)
	return nil
}

func redact(msg, secret string) string {
	if secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, secret, "<token>")
}
