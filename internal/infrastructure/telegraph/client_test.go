package telegraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/config"
	"NewsRelay/internal/ports"
)

func TestPublishLongCreatesPage(t *testing.T) {
	t.Parallel()

	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/createPage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"path":"Title-01-01","url":"https://telegra.ph/Title-01-01"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(config.TelegraphConfig{AccessToken: "tok", AuthorName: "Desk", BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	url, err := c.PublishLong(context.Background(), "Title", []byte(`[{"tag":"p","children":["hi"]}]`))
	require.NoError(t, err)
	assert.Equal(t, "https://telegra.ph/Title-01-01", url)

	assert.JSONEq(t, `"tok"`, string(got["access_token"]))
	assert.JSONEq(t, `"Title"`, string(got["title"]))
	assert.JSONEq(t, `"Desk"`, string(got["author_name"]))
	assert.JSONEq(t, `[{"tag":"p","children":["hi"]}]`, string(got["content"]))
}

func TestPublishLongFloodWait(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"FLOOD_WAIT_7"}`))
	}))
	defer srv.Close()

	c, err := NewClient(config.TelegraphConfig{AccessToken: "tok", BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	_, err = c.PublishLong(context.Background(), "t", []byte(`[]`))
	var limited *ports.RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 7*time.Second, limited.RetryAfter)
}

func TestPublishLongAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"CONTENT_TOO_BIG"}`))
	}))
	defer srv.Close()

	c, err := NewClient(config.TelegraphConfig{AccessToken: "tok", BaseURL: srv.URL}, nil, nil)
	require.NoError(t, err)

	_, err = c.PublishLong(context.Background(), "t", []byte(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONTENT_TOO_BIG")

	_, err = c.PublishLong(context.Background(), "t", []byte(`not json`))
	assert.Error(t, err)
}

func TestClipTitle(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("я", 300)
	assert.Equal(t, 256, len([]rune(clip(long, maxTitleRunes))))
	assert.Equal(t, "short", clip("short", maxTitleRunes))
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.TelegraphConfig{}, nil, nil)
	assert.Error(t, err)
}
