package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/infrastructure/web"
	"NewsRelay/internal/ports"
)

func TestDownloadStoresBody(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	item := f.seed(t, "https://n.test/page", domain.StatusNew, 0)

	fetcher := &fakeFetcher{body: []byte("<html>raw</html>")}
	_, err := f.runner(t, domain.StageDownload, Download{Fetcher: fetcher}).RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://n.test/page"}, fetcher.urls)
	assert.Equal(t, domain.StatusDownloaded, f.status(t, item.ID).Status)
	data, err := f.blobs.Get(ctx, item.ID, "news")
	require.NoError(t, err)
	assert.Equal(t, "<html>raw</html>", string(data))
}

func TestDownloadEmptyBodyFails(t *testing.T) {
	t.Parallel()

	out := Download{Fetcher: &fakeFetcher{}}.Handle(context.Background(), domain.Item{URL: "https://n.test/e"})
	assert.Equal(t, domain.OutcomeHardFailure, out.Kind)
}

func TestScrapeWrapsArticle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	item := f.seed(t, "https://n.test/scrape", domain.StatusDownloaded, 0)
	f.put(t, item.ID, "news", `<html><head><title>Q3 &amp; Outlook</title></head>
<body><nav>menu</nav><article><p>Revenue grew.</p></article></body></html>`)

	_, err := f.runner(t, domain.StageScrape, Scrape{Blobs: f.blobs, Extractor: web.Extractor{}}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScraped, f.status(t, item.ID).Status)

	data, err := f.blobs.Get(ctx, item.ID, "scraper")
	require.NoError(t, err)
	doc := string(data)
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, `<meta charset="UTF-8">`)
	assert.Contains(t, doc, "<h1>Q3 &amp; Outlook</h1>")
	assert.Contains(t, doc, "<p>Revenue grew.</p>")
	assert.NotContains(t, doc, "menu")
}

func TestScrapeWithoutDownloadFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out := Scrape{Blobs: f.blobs, Extractor: web.Extractor{}}.Handle(context.Background(), domain.Item{ID: "missing"})
	assert.Equal(t, domain.OutcomeHardFailure, out.Kind)
	assert.True(t, errors.Is(out.Cause, ports.ErrNotFound))
}

func TestScrapeFallsBackToItemTitle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.put(t, "id1", "news", `<html><body><div>Body only.</div></body></html>`)

	out := Scrape{Blobs: f.blobs, Extractor: web.Extractor{}}.Handle(context.Background(),
		domain.Item{ID: "id1", Title: "Feed Title"})
	require.True(t, out.OK())
	assert.Contains(t, string(out.Payload), "<h1>Feed Title</h1>")
}

func TestIllustrateKeepsOnlyValidImages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	item := f.seed(t, "https://n.test/img", domain.StatusRewriter, 0)
	f.put(t, item.ID, "rewriter", "<html>article</html>")

	gen := &scriptedGenerator{outcomes: []domain.Outcome{domain.SoftFailure(nil, "error")}}
	handler := Generate{Blobs: f.blobs, Generator: gen, Prompt: "draw", Kind: ports.KindImage, Input: "rewriter"}
	_, err := f.runner(t, domain.StageIllustrate, handler).RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusIllustratorRetry, f.status(t, item.ID).Status)
	_, err = f.blobs.Get(ctx, item.ID, "illustrator")
	assert.True(t, errors.Is(err, ports.ErrNotFound))

	require.Len(t, gen.requests, 1)
	assert.Equal(t, ports.KindImage, gen.requests[0].Kind)
	assert.Equal(t, "<html>article</html>", gen.requests[0].UserContent)
}
