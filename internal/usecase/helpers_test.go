package usecase

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/ports"
)

var epoch = time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store *storage.SQLStore
	blobs *storage.BlobStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.New(db, storage.DriverSQLite)
	require.NoError(t, store.Migrate(context.Background()))
	return fixture{store: store, blobs: storage.NewBlobStore(afero.NewMemMapFs(), "/data")}
}

// seed inserts an item in the given status; offset orders items by age.
func (f fixture) seed(t *testing.T, url string, status domain.Status, offset time.Duration) domain.Item {
	t.Helper()
	item := domain.Item{
		ID:          domain.Fingerprint(url),
		Title:       "Title of " + url,
		URL:         url,
		PublishedAt: epoch.Add(offset),
		Status:      status,
	}
	inserted, err := f.store.Insert(context.Background(), item)
	require.NoError(t, err)
	require.True(t, inserted)
	return item
}

func (f fixture) put(t *testing.T, id, artifact, data string) {
	t.Helper()
	require.NoError(t, f.blobs.Put(context.Background(), id, artifact, []byte(data)))
}

func (f fixture) status(t *testing.T, id string) domain.Item {
	t.Helper()
	item, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return item
}

func (f fixture) runner(t *testing.T, stage domain.StageName, handler Handler) *Runner {
	t.Helper()
	def, err := domain.LookupStage(string(stage))
	require.NoError(t, err)
	r, err := NewRunner(RunnerDeps{
		Stage:           def,
		Handler:         handler,
		Store:           f.store,
		Blobs:           f.blobs,
		Logger:          quietLogger(),
		KeepSoftPayload: stage == domain.StageRewrite,
	})
	require.NoError(t, err)
	return r
}

type scriptedGenerator struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
	requests []ports.GenerateRequest
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(_ context.Context, req ports.GenerateRequest) domain.Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.outcomes) == 0 {
		return domain.HardFailure(nil)
	}
	next := g.outcomes[0]
	g.outcomes = g.outcomes[1:]
	return next
}

type shortCall struct {
	text  string
	image []byte
}

type fakeShort struct {
	errs  []error
	calls []shortCall
}

func (s *fakeShort) PublishShort(_ context.Context, richText string, image []byte) error {
	s.calls = append(s.calls, shortCall{text: richText, image: image})
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

type longCall struct {
	title   string
	content []byte
}

type fakeLong struct {
	url   string
	err   error
	calls []longCall
}

func (l *fakeLong) PublishLong(_ context.Context, title string, content []byte) (string, error) {
	l.calls = append(l.calls, longCall{title: title, content: content})
	return l.url, l.err
}

type fakeFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.body, f.err
}
