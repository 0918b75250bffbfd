package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/infrastructure/scheduler"
	"NewsRelay/internal/ports"
)

func newOperator(f fixture) *Operator {
	return NewOperator(f.store, scheduler.NewManualClock(epoch), quietLogger())
}

func TestEnqueueIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	op := newOperator(f)

	item, inserted, err := op.Enqueue(ctx, " https://n.test/a ", "Headline", time.Time{})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, domain.Fingerprint("https://n.test/a"), item.ID)

	stored := f.status(t, item.ID)
	assert.Equal(t, domain.StatusNew, stored.Status)
	assert.Equal(t, epoch.UnixMilli(), stored.PublishedAt.UnixMilli())

	_, inserted, err = op.Enqueue(ctx, "https://n.test/a", "Other", epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "Headline", f.status(t, item.ID).Title)
}

func TestEnqueueValidates(t *testing.T) {
	t.Parallel()
	op := newOperator(newFixture(t))

	_, _, err := op.Enqueue(context.Background(), "ftp://n.test/a", "t", time.Time{})
	assert.Error(t, err)
	_, _, err = op.Enqueue(context.Background(), "https://n.test/a", "  ", time.Time{})
	assert.Error(t, err)
}

func TestRequeueMovesErrorsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	op := newOperator(f)

	rw := f.seed(t, "https://n.test/rw", domain.StatusRewriterError, 0)
	il := f.seed(t, "https://n.test/il", domain.StatusIllustratorError, time.Minute)
	pb := f.seed(t, "https://n.test/pb", domain.StatusPublishError, 2*time.Minute)
	ok := f.seed(t, "https://n.test/ok", domain.StatusPublished, 3*time.Minute)

	results, err := op.Requeue(ctx, []string{rw.ID, ok.ID, "nope"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, domain.StatusTranslated, results[0].To)
	assert.True(t, errors.Is(results[1].Err, ErrNotRequeueable))
	assert.True(t, errors.Is(results[2].Err, ports.ErrNotFound))

	results, err = op.RequeueAllErrors(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, domain.StatusTranslated, f.status(t, rw.ID).Status)
	assert.Equal(t, domain.StatusRewriter, f.status(t, il.ID).Status)
	assert.Equal(t, domain.StatusIllustrator, f.status(t, pb.ID).Status)
	assert.Equal(t, domain.StatusPublished, f.status(t, ok.ID).Status)
}

func TestCountsListsEveryStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "https://n.test/1", domain.StatusNew, 0)
	f.seed(t, "https://n.test/2", domain.StatusNew, 0)
	f.seed(t, "https://n.test/3", domain.StatusPublishError, 0)

	counts, err := newOperator(f).Counts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, len(domain.AllStatuses()))
	assert.Equal(t, StatusCount{Status: domain.StatusNew, Count: 2}, counts[0])

	byStatus := map[domain.Status]int{}
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	assert.Equal(t, 1, byStatus[domain.StatusPublishError])
	assert.Zero(t, byStatus[domain.StatusPublished])
}
