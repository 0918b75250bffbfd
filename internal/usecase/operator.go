package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// ErrNotRequeueable is reported for items outside the *_error statuses.
var ErrNotRequeueable = errors.New("item is not in an error status")

// Operator implements the manual commands: enqueue, requeue and status.
type Operator struct {
	store  ports.StatusStore
	clock  ports.Clock
	logger *slog.Logger
}

// StatusCount is one row of the status overview.
type StatusCount struct {
	Status domain.Status
	Count  int
}

// RequeueResult reports what happened to a single id.
type RequeueResult struct {
	ID   string
	From domain.Status
	To   domain.Status
	Err  error
}

// NewOperator wires the store; clock stamps enqueued items without a date.
func NewOperator(store ports.StatusStore, clock ports.Clock, logger *slog.Logger) *Operator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Operator{store: store, clock: clock, logger: logger.With("component", "operator")}
}

// Enqueue inserts a new item keyed by the fingerprint of its URL. The bool
// is false when the item already existed.
func (o *Operator) Enqueue(ctx context.Context, rawURL, title string, publishedAt time.Time) (domain.Item, bool, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return domain.Item{}, false, errors.Newf("invalid source url %q", rawURL)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Item{}, false, errors.New("title is required")
	}
	if publishedAt.IsZero() {
		publishedAt = o.clock.Now()
	}

	item := domain.Item{
		ID:          domain.Fingerprint(rawURL),
		Title:       title,
		URL:         rawURL,
		PublishedAt: publishedAt,
		Status:      domain.StatusNew,
	}
	inserted, err := o.store.Insert(ctx, item)
	if err != nil {
		return item, false, errors.Wrap(err, "enqueue")
	}
	o.logger.Info("enqueue", "item_id", item.ID, "inserted", inserted)
	return item, inserted, nil
}

// Requeue moves each item from its error status back into its stage.
// Per-id failures are reported in the results, not as the returned error.
func (o *Operator) Requeue(ctx context.Context, ids []string) ([]RequeueResult, error) {
	results := make([]RequeueResult, 0, len(ids))
	for _, id := range ids {
		item, err := o.store.Get(ctx, id)
		if err != nil {
			results = append(results, RequeueResult{ID: id, Err: err})
			continue
		}
		results = append(results, o.requeue(ctx, item))
	}
	return results, nil
}

// RequeueAllErrors requeues every item currently in an error status.
func (o *Operator) RequeueAllErrors(ctx context.Context) ([]RequeueResult, error) {
	items, err := o.store.List(ctx, domain.ErrorStatuses())
	if err != nil {
		return nil, errors.Wrap(err, "list failed items")
	}
	results := make([]RequeueResult, 0, len(items))
	for _, item := range items {
		results = append(results, o.requeue(ctx, item))
	}
	return results, nil
}

func (o *Operator) requeue(ctx context.Context, item domain.Item) RequeueResult {
	res := RequeueResult{ID: item.ID, From: item.Status}
	target, ok := domain.RequeueTarget(item.Status)
	if !ok {
		res.Err = errors.Wrapf(ErrNotRequeueable, "status %s", item.Status)
		return res
	}
	if err := o.store.Transition(ctx, item.ID, item.Status, target, ""); err != nil {
		res.Err = err
		return res
	}
	res.To = target
	o.logger.Info("requeue", "item_id", item.ID, "from", item.Status, "to", target)
	return res
}

// Counts lists every status in graph order, zeros included.
func (o *Operator) Counts(ctx context.Context) ([]StatusCount, error) {
	counts, err := o.store.Counts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "count items")
	}
	out := make([]StatusCount, 0, len(counts))
	for _, status := range domain.AllStatuses() {
		out = append(out, StatusCount{Status: status, Count: counts[status]})
	}
	return out, nil
}
