package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Handler runs one stage's logic against one item.
type Handler interface {
	Handle(ctx context.Context, item domain.Item) domain.Outcome
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, item domain.Item) domain.Outcome

func (f HandlerFunc) Handle(ctx context.Context, item domain.Item) domain.Outcome {
	return f(ctx, item)
}

// RunnerDeps wires a stage to its collaborators.
type RunnerDeps struct {
	Stage     domain.Stage
	Handler   Handler
	Store     ports.StatusStore
	Blobs     ports.BlobStore
	Scheduler ports.Scheduler
	Logger    *slog.Logger
	// KeepSoftPayload stores partial content from soft failures for inspection.
	KeepSoftPayload bool
}

// Runner is the claim/process/advance loop of a single stage.
type Runner struct {
	stage     domain.Stage
	handler   Handler
	store     ports.StatusStore
	blobs     ports.BlobStore
	scheduler ports.Scheduler
	logger    *slog.Logger
	keepSoft  bool
}

// CycleReport summarises one pass over the stage's input statuses.
type CycleReport struct {
	CycleID   string
	Claimed   int
	Advanced  int
	Unchanged int
	Skipped   int
}

type itemResult int

const (
	resultAdvanced itemResult = iota
	resultUnchanged
	resultSkipped
)

// NewRunner validates deps and builds the loop.
func NewRunner(deps RunnerDeps) (*Runner, error) {
	if deps.Handler == nil || deps.Store == nil || deps.Blobs == nil {
		return nil, errors.Newf("stage %s runner needs a handler, a status store and a blob store", deps.Stage.Name)
	}
	if len(deps.Stage.Inputs) == 0 {
		return nil, errors.Wrapf(domain.ErrUnknownStage, "%q", deps.Stage.Name)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		stage:     deps.Stage,
		handler:   deps.Handler,
		store:     deps.Store,
		blobs:     deps.Blobs,
		scheduler: deps.Scheduler,
		logger:    logger.With("stage", string(deps.Stage.Name)),
		keepSoft:  deps.KeepSoftPayload,
	}, nil
}

// Run polls until ctx is cancelled. Item failures never stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.scheduler == nil {
		return errors.Newf("stage %s has no scheduler", r.stage.Name)
	}
	r.logger.Info("stage started", "inputs", r.stage.Inputs)
	err := r.scheduler.Run(ctx, func(ctx context.Context, _ time.Time) {
		if _, cycleErr := r.RunCycle(ctx); cycleErr != nil && ctx.Err() == nil {
			r.logger.Error("cycle failed", "error", cycleErr)
		}
	})
	if errors.Is(err, context.Canceled) {
		r.logger.Info("stage stopped")
		return nil
	}
	return err
}

// RunCycle processes every item currently sitting in an input status,
// oldest first. Cancellation is honoured between items only.
func (r *Runner) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{CycleID: uuid.NewString()}
	logger := r.logger.With("cycle_id", report.CycleID)

	items, err := r.store.List(ctx, r.stage.Inputs)
	if err != nil {
		return report, errors.Wrapf(err, "list %s inputs", r.stage.Name)
	}
	report.Claimed = len(items)
	if len(items) == 0 {
		logger.Debug("nothing to do")
		return report, nil
	}
	logger.Info("cycle started", "items", len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			logger.Info("cycle interrupted", "remaining", report.Claimed-report.Advanced-report.Unchanged-report.Skipped)
			return report, err
		}
		switch r.process(context.WithoutCancel(ctx), item, logger.With("item_id", item.ID)) {
		case resultAdvanced:
			report.Advanced++
		case resultUnchanged:
			report.Unchanged++
		default:
			report.Skipped++
		}
	}

	logger.Info("cycle finished",
		"advanced", report.Advanced,
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
	)
	return report, nil
}

func (r *Runner) process(ctx context.Context, item domain.Item, logger *slog.Logger) itemResult {
	outcome := r.handler.Handle(ctx, item)

	next, err := r.stage.Advance(item.Status, outcome)
	if err != nil {
		logger.Warn("item not advanced", "status", item.Status, "error", err)
		return resultSkipped
	}

	if r.shouldStore(outcome) {
		if err := r.blobs.Put(ctx, item.ID, r.stage.Artifact, outcome.Payload); err != nil {
			logger.Error("artifact write failed", "artifact", r.stage.Artifact, "error", err)
			return resultSkipped
		}
	}

	lastError := ""
	if !outcome.OK() {
		lastError = outcome.Err().Error()
	}
	if !domain.Legal(item.Status, next) {
		logger.Error("refusing illegal transition", "from", item.Status, "to", next)
		return resultSkipped
	}

	if err := r.store.Transition(ctx, item.ID, item.Status, next, lastError); err != nil {
		if errors.Is(err, ports.ErrStaleStatus) || errors.Is(err, ports.ErrNotFound) {
			logger.Warn("item moved concurrently", "from", item.Status, "error", err)
		} else {
			logger.Error("status commit failed", "from", item.Status, "to", next, "error", err)
		}
		return resultSkipped
	}

	attrs := []any{
		"from", item.Status,
		"to", next,
		"outcome", outcome.Kind.String(),
	}
	if outcome.FinishReason != "" {
		attrs = append(attrs, "finish_reason", outcome.FinishReason)
	}
	if next == item.Status {
		logger.Warn("item failed, will retry", append(attrs, "error", lastError)...)
		return resultUnchanged
	}
	if outcome.OK() {
		logger.Info("item advanced", attrs...)
	} else {
		logger.Warn("item advanced on failure", append(attrs, "error", lastError)...)
	}
	return resultAdvanced
}

func (r *Runner) shouldStore(outcome domain.Outcome) bool {
	if len(outcome.Payload) == 0 {
		return false
	}
	switch outcome.Kind {
	case domain.OutcomeSuccess:
		return true
	case domain.OutcomeSoftFailure:
		return r.keepSoft
	}
	return false
}
