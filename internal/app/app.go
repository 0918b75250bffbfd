package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/ai"
	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/infrastructure/lock"
	"NewsRelay/internal/infrastructure/scheduler"
	"NewsRelay/internal/infrastructure/storage"
	"NewsRelay/internal/infrastructure/telegram"
	"NewsRelay/internal/infrastructure/telegraph"
	"NewsRelay/internal/infrastructure/web"
	"NewsRelay/internal/logging"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *ai.Registry
	clock    ports.Clock
}

// New builds an application; a nil logger is derived from cfg.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		registry: ai.DefaultRegistry(),
		clock:    scheduler.SystemClock{},
	}
}

// RunStage runs one pipeline stage until ctx is cancelled. Only startup
// problems are returned: bad config, a held lock, an unreachable database.
func (a *Application) RunStage(ctx context.Context, name string) error {
	stage, err := domain.LookupStage(name)
	if err != nil {
		return err
	}
	if err := a.cfg.Validate(stage.Name); err != nil {
		return err
	}

	stageLock, err := lock.Acquire(a.cfg.Storage.DataDir, string(stage.Name))
	if err != nil {
		return err
	}
	defer func() {
		if relErr := stageLock.Release(); relErr != nil {
			a.logger.Warn("release stage lock", "error", relErr)
		}
	}()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := storage.NewDiskBlobStore(a.cfg.Storage.DataDir)
	if err != nil {
		return err
	}

	logger := a.logger.With("component", "runner")
	handler, keepSoft, err := a.handler(stage, blobs, logger)
	if err != nil {
		return err
	}

	runner, err := usecase.NewRunner(usecase.RunnerDeps{
		Stage:           stage,
		Handler:         handler,
		Store:           store,
		Blobs:           blobs,
		Scheduler:       scheduler.NewTicker(a.cfg.Stages.For(stage.Name).Interval, a.clock),
		Logger:          logger,
		KeepSoftPayload: keepSoft,
	})
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

func (a *Application) handler(stage domain.Stage, blobs ports.BlobStore, logger *slog.Logger) (usecase.Handler, bool, error) {
	switch stage.Name {
	case domain.StageDownload:
		return usecase.Download{Fetcher: web.NewFetcher(nil, a.cfg.Fetch)}, false, nil
	case domain.StageScrape:
		return usecase.Scrape{Blobs: blobs, Extractor: web.Extractor{}}, false, nil
	case domain.StageTranslate:
		h, err := a.generate(stage.Name, ports.KindText, "scraper", blobs)
		return h, false, err
	case domain.StageRewrite:
		h, err := a.generate(stage.Name, ports.KindText, "translator", blobs)
		return h, true, err
	case domain.StageIllustrate:
		h, err := a.generate(stage.Name, ports.KindImage, "rewriter", blobs)
		return h, false, err
	case domain.StagePublish:
		h, err := a.publish(blobs, logger)
		return h, false, err
	}
	return nil, false, errors.Wrapf(domain.ErrUnknownStage, "%q", stage.Name)
}

func (a *Application) generate(name domain.StageName, kind ports.RequestKind, input string, blobs ports.BlobStore) (usecase.Handler, error) {
	provider, _ := a.cfg.Providers.For(name)
	gen, err := a.registry.Build(provider, kind, a.logger.With("component", "ai"))
	if err != nil {
		return nil, errors.Wrapf(err, "stage %s", name)
	}
	a.logger.Info("provider selected", "stage", name, "provider", gen.Name(), "model", provider.Model)
	return usecase.Generate{
		Blobs:     blobs,
		Generator: gen,
		Prompt:    provider.Prompt,
		Kind:      kind,
		Input:     input,
	}, nil
}

func (a *Application) publish(blobs ports.BlobStore, logger *slog.Logger) (usecase.Handler, error) {
	short, err := telegram.NewPublisher(a.cfg.Telegram, nil, a.logger)
	if err != nil {
		return nil, err
	}

	var long ports.LongPublisher
	if a.cfg.Telegraph.AccessToken != "" {
		client, err := telegraph.NewClient(a.cfg.Telegraph, nil, a.logger)
		if err != nil {
			return nil, err
		}
		long = client
	} else {
		a.logger.Warn("telegraph token not set, over-long articles will fail to publish")
	}

	return usecase.Publish{
		Blobs:  blobs,
		Short:  short,
		Long:   long,
		Clock:  a.clock,
		Logger: logger.With("stage", string(domain.StagePublish)),
		Options: usecase.PublishOptions{
			PublishedLabel: a.cfg.Publish.PublishedLabel,
			SourceLabel:    a.cfg.Publish.SourceLabel,
			ArticleLabel:   a.cfg.Publish.ArticleLabel,
			Location:       a.cfg.Publish.Location(),
			MessageLimit:   a.cfg.Telegram.MessageLimit,
		},
	}, nil
}

// Operator opens the store for a manual command. The caller closes it.
func (a *Application) Operator(ctx context.Context) (*usecase.Operator, func() error, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return usecase.NewOperator(store, a.clock, a.logger), store.Close, nil
}

// Migrate creates the schema and exits.
func (a *Application) Migrate(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	a.logger.Info("schema ready", "driver", a.cfg.Database.Driver)
	return nil
}

func (a *Application) openStore(ctx context.Context) (*storage.SQLStore, error) {
	// The default SQLite file lives inside the data directory.
	if err := os.MkdirAll(a.cfg.Storage.DataDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", a.cfg.Storage.DataDir)
	}
	return storage.Open(ctx, a.cfg.Database)
}
