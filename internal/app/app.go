// Package app initializes and holds long-lived application services.
package app

import (
	"context"
	"fmt"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/brandscan/brandscan/internal/brand"
	"github.com/brandscan/brandscan/internal/config"
	"github.com/brandscan/brandscan/internal/content"
	contentgcs "github.com/brandscan/brandscan/internal/content/gcs"
	contentmem "github.com/brandscan/brandscan/internal/content/memory"
	"github.com/brandscan/brandscan/internal/metrics"
	"github.com/brandscan/brandscan/internal/pipeline"
	"github.com/brandscan/brandscan/internal/publisher"
	pubgcp "github.com/brandscan/brandscan/internal/publisher/pubsub"
	"github.com/brandscan/brandscan/internal/scrape"
	"github.com/brandscan/brandscan/internal/search"
	storemem "github.com/brandscan/brandscan/internal/store/memory"
	storepg "github.com/brandscan/brandscan/internal/store/postgres"
	"github.com/brandscan/brandscan/internal/sweeper"
	"github.com/brandscan/brandscan/internal/webhook"
)

// App is the dependency container built once at startup and torn down by
// Close. Initialization fails fast if any critical service cannot connect.
type App struct {
	Logger       *zap.Logger
	Store        brand.Store
	Adapter      *content.Adapter
	Scrape       scrape.Client
	Search       search.Syncer
	Publisher    publisher.Publisher
	Orchestrator *pipeline.Orchestrator
	Processor    *webhook.Processor
	Sweeper      *sweeper.Sweeper
	Config       config.Config

	pubsubCloser interface{ Close() error }
}

// New wires every service from configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	objects, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	adapter := content.NewAdapter(objects, logger)

	scrapeClient, err := scrape.NewHTTPClient(scrape.HTTPConfig{
		BaseURL: cfg.Scrape.BaseURL,
		APIKey:  cfg.Scrape.APIKey,
		Timeout: cfg.ScrapeTimeout(),
	}, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize scrape client: %w", err)
	}

	var syncer search.Syncer = search.NoopSyncer{}
	if cfg.Search.Enabled {
		syncer = search.NewHTTPSyncer(search.Config{
			BaseURL:   cfg.Search.BaseURL,
			AccountID: cfg.Search.AccountID,
			Instance:  cfg.Search.Instance,
			APIToken:  cfg.Search.APIToken,
			Timeout:   cfg.SearchTimeout(),
		})
		logger.Info("search sync enabled", zap.String("instance", cfg.Search.Instance))
	}

	a := &App{
		Logger:  logger,
		Store:   store,
		Adapter: adapter,
		Scrape:  scrapeClient,
		Search:  syncer,
		Config:  cfg,
	}

	switch cfg.PubSub.Provider {
	case "pubsub":
		client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("initialize pubsub: %w", err)
		}
		pub := pubgcp.New(client)
		a.Publisher = pub
		a.pubsubCloser = pub
		logger.Info("pubsub publisher enabled", zap.String("project", cfg.PubSub.ProjectID))
	case "noop":
		a.Publisher = publisher.Noop{}
	default:
		store.Close()
		return nil, fmt.Errorf("unknown pubsub.provider: %s", cfg.PubSub.Provider)
	}

	a.Orchestrator = pipeline.New(store, scrapeClient, pipeline.Config{
		WebhookURL: cfg.Scrape.WebhookURL,
		MapLimit:   cfg.Scrape.MapLimit,
	}, logger)

	a.Processor = webhook.New(store, adapter, cfg.Scrape.WebhookSecret, logger)

	a.Sweeper = sweeper.New(store, scrapeClient, syncer, a.Publisher, sweeper.Config{
		Interval:       cfg.SweepInterval(),
		ExtractBatch:   cfg.Sweeper.ExtractBatch,
		FinalizeBatch:  cfg.Sweeper.FinalizeBatch,
		CompletedTopic: cfg.Sweeper.CompletedTopic,
	}, logger)

	logger.Info("application services initialized",
		zap.String("db_provider", cfg.DB.Provider),
		zap.String("storage_provider", cfg.Storage.Provider),
		zap.String("pubsub_provider", cfg.PubSub.Provider),
	)
	return a, nil
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (brand.Store, error) {
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		store, err := storepg.New(ctx, storepg.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxConns),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		return store, nil
	case "memory":
		logger.Info("using in-memory brand store; state is not persisted")
		return storemem.NewBrandStore(), nil
	default:
		return nil, fmt.Errorf("unknown db.provider: %s", cfg.DB.Provider)
	}
}

func newObjectStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (content.ObjectStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize gcs client: %w", err)
		}
		logger.Info("using gcs content store", zap.String("bucket", cfg.Storage.GCSBucket))
		return contentgcs.New(client, contentgcs.Config{Bucket: cfg.Storage.GCSBucket})
	case "memory":
		logger.Info("using in-memory content store; objects are not persisted")
		return contentmem.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage.provider: %s", cfg.Storage.Provider)
	}
}

// Close shuts down every held service and flushes the logger.
func (a *App) Close() {
	a.Logger.Info("shutting down application services")
	a.Store.Close()
	if a.pubsubCloser != nil {
		if err := a.pubsubCloser.Close(); err != nil {
			a.Logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
