// Package sweeper reconciles pipeline state the webhooks cannot: it polls
// extract jobs to completion and finalizes brands whose content is in
// place. Every pass is idempotent; eligibility predicates live in the
// store queries.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brandscan/brandscan/internal/brand"
	"github.com/brandscan/brandscan/internal/metrics"
	"github.com/brandscan/brandscan/internal/publisher"
	"github.com/brandscan/brandscan/internal/scrape"
	"github.com/brandscan/brandscan/internal/search"
)

// Config controls sweep cadence and batch sizes.
type Config struct {
	// Interval between passes when running continuously.
	Interval time.Duration
	// ExtractBatch bounds brands polled per extract pass.
	ExtractBatch int
	// FinalizeBatch bounds brands finalized per pass.
	FinalizeBatch int
	// CompletedTopic names the topic lifecycle events publish to.
	CompletedTopic string
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.ExtractBatch <= 0 {
		c.ExtractBatch = 10
	}
	if c.FinalizeBatch <= 0 {
		c.FinalizeBatch = 5
	}
	if c.CompletedTopic == "" {
		c.CompletedTopic = "brand.completed"
	}
}

// Stats summarizes one full sweep.
type Stats struct {
	ExtractsChecked   int
	ExtractsCompleted int
	ExtractsFailed    int
	Finalized         int
	Errors            int
}

// Sweeper runs the reconciliation passes.
type Sweeper struct {
	store   brand.Store
	scrape  scrape.Client
	search  search.Syncer
	pub     publisher.Publisher
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Sweeper.
func New(store brand.Store, scrapeClient scrape.Client, syncer search.Syncer, pub publisher.Publisher, cfg Config, logger *zap.Logger) *Sweeper {
	cfg.applyDefaults()
	return &Sweeper{
		store:  store,
		scrape: scrapeClient,
		search: syncer,
		pub:    pub,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run sweeps on a ticker until the context is cancelled. At most one sweep
// executes at a time; a pass that overruns the interval delays the next.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("sweeper running", zap.Duration("interval", s.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			stats := s.RunOnce(ctx)
			if stats.ExtractsChecked > 0 || stats.Finalized > 0 || stats.Errors > 0 {
				s.logger.Info("sweep finished",
					zap.Int("extracts_checked", stats.ExtractsChecked),
					zap.Int("extracts_completed", stats.ExtractsCompleted),
					zap.Int("extracts_failed", stats.ExtractsFailed),
					zap.Int("finalized", stats.Finalized),
					zap.Int("errors", stats.Errors),
				)
			}
		}
	}
}

// RunOnce performs one extract pass followed by one finalize pass. Per-brand
// failures are isolated: they are counted and logged, never aborting the
// batch.
func (s *Sweeper) RunOnce(ctx context.Context) Stats {
	var stats Stats
	s.sweepExtracts(ctx, &stats)
	s.sweepFinalizable(ctx, &stats)
	return stats
}

func (s *Sweeper) sweepExtracts(ctx context.Context, stats *Stats) {
	start := s.now()
	outcome := "ok"
	defer func() {
		metrics.ObserveSweep("extract", outcome, s.now().Sub(start))
	}()

	brands, err := s.store.ListPendingExtract(ctx, s.cfg.ExtractBatch)
	if err != nil {
		s.logger.Error("pending-extract listing failed", zap.Error(err))
		stats.Errors++
		outcome = "error"
		return
	}

	for _, b := range brands {
		stats.ExtractsChecked++
		if err := s.checkExtract(ctx, b); err != nil {
			s.logger.Error("extract check failed",
				zap.String("brand_id", b.ID),
				zap.String("job_id", b.Metadata.ExtractJobID),
				zap.Error(err),
			)
			stats.Errors++
			outcome = "partial"
			continue
		}
		// Re-read to count terminal transitions without plumbing them back.
		switch cur, err := s.store.GetBrandByID(ctx, b.ID); {
		case err != nil:
		case cur.DiscoveryStatus == brand.StatusMapped:
			stats.ExtractsCompleted++
		case cur.DiscoveryStatus == brand.StatusFailed:
			stats.ExtractsFailed++
		}
	}
}

// checkExtract polls one extract job and applies its terminal state. Jobs
// still processing are skipped; cancelled jobs are left alone so a later
// re-discovery can restart them.
func (s *Sweeper) checkExtract(ctx context.Context, b brand.Brand) error {
	result, err := s.scrape.ExtractStatus(ctx, b.Metadata.ExtractJobID)
	if err != nil {
		return err
	}

	switch result.Status {
	case scrape.StatusCompleted:
		return s.applyExtract(ctx, b, result.Data)
	case scrape.StatusFailed:
		errMsg := result.Error
		if errMsg == "" {
			errMsg = "extract job failed"
		}
		failedAt := s.now().UTC()
		failed := brand.StatusFailed
		_, err := s.store.UpdateBrand(ctx, b.ID, brand.Update{
			Status: &failed,
			MetadataPatch: &brand.Metadata{
				Error:    errMsg,
				FailedAt: &failedAt,
			},
		})
		return err
	case scrape.StatusCancelled:
		s.logger.Info("extract job cancelled, leaving brand untouched",
			zap.String("brand_id", b.ID),
		)
		return nil
	default:
		return nil
	}
}

// applyExtract promotes a brand with its extracted identity. Missing fields
// fall back to placeholders so the record is always presentable.
func (s *Sweeper) applyExtract(ctx context.Context, b brand.Brand, data scrape.ExtractData) error {
	name := data.CompanyName
	if name == "" {
		name = brand.PlaceholderName(b.PrimaryDomain)
	}
	industry := data.Industry
	if industry == "" {
		industry = "Technology"
	}

	extractedAt := s.now().UTC()
	mapped := brand.StatusMapped
	u := brand.Update{
		Name:        &name,
		Status:      &mapped,
		ExtractedAt: &extractedAt,
		MetadataPatch: &brand.Metadata{
			CompanyName: name,
			Industry:    industry,
			Description: data.Description,
			LogoURL:     data.LogoURL,
		},
	}
	if data.Description != "" {
		u.Description = &data.Description
	}
	if data.LogoURL != "" {
		u.LogoURL = &data.LogoURL
	}

	if _, err := s.store.UpdateBrand(ctx, b.ID, u); err != nil {
		return err
	}
	s.logger.Info("brand extraction applied",
		zap.String("brand_id", b.ID),
		zap.String("name", name),
		zap.String("industry", industry),
	)
	return nil
}

func (s *Sweeper) sweepFinalizable(ctx context.Context, stats *Stats) {
	start := s.now()
	outcome := "ok"
	defer func() {
		metrics.ObserveSweep("finalize", outcome, s.now().Sub(start))
	}()

	brands, err := s.store.ListFinalizable(ctx, s.cfg.FinalizeBatch)
	if err != nil {
		s.logger.Error("finalizable listing failed", zap.Error(err))
		stats.Errors++
		outcome = "error"
		return
	}

	for _, b := range brands {
		if err := s.finalize(ctx, b); err != nil {
			s.logger.Error("finalization failed",
				zap.String("brand_id", b.ID),
				zap.Error(err),
			)
			stats.Errors++
			outcome = "partial"
			continue
		}
		stats.Finalized++
	}
}

// finalize syncs the search index and completes the brand. The sync is best
// effort: its failure is logged but never blocks completion, and the synced
// timestamp is stamped either way so the brand is not retried forever.
func (s *Sweeper) finalize(ctx context.Context, b brand.Brand) error {
	synced := true
	if err := s.search.Sync(ctx, b.ID); err != nil {
		synced = false
		s.logger.Warn("search sync failed, completing anyway",
			zap.String("brand_id", b.ID),
			zap.Error(err),
		)
	}

	syncedAt := s.now().UTC()
	completed := brand.StatusCompleted
	if _, err := s.store.UpdateBrand(ctx, b.ID, brand.Update{
		Status:           &completed,
		AISearchSyncedAt: &syncedAt,
	}); err != nil {
		return err
	}

	event := publisher.BrandCompleted{
		BrandID:  b.ID,
		Domain:   b.PrimaryDomain,
		Name:     b.Name,
		Synced:   synced,
		Occurred: syncedAt.Format(time.RFC3339),
	}
	if _, err := s.pub.Publish(ctx, s.cfg.CompletedTopic, event); err != nil {
		s.logger.Warn("completion event publish failed",
			zap.String("brand_id", b.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("brand completed",
		zap.String("brand_id", b.ID),
		zap.String("domain", b.PrimaryDomain),
		zap.Bool("search_synced", synced),
	)
	return nil
}
