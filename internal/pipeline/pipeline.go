// Package pipeline orchestrates brand discovery: it starts the external
// extract, map, and batch-scrape jobs and records their identifiers on the
// brand record. Completion is handled elsewhere, by webhooks and the
// reconciliation sweeper.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brandscan/brandscan/internal/brand"
	"github.com/brandscan/brandscan/internal/metrics"
	"github.com/brandscan/brandscan/internal/scrape"
	"github.com/brandscan/brandscan/internal/urlproc"
)

// Config controls orchestration knobs.
type Config struct {
	// WebhookURL is registered with batch-scrape jobs for event delivery.
	WebhookURL string
	// MapLimit bounds how many links one mapping call may return.
	MapLimit int
}

// Result is the pipeline-trigger response contract.
type Result struct {
	Success       bool   `json:"success"`
	BrandID       string `json:"brandId,omitempty"`
	Status        string `json:"status,omitempty"`
	ExtractJobID  string `json:"extractJobId,omitempty"`
	MapJobID      string `json:"mapJobId,omitempty"`
	ScrapeJobID   string `json:"scrapeJobId,omitempty"`
	Message       string `json:"message,omitempty"`
	EstimatedTime string `json:"estimatedTime,omitempty"`
	Error         string `json:"error,omitempty"`
	Details       string `json:"details,omitempty"`
}

// Orchestrator runs the discovery pipeline against the store and the
// external scraping service.
type Orchestrator struct {
	store  brand.Store
	scrape scrape.Client
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New constructs an Orchestrator.
func New(store brand.Store, scrapeClient scrape.Client, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.MapLimit <= 0 {
		cfg.MapLimit = 20
	}
	return &Orchestrator{
		store:  store,
		scrape: scrapeClient,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Discover runs the unified discovery pipeline for a normalized domain.
// All three external jobs return immediately; webhooks and the sweeper
// drive completion. Failures are reported in the Result, never panicked.
func (o *Orchestrator) Discover(ctx context.Context, domain string) Result {
	o.logger.Info("starting brand discovery", zap.String("domain", domain))

	existing, err := o.store.GetBrandByDomain(ctx, domain)
	if err != nil && !errors.Is(err, brand.ErrNotFound) {
		return Result{Success: false, Error: "brand lookup failed", Details: err.Error()}
	}

	var b *brand.Brand
	if existing != nil {
		// Re-discovery resets the brand to pending; metadata merges are
		// additive so prior extraction results survive.
		started := o.now().UTC()
		pending := brand.StatusPending
		b, err = o.store.UpdateBrand(ctx, existing.ID, brand.Update{
			Status:        &pending,
			MetadataPatch: &brand.Metadata{PipelineStartedAt: &started},
		})
		if err != nil {
			return Result{Success: false, Error: "brand reset failed", Details: err.Error()}
		}
	}

	// Starting extraction is the critical first step: without a job id the
	// sweeper has nothing to reconcile, so the invocation aborts here.
	extractJobID, err := o.scrape.StartExtract(ctx, domain)
	if err != nil {
		o.logger.Error("extract start failed", zap.String("domain", domain), zap.Error(err))
		return Result{Success: false, Error: "Failed to start brand extraction", Details: err.Error()}
	}
	o.logger.Info("extract job started",
		zap.String("domain", domain),
		zap.String("extract_job_id", extractJobID),
	)

	started := o.now().UTC()
	if b == nil {
		placeholder := brand.PlaceholderName(domain)
		b, err = o.store.CreateBrand(ctx, brand.NewBrand{
			Name:          placeholder,
			Slug:          brand.Slugify(placeholder),
			PrimaryDomain: domain,
			Description:   fmt.Sprintf("Extracting brand information from %s...", domain),
			LogoURL:       brand.DefaultLogoURL(domain),
			Status:        brand.StatusPending,
			Metadata: brand.Metadata{
				ExtractJobID:      extractJobID,
				PipelineStartedAt: &started,
				Industry:          "Analyzing...",
			},
		})
		if err != nil {
			return Result{Success: false, Error: "brand creation failed", Details: err.Error()}
		}
	} else {
		b, err = o.store.UpdateBrand(ctx, b.ID, brand.Update{
			MetadataPatch: &brand.Metadata{
				ExtractJobID:      extractJobID,
				PipelineStartedAt: &started,
			},
		})
		if err != nil {
			return Result{Success: false, Error: "brand update failed", Details: err.Error()}
		}
	}

	mapJobID, scrapeJobID, pipelineErr := o.startBrandPipeline(ctx, b.ID, domain)
	if pipelineErr != nil {
		o.logger.Error("map/scrape pipeline failed",
			zap.String("domain", domain),
			zap.Error(pipelineErr),
		)
		failed := brand.StatusFailed
		if _, err := o.store.UpdateBrand(ctx, b.ID, brand.Update{Status: &failed}); err != nil {
			o.logger.Error("failed-status update failed", zap.String("brand_id", b.ID), zap.Error(err))
		}
		metrics.ObserveDiscovery("failed")
		return Result{
			Success:      false,
			BrandID:      b.ID,
			ExtractJobID: extractJobID,
			MapJobID:     mapJobID,
			Error:        "Failed to start URL mapping and scraping pipeline",
			Details:      pipelineErr.Error(),
		}
	}

	if _, err := o.store.UpdateBrand(ctx, b.ID, brand.Update{
		MetadataPatch: &brand.Metadata{
			MapJobID:    mapJobID,
			ScrapeJobID: scrapeJobID,
		},
	}); err != nil {
		o.logger.Warn("job-id metadata patch failed", zap.String("brand_id", b.ID), zap.Error(err))
	}

	metrics.ObserveDiscovery("started")
	return Result{
		Success:       true,
		BrandID:       b.ID,
		Status:        "extracting",
		ExtractJobID:  extractJobID,
		MapJobID:      mapJobID,
		ScrapeJobID:   scrapeJobID,
		Message:       fmt.Sprintf("Brand discovery pipeline started for %s. Processing extract, mapping, and content scraping...", b.Name),
		EstimatedTime: "2-5 minutes",
	}
}

// startBrandPipeline maps the site, upserts the discovered URLs, then
// starts a batch scrape over every stored URL. Mapping strictly precedes
// scraping; a mapping failure prevents scraping from starting at all.
func (o *Orchestrator) startBrandPipeline(ctx context.Context, brandID, domain string) (mapJobID, scrapeJobID string, err error) {
	links, err := o.scrape.MapSite(ctx, "https://"+domain, scrape.MapOptions{
		Limit:             o.cfg.MapLimit,
		IncludeSubdomains: true,
	})
	if err != nil {
		return "", "", fmt.Errorf("map site: %w", err)
	}
	if len(links) == 0 {
		return "", "", fmt.Errorf("no URLs discovered during mapping")
	}

	// The mapping API is synchronous; the job id is synthesized locally so
	// the response shape matches the async jobs.
	mapJobID = fmt.Sprintf("map-%d", o.now().UnixMilli())

	mapLinks := make([]urlproc.Link, 0, len(links))
	for _, l := range links {
		mapLinks = append(mapLinks, urlproc.Link{URL: l.URL, Title: l.Title, Description: l.Description})
	}
	categorized := urlproc.CategorizeLinks(mapLinks)

	var newURLs []brand.NewURL
	for category, scored := range categorized {
		for _, link := range scored {
			title := link.Title
			if title == "" {
				if i := strings.LastIndexByte(link.URL, '/'); i >= 0 && i < len(link.URL)-1 {
					title = link.URL[i+1:]
				} else {
					title = "Page"
				}
			}
			priority := link.Priority
			if priority == 0 {
				priority = 50
			}
			newURLs = append(newURLs, brand.NewURL{
				URL:           link.URL,
				Title:         title,
				Description:   link.Description,
				Category:      category,
				Priority:      priority,
				DiscoveredVia: "map",
			})
		}
	}
	stored, err := o.store.UpsertURLs(ctx, brandID, newURLs)
	if err != nil {
		return mapJobID, "", fmt.Errorf("store discovered urls: %w", err)
	}
	o.logger.Info("urls mapped",
		zap.String("brand_id", brandID),
		zap.Int("discovered", len(links)),
		zap.Int("stored", stored),
	)

	// Scrape everything in the table, not just the freshly mapped set; the
	// stored rows are the source of truth.
	rows, err := o.store.ListURLs(ctx, brandID)
	if err != nil {
		return mapJobID, "", fmt.Errorf("list brand urls: %w", err)
	}
	if len(rows) == 0 {
		return mapJobID, "", fmt.Errorf("no URLs available for scraping")
	}
	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		urls = append(urls, row.URL)
	}

	scrapeJobID, err = o.scrape.StartBatchScrape(ctx, urls, scrape.BatchScrapeOptions{
		Webhook: scrape.WebhookConfig{
			URL: o.cfg.WebhookURL,
			Metadata: map[string]string{
				"brandId": brandID,
				"domain":  domain,
				"step":    "batch_scrape",
			},
			Events: []string{"page", "completed", "failed"},
		},
	})
	if err != nil {
		return mapJobID, "", fmt.Errorf("start batch scrape: %w", err)
	}

	// The batch job now owns these URLs; a later job failure sweeps
	// scraping rows to failed alongside pending ones.
	for _, u := range urls {
		if err := o.store.UpdateURLScrape(ctx, brandID, u, brand.URLScrapeUpdate{Status: brand.ScrapeScraping}); err != nil {
			o.logger.Warn("scraping-status update failed", zap.String("url", u), zap.Error(err))
		}
	}

	o.logger.Info("batch scrape started",
		zap.String("brand_id", brandID),
		zap.String("scrape_job_id", scrapeJobID),
		zap.Int("urls", len(urls)),
	)
	return mapJobID, scrapeJobID, nil
}
