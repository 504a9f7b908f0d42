// Package scrape wraps the external scraping service: async extract jobs,
// synchronous site mapping, and async batch scraping with webhook delivery.
package scrape

import "context"

// JobStatus is the closed status set reported for async jobs.
type JobStatus string

// Status values returned by the service.
const (
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// ExtractResult carries the terminal state of an extract job.
type ExtractResult struct {
	Status JobStatus
	Data   ExtractData
	Error  string
}

// ExtractData is the structured brand information an extract job returns.
type ExtractData struct {
	CompanyName string `json:"company_name"`
	Description string `json:"description"`
	Industry    string `json:"industry"`
	LogoURL     string `json:"logo_url"`
}

// MapLink is one URL discovered while mapping a site.
type MapLink struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MapOptions bounds a mapping call.
type MapOptions struct {
	Limit             int
	IncludeSubdomains bool
}

// WebhookConfig registers the callback for batch-scrape event delivery.
type WebhookConfig struct {
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata"`
	Events   []string          `json:"events"`
}

// BatchScrapeOptions configures a batch-scrape job.
type BatchScrapeOptions struct {
	Webhook WebhookConfig
}

// Client is the consumed contract of the scraping service. Implementations
// must treat timeouts as the call's own failure mode, never panicking.
type Client interface {
	// StartExtract begins an async metadata-extraction job for a domain and
	// returns its job id.
	StartExtract(ctx context.Context, domain string) (string, error)

	// ExtractStatus polls an extract job directly, bypassing webhooks.
	ExtractStatus(ctx context.Context, jobID string) (ExtractResult, error)

	// MapSite discovers site URLs synchronously.
	MapSite(ctx context.Context, siteURL string, opts MapOptions) ([]MapLink, error)

	// StartBatchScrape begins an async batch content scrape and returns its
	// job id. Progress arrives via the registered webhook.
	StartBatchScrape(ctx context.Context, urls []string, opts BatchScrapeOptions) (string, error)
}
