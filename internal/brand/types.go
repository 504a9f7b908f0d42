// Package brand defines the core records tracked by the discovery pipeline.
package brand

import (
	"regexp"
	"strings"
	"time"

	"github.com/brandscan/brandscan/internal/urlproc"
)

// DiscoveryStatus represents the lifecycle state of a brand.
type DiscoveryStatus string

// Discovery status values persisted in the brands table. Status only moves
// forward (pending -> mapped/scraped -> completed) or jumps to failed.
const (
	StatusPending   DiscoveryStatus = "pending"
	StatusMapped    DiscoveryStatus = "mapped"
	StatusScraped   DiscoveryStatus = "scraped"
	StatusCompleted DiscoveryStatus = "completed"
	StatusFailed    DiscoveryStatus = "failed"
)

// ScrapeStatus tracks one URL through the scrape/upload flow.
type ScrapeStatus string

// Scrape status values persisted in the brand_urls table.
const (
	ScrapePending   ScrapeStatus = "pending"
	ScrapeScraping  ScrapeStatus = "scraping"
	ScrapeUploading ScrapeStatus = "uploading"
	ScrapeScraped   ScrapeStatus = "scraped"
	ScrapeUploaded  ScrapeStatus = "uploaded"
	ScrapeFailed    ScrapeStatus = "failed"
)

// Metadata is the typed bag attached to a brand. Every field carries
// omitempty so a partially filled value doubles as an additive patch:
// unset fields never clobber existing keys when merged.
type Metadata struct {
	ExtractJobID      string     `json:"extract_job_id,omitempty"`
	MapJobID          string     `json:"map_job_id,omitempty"`
	ScrapeJobID       string     `json:"scrape_job_id,omitempty"`
	CurrentJobID      string     `json:"current_job_id,omitempty"`
	PipelineStartedAt *time.Time `json:"pipeline_started_at,omitempty"`
	JobStartedAt      *time.Time `json:"job_started_at,omitempty"`
	CompanyName       string     `json:"company_name,omitempty"`
	Industry          string     `json:"industry,omitempty"`
	Description       string     `json:"description,omitempty"`
	LogoURL           string     `json:"logo_url,omitempty"`
	URLsScraped       *int       `json:"urls_scraped,omitempty"`
	URLsFailed        *int       `json:"urls_failed,omitempty"`
	TotalURLs         *int       `json:"total_urls,omitempty"`
	ScrapeCompletedAt *time.Time `json:"scrape_completed_at,omitempty"`
	Error             string     `json:"error,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
}

// Merge overlays the set fields of patch onto m, leaving everything else
// untouched. This mirrors the JSONB concatenation the Postgres store uses.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := m
	if patch.ExtractJobID != "" {
		out.ExtractJobID = patch.ExtractJobID
	}
	if patch.MapJobID != "" {
		out.MapJobID = patch.MapJobID
	}
	if patch.ScrapeJobID != "" {
		out.ScrapeJobID = patch.ScrapeJobID
	}
	if patch.CurrentJobID != "" {
		out.CurrentJobID = patch.CurrentJobID
	}
	if patch.PipelineStartedAt != nil {
		out.PipelineStartedAt = patch.PipelineStartedAt
	}
	if patch.JobStartedAt != nil {
		out.JobStartedAt = patch.JobStartedAt
	}
	if patch.CompanyName != "" {
		out.CompanyName = patch.CompanyName
	}
	if patch.Industry != "" {
		out.Industry = patch.Industry
	}
	if patch.Description != "" {
		out.Description = patch.Description
	}
	if patch.LogoURL != "" {
		out.LogoURL = patch.LogoURL
	}
	if patch.URLsScraped != nil {
		out.URLsScraped = patch.URLsScraped
	}
	if patch.URLsFailed != nil {
		out.URLsFailed = patch.URLsFailed
	}
	if patch.TotalURLs != nil {
		out.TotalURLs = patch.TotalURLs
	}
	if patch.ScrapeCompletedAt != nil {
		out.ScrapeCompletedAt = patch.ScrapeCompletedAt
	}
	if patch.Error != "" {
		out.Error = patch.Error
	}
	if patch.FailedAt != nil {
		out.FailedAt = patch.FailedAt
	}
	return out
}

// Brand is the identity record for a discovered entity. primary_domain is
// unique across brands.
type Brand struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Slug             string          `json:"slug"`
	PrimaryDomain    string          `json:"primary_domain"`
	Description      string          `json:"description"`
	LogoURL          string          `json:"logo_url"`
	DiscoveryStatus  DiscoveryStatus `json:"discovery_status"`
	Metadata         Metadata        `json:"metadata"`
	ExtractedAt      *time.Time      `json:"extracted_at,omitempty"`
	AISearchSyncedAt *time.Time      `json:"ai_search_synced_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewBrand carries the fields needed to create a brand row.
type NewBrand struct {
	Name          string
	Slug          string
	PrimaryDomain string
	Description   string
	LogoURL       string
	Status        DiscoveryStatus
	Metadata      Metadata
}

// BrandURL is one discovered URL under a brand. (brand_id, url) is unique;
// re-discovery upserts rather than duplicates.
type BrandURL struct {
	ID            string           `json:"id"`
	BrandID       string           `json:"brand_id"`
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Category      urlproc.Category `json:"category"`
	Priority      int              `json:"priority"`
	DiscoveredVia string           `json:"discovered_via"`
	ScrapeStatus  ScrapeStatus     `json:"scrape_status"`
	ContentLength int              `json:"content_length"`
	ScrapedAt     *time.Time       `json:"scraped_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewURL carries the fields needed to upsert a brand_urls row.
type NewURL struct {
	URL           string
	Title         string
	Description   string
	Category      urlproc.Category
	Priority      int
	DiscoveredVia string
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a brand name or domain.
func Slugify(nameOrDomain string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(nameOrDomain), "-")
	return strings.Trim(s, "-")
}

// PlaceholderName capitalizes the first label of a domain, e.g.
// "acme.io" -> "Acme". Used until extraction supplies the real name.
func PlaceholderName(domain string) string {
	label := domain
	if i := strings.IndexByte(domain, '.'); i > 0 {
		label = domain[:i]
	}
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// DefaultLogoURL points at a third-party logo service keyed by domain.
func DefaultLogoURL(domain string) string {
	return "https://logo.clearbit.com/" + domain
}
