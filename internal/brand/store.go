package brand

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no matching row exists.
var ErrNotFound = errors.New("brand not found")

// Update describes a partial brand mutation. Nil fields are left untouched.
// MetadataPatch is merged additively, never replacing unrelated keys.
type Update struct {
	Name             *string
	Description      *string
	LogoURL          *string
	Status           *DiscoveryStatus
	MetadataPatch    *Metadata
	ExtractedAt      *time.Time
	AISearchSyncedAt *time.Time
}

// URLScrapeUpdate describes a per-URL scrape progress mutation.
type URLScrapeUpdate struct {
	Status        ScrapeStatus
	ContentLength *int
	ScrapedAt     *time.Time
}

// Store persists brands and their discovered URLs. The database is the
// serialization point; implementations need no in-process locking beyond
// what their backend requires.
type Store interface {
	GetBrandByID(ctx context.Context, id string) (*Brand, error)
	GetBrandByDomain(ctx context.Context, domain string) (*Brand, error)
	CreateBrand(ctx context.Context, b NewBrand) (*Brand, error)
	UpdateBrand(ctx context.Context, id string, u Update) (*Brand, error)

	// ListPendingExtract selects brands eligible for the extract-completion
	// sweep: status in {pending, scraped}, extracted_at null, and an extract
	// job id present in metadata; oldest-created first.
	ListPendingExtract(ctx context.Context, limit int) ([]Brand, error)

	// ListFinalizable selects brands eligible for finalization: status in
	// {mapped, scraped}, ai_search_synced_at null, extracted_at not null;
	// oldest-updated first.
	ListFinalizable(ctx context.Context, limit int) ([]Brand, error)

	// UpsertURLs bulk-upserts rows keyed by (brand_id, url) and returns the
	// number of rows written.
	UpsertURLs(ctx context.Context, brandID string, urls []NewURL) (int, error)
	ListURLs(ctx context.Context, brandID string) ([]BrandURL, error)
	UpdateURLScrape(ctx context.Context, brandID, url string, u URLScrapeUpdate) error

	// FailActiveURLs bulk-transitions pending/scraping URLs to failed and
	// returns the number of rows affected.
	FailActiveURLs(ctx context.Context, brandID string) (int64, error)
	CountURLsByStatus(ctx context.Context, brandID string) (map[ScrapeStatus]int, error)

	Close()
}
