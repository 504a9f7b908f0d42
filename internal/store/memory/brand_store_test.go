package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandscan/brandscan/internal/brand"
)

func createBrand(t *testing.T, s *BrandStore, domain string, md brand.Metadata) *brand.Brand {
	t.Helper()
	b, err := s.CreateBrand(context.Background(), brand.NewBrand{
		Name:          brand.PlaceholderName(domain),
		Slug:          brand.Slugify(domain),
		PrimaryDomain: domain,
		Status:        brand.StatusPending,
		Metadata:      md,
	})
	require.NoError(t, err)
	return b
}

func TestCreateAndGetBrand(t *testing.T) {
	s := NewBrandStore()
	b := createBrand(t, s, "acme.io", brand.Metadata{})

	byID, err := s.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", byID.Name)

	byDomain, err := s.GetBrandByDomain(context.Background(), "acme.io")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byDomain.ID)

	_, err = s.GetBrandByID(context.Background(), "nope")
	assert.ErrorIs(t, err, brand.ErrNotFound)
}

func TestCreateBrandDuplicateDomain(t *testing.T) {
	s := NewBrandStore()
	createBrand(t, s, "acme.io", brand.Metadata{})
	_, err := s.CreateBrand(context.Background(), brand.NewBrand{PrimaryDomain: "acme.io"})
	assert.Error(t, err)
}

func TestUpdateBrandMergesMetadata(t *testing.T) {
	s := NewBrandStore()
	b := createBrand(t, s, "acme.io", brand.Metadata{ExtractJobID: "ext-1"})

	scraped := brand.StatusScraped
	updated, err := s.UpdateBrand(context.Background(), b.ID, brand.Update{
		Status:        &scraped,
		MetadataPatch: &brand.Metadata{CurrentJobID: "job-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, brand.StatusScraped, updated.DiscoveryStatus)
	// The patch is additive: untouched keys survive.
	assert.Equal(t, "ext-1", updated.Metadata.ExtractJobID)
	assert.Equal(t, "job-1", updated.Metadata.CurrentJobID)
}

func TestListPendingExtractEligibility(t *testing.T) {
	s := NewBrandStore()
	ctx := context.Background()

	eligible := createBrand(t, s, "a.io", brand.Metadata{ExtractJobID: "ext-a"})
	createBrand(t, s, "b.io", brand.Metadata{}) // no job id
	extracted := createBrand(t, s, "c.io", brand.Metadata{ExtractJobID: "ext-c"})

	now := time.Now().UTC()
	_, err := s.UpdateBrand(ctx, extracted.ID, brand.Update{ExtractedAt: &now})
	require.NoError(t, err)

	got, err := s.ListPendingExtract(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, eligible.ID, got[0].ID)
}

func TestListPendingExtractOrderAndLimit(t *testing.T) {
	s := NewBrandStore()
	first := createBrand(t, s, "a.io", brand.Metadata{ExtractJobID: "ext-a"})
	time.Sleep(time.Millisecond)
	createBrand(t, s, "b.io", brand.Metadata{ExtractJobID: "ext-b"})

	got, err := s.ListPendingExtract(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	// Oldest created first.
	assert.Equal(t, first.ID, got[0].ID)
}

func TestListFinalizableEligibility(t *testing.T) {
	s := NewBrandStore()
	ctx := context.Background()
	now := time.Now().UTC()
	mapped := brand.StatusMapped

	ready := createBrand(t, s, "a.io", brand.Metadata{})
	_, err := s.UpdateBrand(ctx, ready.ID, brand.Update{Status: &mapped, ExtractedAt: &now})
	require.NoError(t, err)

	// Mapped but not extracted: excluded.
	notExtracted := createBrand(t, s, "b.io", brand.Metadata{})
	_, err = s.UpdateBrand(ctx, notExtracted.ID, brand.Update{Status: &mapped})
	require.NoError(t, err)

	// Already synced: excluded.
	synced := createBrand(t, s, "c.io", brand.Metadata{})
	_, err = s.UpdateBrand(ctx, synced.ID, brand.Update{Status: &mapped, ExtractedAt: &now, AISearchSyncedAt: &now})
	require.NoError(t, err)

	got, err := s.ListFinalizable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ready.ID, got[0].ID)
}

func TestUpsertURLs(t *testing.T) {
	s := NewBrandStore()
	ctx := context.Background()
	b := createBrand(t, s, "acme.io", brand.Metadata{})

	n, err := s.UpsertURLs(ctx, b.ID, []brand.NewURL{
		{URL: "https://acme.io/about", Title: "About", Priority: 80},
		{URL: "https://acme.io/blog", Title: "Blog", Priority: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Rediscovery refreshes fields without duplicating rows or resetting
	// scrape progress.
	require.NoError(t, s.UpdateURLScrape(ctx, b.ID, "https://acme.io/about", brand.URLScrapeUpdate{Status: brand.ScrapeUploaded}))
	_, err = s.UpsertURLs(ctx, b.ID, []brand.NewURL{
		{URL: "https://acme.io/about", Title: "About Us", Priority: 90},
	})
	require.NoError(t, err)

	rows, err := s.ListURLs(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "About Us", rows[0].Title)
	assert.Equal(t, 90, rows[0].Priority)
	assert.Equal(t, brand.ScrapeUploaded, rows[0].ScrapeStatus)
}

func TestUpdateURLScrapeUnknownURLIsNoOp(t *testing.T) {
	s := NewBrandStore()
	ctx := context.Background()
	b := createBrand(t, s, "acme.io", brand.Metadata{})

	_, err := s.UpsertURLs(ctx, b.ID, []brand.NewURL{{URL: "https://acme.io/about"}})
	require.NoError(t, err)

	// Zero-row UPDATE semantics: no error, no row created.
	require.NoError(t, s.UpdateURLScrape(ctx, b.ID, "https://acme.io/about/", brand.URLScrapeUpdate{Status: brand.ScrapeScraped}))

	rows, err := s.ListURLs(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, brand.ScrapePending, rows[0].ScrapeStatus)
}

func TestFailActiveURLs(t *testing.T) {
	s := NewBrandStore()
	ctx := context.Background()
	b := createBrand(t, s, "acme.io", brand.Metadata{})

	_, err := s.UpsertURLs(ctx, b.ID, []brand.NewURL{
		{URL: "https://acme.io/a"},
		{URL: "https://acme.io/b"},
		{URL: "https://acme.io/c"},
	})
	require.NoError(t, err)
	require.NoError(t, s.UpdateURLScrape(ctx, b.ID, "https://acme.io/a", brand.URLScrapeUpdate{Status: brand.ScrapeUploaded}))

	n, err := s.FailActiveURLs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err := s.CountURLsByStatus(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[brand.ScrapeUploaded])
	assert.Equal(t, 2, counts[brand.ScrapeFailed])
}
