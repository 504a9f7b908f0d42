package sweeper

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brandscan/brandscan/internal/brand"
	pubmem "github.com/brandscan/brandscan/internal/publisher/memory"
	"github.com/brandscan/brandscan/internal/scrape"
	"github.com/brandscan/brandscan/internal/search"
	storemem "github.com/brandscan/brandscan/internal/store/memory"
)

type fakeScrape struct {
	results map[string]scrape.ExtractResult
	errs    map[string]error
	polled  []string
}

func (f *fakeScrape) StartExtract(context.Context, string) (string, error) { return "", nil }

func (f *fakeScrape) ExtractStatus(_ context.Context, jobID string) (scrape.ExtractResult, error) {
	f.polled = append(f.polled, jobID)
	if err := f.errs[jobID]; err != nil {
		return scrape.ExtractResult{}, err
	}
	return f.results[jobID], nil
}

func (f *fakeScrape) MapSite(context.Context, string, scrape.MapOptions) ([]scrape.MapLink, error) {
	return nil, nil
}

func (f *fakeScrape) StartBatchScrape(context.Context, []string, scrape.BatchScrapeOptions) (string, error) {
	return "", nil
}

type failingSyncer struct{ err error }

func (f failingSyncer) Sync(context.Context, string) error { return f.err }

func newTestSweeper(t *testing.T, fs *fakeScrape, syncer search.Syncer) (*Sweeper, *storemem.BrandStore, *pubmem.Publisher) {
	t.Helper()
	store := storemem.NewBrandStore()
	pub := pubmem.New()
	if syncer == nil {
		syncer = search.NoopSyncer{}
	}
	s := New(store, fs, syncer, pub, Config{}, zap.NewNop())
	return s, store, pub
}

func seedBrand(t *testing.T, store *storemem.BrandStore, domain, extractJobID string) *brand.Brand {
	t.Helper()
	b, err := store.CreateBrand(context.Background(), brand.NewBrand{
		Name:          brand.PlaceholderName(domain),
		Slug:          brand.Slugify(domain),
		PrimaryDomain: domain,
		Status:        brand.StatusPending,
		Metadata:      brand.Metadata{ExtractJobID: extractJobID},
	})
	require.NoError(t, err)
	return b
}

func TestRunOnceCompletedExtractFlowsToCompletion(t *testing.T) {
	fs := &fakeScrape{results: map[string]scrape.ExtractResult{
		"ext-1": {
			Status: scrape.StatusCompleted,
			Data: scrape.ExtractData{
				CompanyName: "Acme Industries",
				Description: "Anvils and more",
				LogoURL:     "https://cdn.acme.io/logo.png",
			},
		},
	}}
	s, store, pub := newTestSweeper(t, fs, nil)
	b := seedBrand(t, store, "acme.io", "ext-1")

	stats := s.RunOnce(context.Background())
	assert.Equal(t, 1, stats.ExtractsChecked)
	assert.Equal(t, 1, stats.ExtractsCompleted)
	assert.Equal(t, 0, stats.Errors)

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	// Extract completion makes the brand finalizable, so a single sweep
	// carries it all the way to completed.
	assert.Equal(t, brand.StatusCompleted, cur.DiscoveryStatus)
	assert.Equal(t, "Acme Industries", cur.Name)
	assert.Equal(t, "Anvils and more", cur.Description)
	assert.Equal(t, "https://cdn.acme.io/logo.png", cur.LogoURL)
	assert.Equal(t, "Technology", cur.Metadata.Industry)
	assert.NotNil(t, cur.ExtractedAt)
	assert.NotNil(t, cur.AISearchSyncedAt)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "brand.completed", msgs[0].Topic)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	assert.Equal(t, b.ID, payload["brand_id"])
	assert.Equal(t, true, payload["synced"])
}

func TestRunOnceEmptyCompanyNameFallsBack(t *testing.T) {
	fs := &fakeScrape{results: map[string]scrape.ExtractResult{
		"ext-1": {Status: scrape.StatusCompleted},
	}}
	s, store, _ := newTestSweeper(t, fs, nil)
	b := seedBrand(t, store, "acme.io", "ext-1")

	s.RunOnce(context.Background())

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", cur.Name)
}

func TestRunOnceFailedExtractMarksBrandFailed(t *testing.T) {
	fs := &fakeScrape{results: map[string]scrape.ExtractResult{
		"ext-1": {Status: scrape.StatusFailed, Error: "extraction timed out"},
	}}
	s, store, pub := newTestSweeper(t, fs, nil)
	b := seedBrand(t, store, "acme.io", "ext-1")

	stats := s.RunOnce(context.Background())
	assert.Equal(t, 1, stats.ExtractsFailed)

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusFailed, cur.DiscoveryStatus)
	assert.Equal(t, "extraction timed out", cur.Metadata.Error)
	assert.NotNil(t, cur.Metadata.FailedAt)
	assert.Empty(t, pub.Messages())
}

func TestRunOnceCancelledExtractLeavesBrandAlone(t *testing.T) {
	fs := &fakeScrape{results: map[string]scrape.ExtractResult{
		"ext-1": {Status: scrape.StatusCancelled},
	}}
	s, store, _ := newTestSweeper(t, fs, nil)
	b := seedBrand(t, store, "acme.io", "ext-1")

	stats := s.RunOnce(context.Background())
	assert.Equal(t, 1, stats.ExtractsChecked)
	assert.Equal(t, 0, stats.ExtractsCompleted)
	assert.Equal(t, 0, stats.ExtractsFailed)

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusPending, cur.DiscoveryStatus)
	assert.Nil(t, cur.ExtractedAt)
}

func TestRunOnceProcessingExtractIsSkipped(t *testing.T) {
	fs := &fakeScrape{results: map[string]scrape.ExtractResult{
		"ext-1": {Status: scrape.StatusProcessing},
	}}
	s, store, _ := newTestSweeper(t, fs, nil)
	b := seedBrand(t, store, "acme.io", "ext-1")

	s.RunOnce(context.Background())

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusPending, cur.DiscoveryStatus)

	// Still pending, so the next sweep polls again.
	s.RunOnce(context.Background())
	assert.Equal(t, []string{"ext-1", "ext-1"}, fs.polled)
}

func TestRunOncePollErrorIsolatedPerBrand(t *testing.T) {
	fs := &fakeScrape{
		results: map[string]scrape.ExtractResult{
			"ext-ok": {Status: scrape.StatusCompleted, Data: scrape.ExtractData{CompanyName: "Beta Corp"}},
		},
		errs: map[string]error{"ext-bad": errors.New("upstream 503")},
	}
	s, store, _ := newTestSweeper(t, fs, nil)
	// Older brand fails to poll; the younger one must still be processed.
	bad := seedBrand(t, store, "bad.io", "ext-bad")
	ok := seedBrand(t, store, "beta.io", "ext-ok")

	stats := s.RunOnce(context.Background())
	assert.Equal(t, 2, stats.ExtractsChecked)
	assert.Equal(t, 1, stats.ExtractsCompleted)
	assert.Equal(t, 1, stats.Errors)

	curBad, err := store.GetBrandByID(context.Background(), bad.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusPending, curBad.DiscoveryStatus)

	curOK, err := store.GetBrandByID(context.Background(), ok.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beta Corp", curOK.Name)
}

func TestFinalizeRequiresExtractedAt(t *testing.T) {
	fs := &fakeScrape{}
	s, store, pub := newTestSweeper(t, fs, nil)
	b := seedBrand(t, store, "acme.io", "")

	// Mapped but never extracted: not finalizable.
	mapped := brand.StatusMapped
	_, err := store.UpdateBrand(context.Background(), b.ID, brand.Update{Status: &mapped})
	require.NoError(t, err)

	stats := s.RunOnce(context.Background())
	assert.Equal(t, 0, stats.Finalized)
	assert.Empty(t, pub.Messages())

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusMapped, cur.DiscoveryStatus)
	assert.Nil(t, cur.AISearchSyncedAt)
}

func TestFinalizeSyncFailureStillCompletes(t *testing.T) {
	fs := &fakeScrape{}
	s, store, pub := newTestSweeper(t, fs, failingSyncer{err: errors.New("index offline")})
	b := seedBrand(t, store, "acme.io", "")

	mapped := brand.StatusMapped
	extractedAt := time.Now().UTC()
	_, err := store.UpdateBrand(context.Background(), b.ID, brand.Update{
		Status:      &mapped,
		ExtractedAt: &extractedAt,
	})
	require.NoError(t, err)

	stats := s.RunOnce(context.Background())
	assert.Equal(t, 1, stats.Finalized)

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusCompleted, cur.DiscoveryStatus)
	assert.NotNil(t, cur.AISearchSyncedAt)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	assert.Equal(t, false, payload["synced"])
}

func TestFinalizedBrandNotRevisited(t *testing.T) {
	fs := &fakeScrape{}
	s, store, pub := newTestSweeper(t, fs, nil)
	b := seedBrand(t, store, "acme.io", "")

	mapped := brand.StatusMapped
	extractedAt := time.Now().UTC()
	_, err := store.UpdateBrand(context.Background(), b.ID, brand.Update{
		Status:      &mapped,
		ExtractedAt: &extractedAt,
	})
	require.NoError(t, err)

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	assert.Len(t, pub.Messages(), 1)

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusCompleted, cur.DiscoveryStatus)
}
