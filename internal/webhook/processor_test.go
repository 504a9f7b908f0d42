package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brandscan/brandscan/internal/brand"
	"github.com/brandscan/brandscan/internal/content"
	contentmem "github.com/brandscan/brandscan/internal/content/memory"
	storemem "github.com/brandscan/brandscan/internal/store/memory"
)

const testSecret = "test-webhook-secret"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestProcessor(t *testing.T) (*Processor, *storemem.BrandStore, *contentmem.BlobStore) {
	t.Helper()
	store := storemem.NewBrandStore()
	blobs := contentmem.NewBlobStore()
	adapter := content.NewAdapter(blobs, zap.NewNop())
	return New(store, adapter, testSecret, zap.NewNop()), store, blobs
}

func seedBrand(t *testing.T, store *storemem.BrandStore, urls ...string) *brand.Brand {
	t.Helper()
	b, err := store.CreateBrand(context.Background(), brand.NewBrand{
		Name:          "Acme",
		Slug:          "acme",
		PrimaryDomain: "acme.io",
		Status:        brand.StatusPending,
		Metadata:      brand.Metadata{ExtractJobID: "ext-1"},
	})
	require.NoError(t, err)

	var rows []brand.NewURL
	for _, u := range urls {
		rows = append(rows, brand.NewURL{URL: u, Title: "Page", Category: "info", Priority: 50, DiscoveredVia: "map"})
	}
	if len(rows) > 0 {
		_, err = store.UpsertURLs(context.Background(), b.ID, rows)
		require.NoError(t, err)
	}
	return b
}

func postEvent(t *testing.T, p *Processor, event Event, signature string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	if signature == "" {
		signature = sign(testSecret, body)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/firecrawl", strings.NewReader(string(body)))
	req.Header.Set(SignatureHeader, signature)
	rec := httptest.NewRecorder()
	p.Handle(rec, req)
	return rec
}

func TestVerifySignature(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	body := []byte(`{"type":"batch_scrape.page"}`)

	assert.True(t, p.VerifySignature(body, sign(testSecret, body)))
	assert.False(t, p.VerifySignature(body, sign("wrong-secret", body)))
	assert.False(t, p.VerifySignature(body, ""))
	assert.False(t, p.VerifySignature(body, "sha256=nothex"))
	assert.False(t, p.VerifySignature(body, "md5=abcdef"))
}

func TestHandleRejectsBadSignatureWithoutMutation(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	b := seedBrand(t, store, "https://acme.io/about")

	rec := postEvent(t, p, Event{
		Type:     "batch_scrape.failed",
		Metadata: EventMetadata{BrandID: b.ID, Domain: "acme.io"},
		Error:    "boom",
	}, sign("wrong-secret", []byte("different body")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusPending, cur.DiscoveryStatus)
	assert.Empty(t, cur.Metadata.Error)
}

func TestHandleMalformedBody(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	body := []byte("{not json")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/firecrawl", strings.NewReader(string(body)))
	req.Header.Set(SignatureHeader, sign(testSecret, body))
	rec := httptest.NewRecorder()
	p.Handle(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleStarted(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	b := seedBrand(t, store)

	rec := postEvent(t, p, Event{
		Type:     "batch_scrape.started",
		ID:       "job-42",
		Metadata: EventMetadata{BrandID: b.ID, Domain: "acme.io"},
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	cur, err := store.GetBrandByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusScraped, cur.DiscoveryStatus)
	assert.Equal(t, "job-42", cur.Metadata.CurrentJobID)
	require.NotNil(t, cur.Metadata.JobStartedAt)
	// The extract job id recorded at discovery time must survive the patch.
	assert.Equal(t, "ext-1", cur.Metadata.ExtractJobID)
}

func TestHandlePageUploadsContent(t *testing.T) {
	p, store, blobs := newTestProcessor(t)
	b := seedBrand(t, store, "https://acme.io/about")

	markdown := strings.Repeat("Acme builds industrial-grade anvils. ", 5)
	rec := postEvent(t, p, Event{
		Type:     "batch_scrape.page",
		Metadata: EventMetadata{BrandID: b.ID, Domain: "acme.io"},
		Data: []PageData{{
			Markdown: markdown,
			Metadata: PageMetadata{SourceURL: "https://acme.io/about", Title: "About Acme"},
		}},
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, blobs.Len())

	rows, err := store.ListURLs(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, brand.ScrapeUploaded, rows[0].ScrapeStatus)
	assert.NotNil(t, rows[0].ScrapedAt)
	assert.Greater(t, rows[0].ContentLength, 0)
}

func TestHandlePageForUnmappedURLIsAcked(t *testing.T) {
	p, store, blobs := newTestProcessor(t)
	b := seedBrand(t, store, "https://acme.io/about")

	// The scraping service reports redirect targets and trailing-slash
	// variants that mapping never stored; those events must still be
	// acknowledged or delivery retries forever.
	rec := postEvent(t, p, Event{
		Type:     "batch_scrape.page",
		Metadata: EventMetadata{BrandID: b.ID, Domain: "acme.io"},
		Data: []PageData{{
			Markdown: strings.Repeat("Acme builds industrial-grade anvils. ", 5),
			Metadata: PageMetadata{SourceURL: "https://acme.io/about/", Title: "About Acme"},
		}},
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	// The content is still persisted even without a tracked row.
	assert.Equal(t, 1, blobs.Len())

	rows, err := store.ListURLs(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, brand.ScrapePending, rows[0].ScrapeStatus)
}

func TestHandlePageWithoutSourceURLIsNoop(t *testing.T) {
	p, store, blobs := newTestProcessor(t)
	b := seedBrand(t, store, "https://acme.io/about")

	rec := postEvent(t, p, Event{
		Type:     "batch_scrape.page",
		Metadata: EventMetadata{BrandID: b.ID, Domain: "acme.io"},
		Data:     []PageData{{Markdown: "some content without any page metadata attached here"}},
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, blobs.Len())

	rows, err := store.ListURLs(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.ScrapePending, rows[0].ScrapeStatus)
}

func TestHandlePageFailsQualityGate(t *testing.T) {
	p, store, blobs := newTestProcessor(t)
	b := seedBrand(t, store, "https://acme.io/missing")

	rec := postEvent(t, p, Event{
		Type:     "batch_scrape.page",
		Metadata: EventMetadata{BrandID: b.ID, Domain: "acme.io"},
		Data: []PageData{{
			Markdown: strings.Repeat("placeholder text for a page that no longer exists ", 3),
			Metadata: PageMetadata{SourceURL: "https://acme.io/missing", Title: "404 Not Found"},
		}},
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, blobs.Len())

	rows, err := store.ListURLs(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.ScrapeFailed, rows[0].ScrapeStatus)
}

func TestHandleCompletedMergesCounts(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	b := seedBrand(t, store, "https://acme.io/a", "https://acme.io/b", "https://acme.io/c")
	ctx := context.Background()

	require.NoError(t, store.UpdateURLScrape(ctx, b.ID, "https://acme.io/a", brand.URLScrapeUpdate{Status: brand.ScrapeUploaded}))
	require.NoError(t, store.UpdateURLScrape(ctx, b.ID, "https://acme.io/b", brand.URLScrapeUpdate{Status: brand.ScrapeScraped}))
	require.NoError(t, store.UpdateURLScrape(ctx, b.ID, "https://acme.io/c", brand.URLScrapeUpdate{Status: brand.ScrapeFailed}))

	rec := postEvent(t, p, Event{
		Type:     "batch_scrape.completed",
		Metadata: EventMetadata{BrandID: b.ID, Domain: "acme.io"},
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	cur, err := store.GetBrandByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusScraped, cur.DiscoveryStatus)
	require.NotNil(t, cur.Metadata.URLsScraped)
	assert.Equal(t, 2, *cur.Metadata.URLsScraped)
	require.NotNil(t, cur.Metadata.URLsFailed)
	assert.Equal(t, 1, *cur.Metadata.URLsFailed)
	require.NotNil(t, cur.Metadata.TotalURLs)
	assert.Equal(t, 3, *cur.Metadata.TotalURLs)
	assert.NotNil(t, cur.Metadata.ScrapeCompletedAt)
	assert.Equal(t, "ext-1", cur.Metadata.ExtractJobID)
}

func TestHandleFailedSweepsActiveURLs(t *testing.T) {
	p, store, _ := newTestProcessor(t)
	b := seedBrand(t, store, "https://acme.io/a", "https://acme.io/b")
	ctx := context.Background()

	require.NoError(t, store.UpdateURLScrape(ctx, b.ID, "https://acme.io/a", brand.URLScrapeUpdate{Status: brand.ScrapeUploaded}))

	rec := postEvent(t, p, Event{
		Type:     "batch_scrape.failed",
		Metadata: EventMetadata{BrandID: b.ID, Domain: "acme.io"},
		Error:    "upstream exploded",
	}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	cur, err := store.GetBrandByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, brand.StatusFailed, cur.DiscoveryStatus)
	assert.Equal(t, "upstream exploded", cur.Metadata.Error)
	assert.NotNil(t, cur.Metadata.FailedAt)

	counts, err := store.CountURLsByStatus(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[brand.ScrapeUploaded])
	assert.Equal(t, 1, counts[brand.ScrapeFailed])
}

func TestHandleUnknownKindAcked(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	rec := postEvent(t, p, Event{Type: "batch_scrape.document"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestNormalizeKind(t *testing.T) {
	cases := map[string]Kind{
		"batch_scrape.started":   KindStarted,
		"batch_scrape.page":      KindPage,
		"batch_scrape.completed": KindCompleted,
		"batch_scrape.failed":    KindFailed,
		"crawl.page":             KindPage,
		"completed":              KindCompleted,
		"batch_scrape.document":  KindUnknown,
		"":                       KindUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeKind(raw), "raw=%q", raw)
	}
}
