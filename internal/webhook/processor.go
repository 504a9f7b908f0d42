package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brandscan/brandscan/internal/brand"
	"github.com/brandscan/brandscan/internal/content"
	"github.com/brandscan/brandscan/internal/metrics"
	"github.com/brandscan/brandscan/internal/urlproc"
)

// SignatureHeader carries the HMAC over the raw request body.
const SignatureHeader = "X-Firecrawl-Signature"

const maxBodyBytes = 10 << 20

// Processor applies verified scrape events to brand/URL state and the
// content store.
type Processor struct {
	store   brand.Store
	adapter *content.Adapter
	secret  []byte
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Processor. The secret signs every inbound request body.
func New(store brand.Store, adapter *content.Adapter, secret string, logger *zap.Logger) *Processor {
	return &Processor{
		store:   store,
		adapter: adapter,
		secret:  []byte(secret),
		logger:  logger,
		now:     time.Now,
	}
}

// VerifySignature checks a "sha256=<hex>" header against the raw body using
// constant-time comparison.
func (p *Processor) VerifySignature(body []byte, header string) bool {
	if header == "" || len(p.secret) == 0 {
		return false
	}
	algorithm, hexDigest, found := strings.Cut(header, "=")
	if !found || algorithm != "sha256" {
		return false
	}
	got, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Handle is the webhook HTTP endpoint. The signature is verified before any
// parsing or state mutation; every recognized or unrecognized event path
// acknowledges with 200 so the delivering service does not retry forever.
func (p *Processor) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !p.VerifySignature(body, r.Header.Get(SignatureHeader)) {
		p.logger.Warn("webhook signature rejected")
		metrics.ObserveWebhookEvent("unknown", "unauthorized")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		p.logger.Error("webhook body unparseable", zap.Error(err))
		metrics.ObserveWebhookEvent("unknown", "malformed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	kind := NormalizeKind(event.Type)
	p.logger.Info("webhook event verified",
		zap.String("type", event.Type),
		zap.String("kind", string(kind)),
		zap.String("job_id", event.ID),
		zap.String("brand_id", event.Metadata.BrandID),
	)

	if err := p.Process(r.Context(), kind, event); err != nil {
		p.logger.Error("webhook processing failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		metrics.ObserveWebhookEvent(string(kind), "error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveWebhookEvent(string(kind), "ok")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Process applies one normalized event. Unknown kinds are acknowledged and
// ignored for forward compatibility.
func (p *Processor) Process(ctx context.Context, kind Kind, event Event) error {
	switch kind {
	case KindStarted:
		return p.handleStarted(ctx, event)
	case KindPage:
		return p.handlePage(ctx, event)
	case KindCompleted:
		return p.handleCompleted(ctx, event)
	case KindFailed:
		return p.handleFailed(ctx, event)
	default:
		p.logger.Info("unhandled webhook event type", zap.String("type", event.Type))
		return nil
	}
}

// handleStarted marks the brand active and records the running job id.
func (p *Processor) handleStarted(ctx context.Context, event Event) error {
	brandID := event.Metadata.BrandID
	if brandID == "" {
		return nil
	}
	startedAt := p.now().UTC()
	scraped := brand.StatusScraped
	_, err := p.store.UpdateBrand(ctx, brandID, brand.Update{
		Status: &scraped,
		MetadataPatch: &brand.Metadata{
			CurrentJobID: event.ID,
			JobStartedAt: &startedAt,
		},
	})
	return err
}

// handlePage records scrape progress for one URL and synchronously hands
// the page to the content store. Upload failures mark the URL failed but
// never fail the webhook response.
func (p *Processor) handlePage(ctx context.Context, event Event) error {
	brandID, domain := event.Metadata.BrandID, event.Metadata.Domain
	if len(event.Data) == 0 {
		return nil
	}
	page := event.Data[0]
	url := page.sourceURL()
	if url == "" {
		// Interstitial events without a source URL are expected; ack and
		// record nothing.
		p.logger.Warn("page event without source url", zap.String("brand_id", brandID))
		return nil
	}

	scrapedAt := p.now().UTC()
	contentLen := len(page.Markdown)
	if err := p.store.UpdateURLScrape(ctx, brandID, url, brand.URLScrapeUpdate{
		Status:        brand.ScrapeScraped,
		ContentLength: &contentLen,
		ScrapedAt:     &scrapedAt,
	}); err != nil {
		return err
	}

	p.uploadPage(ctx, brandID, domain, url, page)
	return nil
}

func (p *Processor) uploadPage(ctx context.Context, brandID, domain, url string, page PageData) {
	if err := p.store.UpdateURLScrape(ctx, brandID, url, brand.URLScrapeUpdate{
		Status: brand.ScrapeUploading,
	}); err != nil {
		p.logger.Error("uploading-status update failed", zap.String("url", url), zap.Error(err))
	}

	if !urlproc.ValidContent(urlproc.Page{URL: url, Title: page.Metadata.Title, Markdown: page.Markdown}) {
		p.logger.Info("page skipped by quality gate", zap.String("url", url))
		p.markURL(ctx, brandID, url, brand.ScrapeFailed, nil)
		metrics.ObserveContentUpload("skipped")
		return
	}

	title := page.Metadata.Title
	if title == "" {
		title = "Untitled"
	}
	item := content.Item{
		URL:              url,
		Title:            title,
		Content:          page.Markdown,
		ProcessedContent: urlproc.TruncateProcessed(urlproc.CleanContent(page.Markdown)),
		ContentType:      string(urlproc.ClassifyContent(url)),
		Images:           page.Images,
	}

	results := p.adapter.Put(ctx, brandID, domain, []content.Item{item}, content.UploadOptions{Overwrite: true})
	if len(results) == 1 && results[0].Success {
		size := int(results[0].Size)
		p.markURL(ctx, brandID, url, brand.ScrapeUploaded, &size)
		metrics.ObserveContentUpload("ok")
		return
	}
	errMsg := "upload failed"
	if len(results) == 1 && results[0].Error != "" {
		errMsg = results[0].Error
	}
	p.logger.Error("page upload failed", zap.String("url", url), zap.String("error", errMsg))
	p.markURL(ctx, brandID, url, brand.ScrapeFailed, nil)
	metrics.ObserveContentUpload("failed")
}

func (p *Processor) markURL(ctx context.Context, brandID, url string, status brand.ScrapeStatus, contentLen *int) {
	if err := p.store.UpdateURLScrape(ctx, brandID, url, brand.URLScrapeUpdate{
		Status:        status,
		ContentLength: contentLen,
	}); err != nil {
		p.logger.Error("url status update failed",
			zap.String("url", url),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// handleCompleted merges final scrape tallies into brand metadata,
// preserving everything already there (the extract job id in particular).
func (p *Processor) handleCompleted(ctx context.Context, event Event) error {
	brandID := event.Metadata.BrandID
	if brandID == "" {
		return nil
	}
	counts, err := p.store.CountURLsByStatus(ctx, brandID)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	scrapedCount := counts[brand.ScrapeScraped] + counts[brand.ScrapeUploaded]
	failedCount := counts[brand.ScrapeFailed]
	completedAt := p.now().UTC()

	scraped := brand.StatusScraped
	_, err = p.store.UpdateBrand(ctx, brandID, brand.Update{
		Status: &scraped,
		MetadataPatch: &brand.Metadata{
			URLsScraped:       &scrapedCount,
			URLsFailed:        &failedCount,
			TotalURLs:         &total,
			ScrapeCompletedAt: &completedAt,
		},
	})
	return err
}

// handleFailed marks the brand failed and sweeps in-flight URLs to failed
// so nothing is left dangling.
func (p *Processor) handleFailed(ctx context.Context, event Event) error {
	brandID := event.Metadata.BrandID
	if brandID == "" {
		return nil
	}
	errMsg := event.Error
	if errMsg == "" {
		errMsg = "scrape job failed"
	}
	failedAt := p.now().UTC()
	failed := brand.StatusFailed
	if _, err := p.store.UpdateBrand(ctx, brandID, brand.Update{
		Status: &failed,
		MetadataPatch: &brand.Metadata{
			Error:    errMsg,
			FailedAt: &failedAt,
		},
	}); err != nil {
		return err
	}
	n, err := p.store.FailActiveURLs(ctx, brandID)
	if err != nil {
		return err
	}
	p.logger.Info("job failed, urls swept",
		zap.String("brand_id", brandID),
		zap.Int64("urls_failed", n),
	)
	return nil
}
