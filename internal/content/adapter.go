package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	uploadBatchSize = 5
	deleteBatchSize = 100
	batchDelay      = 100 * time.Millisecond
	contentTypeMD   = "text/markdown"
)

// UploadOptions controls Put behavior.
type UploadOptions struct {
	// Overwrite skips the existence check and rewrites objects in place.
	Overwrite bool
}

// UploadResult reports the outcome of one item. Failures are isolated per
// item and never abort the batch.
type UploadResult struct {
	URL     string `json:"url"`
	Key     string `json:"key"`
	Success bool   `json:"success"`
	Size    int64  `json:"size,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Adapter writes, lists, and deletes brand content objects.
type Adapter struct {
	store  ObjectStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAdapter constructs an Adapter over the given object store.
func NewAdapter(store ObjectStore, logger *zap.Logger) *Adapter {
	return &Adapter{store: store, logger: logger, now: time.Now}
}

// Put persists items under the brand/domain prefix in bounded concurrent
// batches, pausing briefly between batches to respect the backend's
// throughput limits. With Overwrite false, an existing object short-circuits
// as a success carrying its current size.
func (a *Adapter) Put(ctx context.Context, brandID, domain string, items []Item, opts UploadOptions) []UploadResult {
	if len(items) == 0 {
		a.logger.Warn("no content provided", zap.String("domain", domain))
		return nil
	}

	results := make([]UploadResult, len(items))
	for start := 0; start < len(items); start += uploadBatchSize {
		end := start + uploadBatchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = a.putOne(ctx, brandID, domain, items[idx], idx, opts)
			}(i)
		}
		wg.Wait()

		if end < len(items) {
			select {
			case <-time.After(batchDelay):
			case <-ctx.Done():
				for i := end; i < len(items); i++ {
					results[i] = UploadResult{URL: items[i].URL, Error: ctx.Err().Error()}
				}
				return results
			}
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	a.logger.Info("content upload finished",
		zap.String("domain", domain),
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(results)),
	)
	return results
}

func (a *Adapter) putOne(ctx context.Context, brandID, domain string, item Item, index int, opts UploadOptions) UploadResult {
	key := BuildKey(brandID, domain, item.URL, index, a.now())

	if !opts.Overwrite {
		size, exists, err := a.store.Head(ctx, key)
		if err != nil {
			return UploadResult{URL: item.URL, Key: key, Error: fmt.Sprintf("head object: %v", err)}
		}
		if exists {
			return UploadResult{URL: item.URL, Key: key, Success: true, Size: size}
		}
	}

	doc := []byte(formatMarkdown(item, index, a.now()))
	if err := a.store.Put(ctx, key, contentTypeMD, doc); err != nil {
		a.logger.Error("content upload failed", zap.String("url", item.URL), zap.Error(err))
		return UploadResult{URL: item.URL, Key: key, Error: err.Error()}
	}
	return UploadResult{URL: item.URL, Key: key, Success: true, Size: int64(len(doc))}
}

// List returns objects for a brand/domain, optionally scoped to one
// category. Backend errors degrade to an empty list.
func (a *Adapter) List(ctx context.Context, brandID, domain, category string) []ObjectInfo {
	prefix := BrandPrefix(brandID, domain) + "/content/"
	if category != "" {
		prefix += category + "/"
	}
	objects, err := a.store.List(ctx, prefix, 0)
	if err != nil {
		a.logger.Error("list objects failed", zap.String("prefix", prefix), zap.Error(err))
		return nil
	}
	return objects
}

// DeleteByBrandDomain removes all stored content for a brand/domain
// (optionally one category) in bounded key batches. Partial batch failures
// are logged and do not stop subsequent batches.
func (a *Adapter) DeleteByBrandDomain(ctx context.Context, brandID, domain, category string) int {
	objects := a.List(ctx, brandID, domain, category)
	if len(objects) == 0 {
		a.logger.Info("no content found for deletion", zap.String("domain", domain))
		return 0
	}

	deleted := 0
	for start := 0; start < len(objects); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(objects) {
			end = len(objects)
		}
		keys := make([]string, 0, end-start)
		for _, obj := range objects[start:end] {
			keys = append(keys, obj.Key)
		}
		if err := a.store.Delete(ctx, keys); err != nil {
			a.logger.Error("delete batch failed", zap.Int("offset", start), zap.Error(err))
			continue
		}
		deleted += len(keys)
	}

	a.logger.Info("content deleted",
		zap.String("domain", domain),
		zap.Int("deleted", deleted),
		zap.Int("total", len(objects)),
	)
	return deleted
}
