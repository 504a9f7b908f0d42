// Package memory provides an in-memory brand store for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brandscan/brandscan/internal/brand"
)

// BrandStore implements brand.Store with maps guarded by a mutex.
type BrandStore struct {
	mu     sync.RWMutex
	brands map[string]brand.Brand            // by id
	urls   map[string]map[string]brand.BrandURL // brand id -> url -> row
}

// NewBrandStore constructs an empty BrandStore.
func NewBrandStore() *BrandStore {
	return &BrandStore{
		brands: make(map[string]brand.Brand),
		urls:   make(map[string]map[string]brand.BrandURL),
	}
}

// Close is a no-op for the in-memory store.
func (s *BrandStore) Close() {}

// GetBrandByID fetches a brand by id.
func (s *BrandStore) GetBrandByID(_ context.Context, id string) (*brand.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.brands[id]
	if !ok {
		return nil, brand.ErrNotFound
	}
	return &b, nil
}

// GetBrandByDomain fetches a brand by its unique primary domain.
func (s *BrandStore) GetBrandByDomain(_ context.Context, domain string) (*brand.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.brands {
		if b.PrimaryDomain == domain {
			return &b, nil
		}
	}
	return nil, brand.ErrNotFound
}

// CreateBrand inserts a new brand, enforcing primary-domain uniqueness.
func (s *BrandStore) CreateBrand(_ context.Context, nb brand.NewBrand) (*brand.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.brands {
		if b.PrimaryDomain == nb.PrimaryDomain {
			return nil, fmt.Errorf("brand exists for domain %s", nb.PrimaryDomain)
		}
	}
	now := time.Now().UTC()
	b := brand.Brand{
		ID:              uuid.NewString(),
		Name:            nb.Name,
		Slug:            nb.Slug,
		PrimaryDomain:   nb.PrimaryDomain,
		Description:     nb.Description,
		LogoURL:         nb.LogoURL,
		DiscoveryStatus: nb.Status,
		Metadata:        nb.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.brands[b.ID] = b
	return &b, nil
}

// UpdateBrand applies a partial mutation with additive metadata merge.
func (s *BrandStore) UpdateBrand(_ context.Context, id string, u brand.Update) (*brand.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.brands[id]
	if !ok {
		return nil, brand.ErrNotFound
	}
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Description != nil {
		b.Description = *u.Description
	}
	if u.LogoURL != nil {
		b.LogoURL = *u.LogoURL
	}
	if u.Status != nil {
		b.DiscoveryStatus = *u.Status
	}
	if u.ExtractedAt != nil {
		b.ExtractedAt = u.ExtractedAt
	}
	if u.AISearchSyncedAt != nil {
		b.AISearchSyncedAt = u.AISearchSyncedAt
	}
	if u.MetadataPatch != nil {
		b.Metadata = b.Metadata.Merge(*u.MetadataPatch)
	}
	b.UpdatedAt = time.Now().UTC()
	s.brands[id] = b
	return &b, nil
}

// ListPendingExtract mirrors the Postgres eligibility query for the
// extract-completion sweep.
func (s *BrandStore) ListPendingExtract(_ context.Context, limit int) ([]brand.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []brand.Brand
	for _, b := range s.brands {
		if (b.DiscoveryStatus == brand.StatusPending || b.DiscoveryStatus == brand.StatusScraped) &&
			b.ExtractedAt == nil && b.Metadata.ExtractJobID != "" {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListFinalizable mirrors the Postgres finalization eligibility query.
func (s *BrandStore) ListFinalizable(_ context.Context, limit int) ([]brand.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []brand.Brand
	for _, b := range s.brands {
		if (b.DiscoveryStatus == brand.StatusMapped || b.DiscoveryStatus == brand.StatusScraped) &&
			b.AISearchSyncedAt == nil && b.ExtractedAt != nil {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertURLs upserts keyed by (brand_id, url); rediscovery refreshes the
// descriptive fields without duplicating rows.
func (s *BrandStore) UpsertURLs(_ context.Context, brandID string, urls []brand.NewURL) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byURL, ok := s.urls[brandID]
	if !ok {
		byURL = make(map[string]brand.BrandURL)
		s.urls[brandID] = byURL
	}
	now := time.Now().UTC()
	for _, nu := range urls {
		row, exists := byURL[nu.URL]
		if !exists {
			row = brand.BrandURL{
				ID:           uuid.NewString(),
				BrandID:      brandID,
				URL:          nu.URL,
				ScrapeStatus: brand.ScrapePending,
				CreatedAt:    now,
			}
		}
		row.Title = nu.Title
		row.Description = nu.Description
		row.Category = nu.Category
		row.Priority = nu.Priority
		row.DiscoveredVia = nu.DiscoveredVia
		row.UpdatedAt = now
		byURL[nu.URL] = row
	}
	return len(urls), nil
}

// ListURLs returns all URLs for a brand, highest priority first.
func (s *BrandStore) ListURLs(_ context.Context, brandID string) ([]brand.BrandURL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []brand.BrandURL
	for _, row := range s.urls[brandID] {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

// UpdateURLScrape records scrape/upload progress for one URL. A URL with
// no stored row is a no-op, matching the zero-row UPDATE in the Postgres
// store; scrape events routinely arrive for redirect targets and
// trailing-slash variants that mapping never recorded.
func (s *BrandStore) UpdateURLScrape(_ context.Context, brandID, url string, u brand.URLScrapeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.urls[brandID][url]
	if !ok {
		return nil
	}
	row.ScrapeStatus = u.Status
	if u.ContentLength != nil {
		row.ContentLength = *u.ContentLength
	}
	if u.ScrapedAt != nil {
		row.ScrapedAt = u.ScrapedAt
	}
	row.UpdatedAt = time.Now().UTC()
	s.urls[brandID][url] = row
	return nil
}

// FailActiveURLs transitions pending/scraping URLs to failed.
func (s *BrandStore) FailActiveURLs(_ context.Context, brandID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for url, row := range s.urls[brandID] {
		if row.ScrapeStatus == brand.ScrapePending || row.ScrapeStatus == brand.ScrapeScraping {
			row.ScrapeStatus = brand.ScrapeFailed
			row.UpdatedAt = time.Now().UTC()
			s.urls[brandID][url] = row
			n++
		}
	}
	return n, nil
}

// CountURLsByStatus tallies URLs by scrape status.
func (s *BrandStore) CountURLsByStatus(_ context.Context, brandID string) (map[brand.ScrapeStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[brand.ScrapeStatus]int)
	for _, row := range s.urls[brandID] {
		counts[row.ScrapeStatus]++
	}
	return counts, nil
}
