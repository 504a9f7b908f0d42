// Package postgres provides the Postgres-backed brand store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandscan/brandscan/internal/brand"
	"github.com/brandscan/brandscan/internal/urlproc"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// BrandStore implements brand.Store on Postgres.
//
// Expected schema:
//
//	CREATE TABLE brands (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    name TEXT NOT NULL,
//	    slug TEXT NOT NULL,
//	    primary_domain TEXT NOT NULL UNIQUE,
//	    description TEXT NOT NULL DEFAULT '',
//	    logo_url TEXT NOT NULL DEFAULT '',
//	    discovery_status TEXT NOT NULL DEFAULT 'pending',
//	    metadata JSONB NOT NULL DEFAULT '{}',
//	    extracted_at TIMESTAMPTZ,
//	    ai_search_synced_at TIMESTAMPTZ,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE brand_urls (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    brand_id UUID NOT NULL REFERENCES brands(id),
//	    url TEXT NOT NULL,
//	    title TEXT NOT NULL DEFAULT '',
//	    description TEXT NOT NULL DEFAULT '',
//	    category TEXT NOT NULL DEFAULT 'other',
//	    priority INT NOT NULL DEFAULT 0,
//	    discovered_via TEXT NOT NULL DEFAULT '',
//	    scrape_status TEXT NOT NULL DEFAULT 'pending',
//	    content_length INT NOT NULL DEFAULT 0,
//	    scraped_at TIMESTAMPTZ,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    UNIQUE (brand_id, url)
//	);
type BrandStore struct {
	db DB
}

// New connects a pool and wraps it in a BrandStore.
func New(ctx context.Context, cfg Config) (*BrandStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &BrandStore{db: pool}, nil
}

// NewWithDB constructs a store from an existing pool (primarily for tests).
func NewWithDB(db DB) (*BrandStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &BrandStore{db: db}, nil
}

// Close releases the underlying pool.
func (s *BrandStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

const brandColumns = `id, name, slug, primary_domain, description, logo_url,
	discovery_status, metadata, extracted_at, ai_search_synced_at,
	created_at, updated_at`

func scanBrand(row pgx.Row) (*brand.Brand, error) {
	var b brand.Brand
	var metadataJSON []byte
	err := row.Scan(
		&b.ID, &b.Name, &b.Slug, &b.PrimaryDomain, &b.Description, &b.LogoURL,
		&b.DiscoveryStatus, &metadataJSON, &b.ExtractedAt, &b.AISearchSyncedAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, brand.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan brand: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &b.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal brand metadata: %w", err)
		}
	}
	return &b, nil
}

// GetBrandByID fetches one brand by primary key.
func (s *BrandStore) GetBrandByID(ctx context.Context, id string) (*brand.Brand, error) {
	query := `SELECT ` + brandColumns + ` FROM brands WHERE id = $1`
	return scanBrand(s.db.QueryRow(ctx, query, id))
}

// GetBrandByDomain fetches one brand by its unique primary domain.
func (s *BrandStore) GetBrandByDomain(ctx context.Context, domain string) (*brand.Brand, error) {
	query := `SELECT ` + brandColumns + ` FROM brands WHERE primary_domain = $1`
	return scanBrand(s.db.QueryRow(ctx, query, domain))
}

// CreateBrand inserts a new brand row.
func (s *BrandStore) CreateBrand(ctx context.Context, nb brand.NewBrand) (*brand.Brand, error) {
	metadataJSON, err := json.Marshal(nb.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	query := `
		INSERT INTO brands (name, slug, primary_domain, description, logo_url, discovery_status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + brandColumns
	return scanBrand(s.db.QueryRow(ctx, query,
		nb.Name, nb.Slug, nb.PrimaryDomain, nb.Description, nb.LogoURL, nb.Status, metadataJSON,
	))
}

// UpdateBrand applies a partial mutation. The metadata patch is merged
// additively with JSONB concatenation so unrelated keys survive concurrent
// writers.
func (s *BrandStore) UpdateBrand(ctx context.Context, id string, u brand.Update) (*brand.Brand, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	next := 2

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}

	if u.Name != nil {
		addSet("name", *u.Name)
	}
	if u.Description != nil {
		addSet("description", *u.Description)
	}
	if u.LogoURL != nil {
		addSet("logo_url", *u.LogoURL)
	}
	if u.Status != nil {
		addSet("discovery_status", *u.Status)
	}
	if u.ExtractedAt != nil {
		addSet("extracted_at", *u.ExtractedAt)
	}
	if u.AISearchSyncedAt != nil {
		addSet("ai_search_synced_at", *u.AISearchSyncedAt)
	}
	if u.MetadataPatch != nil {
		patchJSON, err := json.Marshal(u.MetadataPatch)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata patch: %w", err)
		}
		sets = append(sets, fmt.Sprintf("metadata = COALESCE(metadata, '{}'::jsonb) || $%d::jsonb", next))
		args = append(args, patchJSON)
		next++
	}

	query := fmt.Sprintf(
		`UPDATE brands SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), brandColumns,
	)
	return scanBrand(s.db.QueryRow(ctx, query, args...))
}

// ListPendingExtract selects brands eligible for the extract-completion
// sweep, oldest first for fairness.
func (s *BrandStore) ListPendingExtract(ctx context.Context, limit int) ([]brand.Brand, error) {
	query := `
		SELECT ` + brandColumns + `
		FROM brands
		WHERE discovery_status IN ('pending', 'scraped')
		  AND extracted_at IS NULL
		  AND metadata->>'extract_job_id' IS NOT NULL
		ORDER BY created_at ASC
		LIMIT $1`
	return s.queryBrands(ctx, query, limit)
}

// ListFinalizable selects brands ready for finalization: extraction done,
// search sync not yet stamped.
func (s *BrandStore) ListFinalizable(ctx context.Context, limit int) ([]brand.Brand, error) {
	query := `
		SELECT ` + brandColumns + `
		FROM brands
		WHERE discovery_status IN ('mapped', 'scraped')
		  AND ai_search_synced_at IS NULL
		  AND extracted_at IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $1`
	return s.queryBrands(ctx, query, limit)
}

func (s *BrandStore) queryBrands(ctx context.Context, query string, args ...any) ([]brand.Brand, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query brands: %w", err)
	}
	defer rows.Close()

	var out []brand.Brand
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brands: %w", err)
	}
	return out, nil
}

// UpsertURLs bulk-upserts discovered URLs keyed by (brand_id, url).
func (s *BrandStore) UpsertURLs(ctx context.Context, brandID string, urls []brand.NewURL) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(urls))
	args := []any{brandID}
	next := 2
	for _, u := range urls {
		values = append(values, fmt.Sprintf("($1, $%d, $%d, $%d, $%d, $%d, $%d)",
			next, next+1, next+2, next+3, next+4, next+5))
		args = append(args, u.URL, u.Title, u.Description, u.Category, u.Priority, u.DiscoveredVia)
		next += 6
	}

	query := fmt.Sprintf(`
		INSERT INTO brand_urls (brand_id, url, title, description, category, priority, discovered_via)
		VALUES %s
		ON CONFLICT (brand_id, url) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			discovered_via = EXCLUDED.discovered_via,
			updated_at = NOW()`,
		strings.Join(values, ", "))

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upsert brand urls: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListURLs returns all URLs for a brand, highest priority first.
func (s *BrandStore) ListURLs(ctx context.Context, brandID string) ([]brand.BrandURL, error) {
	query := `
		SELECT id, brand_id, url, title, description, category, priority,
		       discovered_via, scrape_status, content_length, scraped_at,
		       created_at, updated_at
		FROM brand_urls
		WHERE brand_id = $1
		ORDER BY priority DESC`
	rows, err := s.db.Query(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("query brand urls: %w", err)
	}
	defer rows.Close()

	var out []brand.BrandURL
	for rows.Next() {
		var u brand.BrandURL
		var category string
		if err := rows.Scan(
			&u.ID, &u.BrandID, &u.URL, &u.Title, &u.Description, &category,
			&u.Priority, &u.DiscoveredVia, &u.ScrapeStatus, &u.ContentLength,
			&u.ScrapedAt, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan brand url: %w", err)
		}
		u.Category = urlproc.Category(category)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brand urls: %w", err)
	}
	return out, nil
}

// UpdateURLScrape records per-URL scrape/upload progress.
func (s *BrandStore) UpdateURLScrape(ctx context.Context, brandID, url string, u brand.URLScrapeUpdate) error {
	query := `
		UPDATE brand_urls SET
			scrape_status = $3,
			content_length = COALESCE($4, content_length),
			scraped_at = COALESCE($5, scraped_at),
			updated_at = NOW()
		WHERE brand_id = $1 AND url = $2`
	if _, err := s.db.Exec(ctx, query, brandID, url, u.Status, u.ContentLength, u.ScrapedAt); err != nil {
		return fmt.Errorf("update url scrape status: %w", err)
	}
	return nil
}

// FailActiveURLs transitions pending/scraping URLs to failed so a failed
// job leaves nothing dangling.
func (s *BrandStore) FailActiveURLs(ctx context.Context, brandID string) (int64, error) {
	query := `
		UPDATE brand_urls SET scrape_status = 'failed', updated_at = NOW()
		WHERE brand_id = $1 AND scrape_status IN ('pending', 'scraping')`
	tag, err := s.db.Exec(ctx, query, brandID)
	if err != nil {
		return 0, fmt.Errorf("fail active urls: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountURLsByStatus tallies brand_urls rows by scrape status.
func (s *BrandStore) CountURLsByStatus(ctx context.Context, brandID string) (map[brand.ScrapeStatus]int, error) {
	query := `SELECT scrape_status, COUNT(*) FROM brand_urls WHERE brand_id = $1 GROUP BY scrape_status`
	rows, err := s.db.Query(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("count urls by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[brand.ScrapeStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[brand.ScrapeStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}
