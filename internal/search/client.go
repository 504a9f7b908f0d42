// Package search triggers re-indexing of brand content in the hosted AI
// search service. Syncs are best effort; the pipeline completes whether or
// not indexing succeeds.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Syncer asks the search backend to pick up newly written content.
type Syncer interface {
	// Sync requests a re-index for the brand's content prefix.
	Sync(ctx context.Context, brandID string) error
}

// Config holds connection settings for the hosted search API.
type Config struct {
	BaseURL   string
	AccountID string
	Instance  string
	APIToken  string
	Timeout   time.Duration
}

// HTTPSyncer calls the hosted search API over HTTP.
type HTTPSyncer struct {
	cfg    Config
	client *http.Client
}

// NewHTTPSyncer constructs an HTTPSyncer.
func NewHTTPSyncer(cfg Config) *HTTPSyncer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPSyncer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Sync issues a PATCH against the instance sync endpoint. The service
// re-scans the whole bucket; the brand id is informational only.
func (s *HTTPSyncer) Sync(ctx context.Context, brandID string) error {
	u := fmt.Sprintf("%s/accounts/%s/autorag/rags/%s/sync",
		strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.AccountID, s.cfg.Instance)

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, nil)
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sync request for brand %s: %w", brandID, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sync returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && !parsed.Success {
		return fmt.Errorf("sync reported failure for brand %s", brandID)
	}
	return nil
}

// NoopSyncer satisfies Syncer when no search backend is configured.
type NoopSyncer struct{}

// Sync does nothing.
func (NoopSyncer) Sync(context.Context, string) error { return nil }
