package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPConfig controls the HTTP client for the scraping service.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient talks to the scraping service's REST API.
type HTTPClient struct {
	cfg    HTTPConfig
	http   *http.Client
	logger *zap.Logger
}

// NewHTTPClient constructs an HTTPClient.
func NewHTTPClient(cfg HTTPConfig, logger *zap.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("scrape base url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("scrape api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

type extractStartResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

// StartExtract begins an async extraction job for the domain.
func (c *HTTPClient) StartExtract(ctx context.Context, domain string) (string, error) {
	target := domain
	if !strings.HasPrefix(target, "http") {
		target = "https://" + target
	}
	payload := map[string]any{
		"urls":              []string{target},
		"prompt":            "Extract brand information including company name, description, industry, and logo URL.",
		"ignoreInvalidURLs": true,
	}
	var resp extractStartResponse
	if err := c.do(ctx, http.MethodPost, "/v2/extract", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("extract start rejected: %s", orUnknown(resp.Error))
	}
	return resp.ID, nil
}

type extractStatusResponse struct {
	Success bool        `json:"success"`
	Status  string      `json:"status"`
	Data    ExtractData `json:"data"`
	Error   string      `json:"error"`
}

// ExtractStatus polls an extract job.
func (c *HTTPClient) ExtractStatus(ctx context.Context, jobID string) (ExtractResult, error) {
	var resp extractStatusResponse
	if err := c.do(ctx, http.MethodGet, "/v2/extract/"+jobID, nil, &resp); err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{
		Status: JobStatus(resp.Status),
		Data:   resp.Data,
		Error:  resp.Error,
	}, nil
}

type mapResponse struct {
	Success bool      `json:"success"`
	Links   []MapLink `json:"links"`
	Error   string    `json:"error"`
}

// MapSite discovers site URLs, sitemap included.
func (c *HTTPClient) MapSite(ctx context.Context, siteURL string, opts MapOptions) ([]MapLink, error) {
	payload := map[string]any{
		"url":               siteURL,
		"limit":             opts.Limit,
		"sitemap":           "include",
		"includeSubdomains": opts.IncludeSubdomains,
	}
	var resp mapResponse
	if err := c.do(ctx, http.MethodPost, "/v2/map", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("map rejected: %s", resp.Error)
	}
	return resp.Links, nil
}

type batchScrapeResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

// StartBatchScrape begins an async batch scrape requesting markdown and
// image extraction with main-content filtering, ad blocking, and base64
// image stripping.
func (c *HTTPClient) StartBatchScrape(ctx context.Context, urls []string, opts BatchScrapeOptions) (string, error) {
	payload := map[string]any{
		"urls": urls,
		"options": map[string]any{
			"formats":            []string{"markdown", "images"},
			"onlyMainContent":    true,
			"timeout":            30000,
			"blockAds":           true,
			"removeBase64Images": true,
		},
		"ignoreInvalidURLs": true,
		"webhook":           opts.Webhook,
	}
	var resp batchScrapeResponse
	if err := c.do(ctx, http.MethodPost, "/v2/batch/scrape", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("batch scrape rejected: %s", orUnknown(resp.Error))
	}
	return resp.ID, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Warn("scrape service error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func orUnknown(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
