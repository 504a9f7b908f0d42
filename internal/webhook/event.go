// Package webhook verifies and applies scrape-service events to brand
// state.
package webhook

import "strings"

// Kind is the closed set of logical event kinds.
type Kind string

// Logical event kinds after namespace normalization.
const (
	KindStarted   Kind = "started"
	KindPage      Kind = "page"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
	KindUnknown   Kind = "unknown"
)

// NormalizeKind maps raw event type strings to a logical kind. The service
// namespaces types by job kind ("batch_scrape.completed", "crawl.page");
// only the suffix carries meaning. Unrecognized types map to KindUnknown
// and are acknowledged without processing.
func NormalizeKind(raw string) Kind {
	bare := raw
	if i := strings.LastIndexByte(raw, '.'); i >= 0 {
		bare = raw[i+1:]
	}
	switch bare {
	case "started":
		return KindStarted
	case "page":
		return KindPage
	case "completed":
		return KindCompleted
	case "failed":
		return KindFailed
	default:
		return KindUnknown
	}
}

// Event is the inbound webhook payload.
type Event struct {
	Success  bool          `json:"success"`
	Type     string        `json:"type"`
	ID       string        `json:"id"`
	Data     []PageData    `json:"data"`
	Metadata EventMetadata `json:"metadata"`
	Error    string        `json:"error,omitempty"`
}

// EventMetadata is the job metadata echoed back by the service; it joins
// events to the brand that started the job.
type EventMetadata struct {
	BrandID string `json:"brandId"`
	Domain  string `json:"domain"`
	Step    string `json:"step,omitempty"`
}

// PageData is one scraped page inside a page event.
type PageData struct {
	Markdown string       `json:"markdown"`
	Images   []string     `json:"images"`
	Metadata PageMetadata `json:"metadata"`
}

// PageMetadata carries the page's source URL and title.
type PageMetadata struct {
	SourceURL string `json:"sourceURL"`
	URL       string `json:"url"`
	Title     string `json:"title"`
}

// sourceURL resolves the page's canonical URL, preferring sourceURL.
func (p PageData) sourceURL() string {
	if p.Metadata.SourceURL != "" {
		return p.Metadata.SourceURL
	}
	return p.Metadata.URL
}
