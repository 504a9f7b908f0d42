package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Item is one piece of scraped page content to persist.
type Item struct {
	URL              string
	Title            string
	Content          string
	ProcessedContent string
	ContentType      string
	Images           []string
}

// formatMarkdown renders an item as a self-describing document: a
// front-matter block followed by the page body.
func formatMarkdown(item Item, index int, now time.Time) string {
	ts := now.UTC().Format(time.RFC3339)
	title := item.Title
	if title == "" {
		title = "Untitled"
	}
	contentType := item.ContentType
	if contentType == "" {
		contentType = "page"
	}
	images := item.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, _ := json.Marshal(images)

	var b strings.Builder
	fmt.Fprintf(&b, "---\ntitle: %s\nurl: %s\nextracted_at: %s\ncontent_type: %s\nindex: %d\nimages: %s\n---\n\n",
		title, item.URL, ts, contentType, index, imagesJSON)
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Source URL:** [%s](%s)\n**Extracted:** %s\n**Content Type:** %s\n", item.URL, item.URL, ts, contentType)
	if len(images) > 0 {
		fmt.Fprintf(&b, "**Images Found:** %d\n\n## Page Images\n", len(images))
		for i, img := range images {
			fmt.Fprintf(&b, "![Page Image %d](%s)\n", i+1, img)
		}
	}
	body := item.ProcessedContent
	if body == "" {
		body = item.Content
	}
	if body == "" {
		body = "No content available"
	}
	fmt.Fprintf(&b, "\n## Content\n\n%s\n", body)
	return b.String()
}
