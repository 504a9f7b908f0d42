package urlproc

import (
	"regexp"
	"strings"
)

// maxProcessedLen bounds the processed body stored alongside raw markdown.
const maxProcessedLen = 5000

// Page is scraped page content awaiting quality checks.
type Page struct {
	URL      string
	Title    string
	Markdown string
}

// ValidContent reports whether a scraped page is worth storing. Error
// pages, near-empty bodies, and generic error titles are skipped.
func ValidContent(p Page) bool {
	if strings.Contains(p.URL, "/404") || strings.Contains(p.URL, "/500") || strings.Contains(p.URL, "error") {
		return false
	}
	if p.Markdown != "" && len(p.Markdown) < 50 {
		return false
	}
	title := strings.ToLower(p.Title)
	if title != "" && (strings.Contains(title, "error") || strings.Contains(title, "not found")) {
		return false
	}
	return true
}

var (
	multiBlankPattern = regexp.MustCompile(`\n\s*\n\s*\n`)
	navLinePattern    = regexp.MustCompile(`(?m)^(Home|About|Contact|Blog|Products?)$`)
	footerPattern     = regexp.MustCompile(`(?m)©.*\d{4}.*$`)
	mdLinkPattern     = regexp.MustCompile(`\[.*?\]\(.*?\)`)
	mdHeaderPattern   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
)

// CleanContent strips navigation/footer noise and markdown artifacts from a
// page body to improve retrieval quality.
func CleanContent(content string) string {
	content = multiBlankPattern.ReplaceAllString(content, "\n\n")
	content = navLinePattern.ReplaceAllString(content, "")
	content = footerPattern.ReplaceAllString(content, "")
	content = mdLinkPattern.ReplaceAllString(content, "")
	content = mdHeaderPattern.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

// TruncateProcessed bounds the processed body length.
func TruncateProcessed(content string) string {
	if len(content) > maxProcessedLen {
		return content[:maxProcessedLen]
	}
	return content
}
