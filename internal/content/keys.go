package content

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/brandscan/brandscan/internal/urlproc"
)

var (
	extPattern      = regexp.MustCompile(`\.[^/.]+$`)
	unsafePattern   = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	hyphenRunEscape = regexp.MustCompile(`--+`)
)

// BrandPrefix returns the tenant-scoped prefix for one brand/domain pair.
func BrandPrefix(brandID, domain string) string {
	normalized := strings.TrimPrefix(domain, "https://")
	normalized = strings.TrimPrefix(normalized, "http://")
	normalized = strings.TrimPrefix(normalized, "www.")
	normalized = strings.ToLower(normalized)
	return fmt.Sprintf("brands/%s/%s", brandID, normalized)
}

// BuildKey derives the storage key for a page:
// brands/{brandId}/{domain}/content/{category}/{file}-{unixMillis}.md.
// The key is a pure function of its inputs plus now, so the same logical
// page never collides with another brand's content.
func BuildKey(brandID, domain, pageURL string, index int, now time.Time) string {
	prefix := BrandPrefix(brandID, domain)
	ts := now.UnixMilli()

	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Sprintf("%s/content/other/page-%d-%d.md", prefix, index, ts)
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	filename := "index"
	if len(segments) > 0 {
		filename = segments[len(segments)-1]
	}
	filename = extPattern.ReplaceAllString(filename, "")
	if filename == "" {
		filename = fmt.Sprintf("page-%d", index)
	}
	filename = unsafePattern.ReplaceAllString(filename, "-")
	filename = hyphenRunEscape.ReplaceAllString(filename, "-")
	filename = strings.Trim(filename, "-")
	if filename == "" {
		filename = fmt.Sprintf("page-%d", index)
	}

	category := urlproc.ClassifyContent(pageURL)
	return fmt.Sprintf("%s/content/%s/%s-%d.md", prefix, category, filename, ts)
}
