package urlproc

import (
	"net/url"
	"sort"
	"strings"
)

// Category is the content taxonomy used for storage keys and brand_urls rows.
type Category string

// Taxonomy values. CategoryOther is the fallback for anything unmatched.
const (
	CategoryInfo  Category = "info"
	CategoryBlog  Category = "blog"
	CategoryDocs  Category = "docs"
	CategoryShop  Category = "shop"
	CategoryOther Category = "other"
)

// classifyOrder is the tie-break order: on equal scores the earlier
// category wins.
var classifyOrder = []Category{CategoryInfo, CategoryBlog, CategoryDocs, CategoryShop}

// selectOrder biases downstream consumers toward info/commerce content.
var selectOrder = []Category{CategoryInfo, CategoryShop, CategoryDocs, CategoryBlog, CategoryOther}

type categoryPatterns struct {
	subdomains []string
	paths      []string
	titles     []string
}

var patterns = map[Category]categoryPatterns{
	CategoryInfo: {
		subdomains: []string{"www", "main", "corporate", "about"},
		paths: []string{
			"about", "company", "team", "careers", "contact", "investors",
			"leadership", "mission", "values", "home",
		},
		titles: []string{"about us", "our team", "careers", "contact us", "leadership", "company", "home"},
	},
	CategoryBlog: {
		subdomains: []string{"blog", "news", "media", "press", "stories"},
		paths: []string{
			"blog", "news", "articles", "updates", "press", "media",
			"stories", "insights", "newsroom",
		},
		titles: []string{"blog", "news", "article", "press", "update", "story"},
	},
	CategoryDocs: {
		subdomains: []string{"docs", "help", "support", "api", "developer", "dev"},
		paths: []string{
			"docs", "documentation", "help", "support", "guide", "api",
			"reference", "tutorial", "manual", "faq",
		},
		titles: []string{"documentation", "help", "guide", "api", "reference", "tutorial", "support"},
	},
	CategoryShop: {
		subdomains: []string{"shop", "store", "buy", "checkout", "cart", "marketplace"},
		paths: []string{
			"shop", "store", "buy", "cart", "checkout", "products", "catalog",
			"marketplace", "order", "pricing", "plans", "purchase",
		},
		titles: []string{"shop", "store", "buy", "product", "catalog", "marketplace", "pricing"},
	},
}

// Scoring weights. Subdomain matches dominate path matches, which dominate
// title keyword matches; the homepage gets an extra nudge toward info.
const (
	subdomainScore = 100
	pathScore      = 50
	titleScore     = 25
	homepageBonus  = 30
)

// Link is a discovered URL with optional page metadata.
type Link struct {
	URL         string
	Title       string
	Description string
}

// ScoredLink is a Link annotated with its winning category score.
type ScoredLink struct {
	Link
	Priority int
}

// Classify maps a URL (and optional title) to a category with a relevance
// score. Malformed URLs classify as other with score 0.
func Classify(rawURL, title string) (Category, int) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return CategoryOther, 0
	}
	hostname := strings.ToLower(u.Hostname())
	pathname := strings.ToLower(u.Path)
	title = strings.ToLower(title)

	best := CategoryOther
	bestScore := 0
	for _, cat := range classifyOrder {
		p := patterns[cat]
		score := 0
		for _, sub := range p.subdomains {
			if strings.HasPrefix(hostname, sub+".") || strings.Contains(hostname, sub+".") {
				score += subdomainScore
				break
			}
		}
		for _, path := range p.paths {
			if strings.Contains(pathname, "/"+path) {
				score += pathScore
				break
			}
		}
		for _, kw := range p.titles {
			if title != "" && strings.Contains(title, kw) {
				score += titleScore
				break
			}
		}
		if cat == CategoryInfo && (pathname == "/" || pathname == "" || pathname == "/home") {
			score += homepageBonus
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}
	return best, bestScore
}

// ClassifyContent is the key-derivation variant of Classify: it ignores
// titles and subdomains so identical page URLs always land in the same
// storage prefix regardless of what metadata accompanied them.
func ClassifyContent(rawURL string) Category {
	u, err := url.Parse(rawURL)
	if err != nil {
		return CategoryOther
	}
	path := strings.ToLower(u.Path)

	if path == "/" || path == "" || path == "/home" {
		return CategoryInfo
	}
	switch {
	case containsAny(path, "/about", "/company", "/contact", "/careers", "/team", "/mission"):
		return CategoryInfo
	case containsAny(path, "/blog", "/news", "/article", "/press", "/stories", "/insights"):
		return CategoryBlog
	case containsAny(path, "/docs", "/documentation", "/support", "/help", "/faq", "/api", "/guide", "/reference", "/tutorial"):
		return CategoryDocs
	case containsAny(path, "/shop", "/store", "/buy", "/pricing", "/plans", "/product", "/features", "/catalog", "/marketplace"):
		return CategoryShop
	default:
		return CategoryOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Categorized groups scored links by category.
type Categorized map[Category][]ScoredLink

// CategorizeLinks scores every link and buckets it under its winning
// category.
func CategorizeLinks(links []Link) Categorized {
	out := Categorized{}
	for _, link := range links {
		cat, score := Classify(link.URL, link.Title)
		out[cat] = append(out[cat], ScoredLink{Link: link, Priority: score})
	}
	return out
}

// SelectTop takes the highest-priority links per category, at most
// maxPerCategory each, emitting categories in the fixed selection order
// (info, shop, docs, blog, other). The discovery pipeline scrapes every
// stored URL and does not call this; it serves callers that need a
// bounded, category-balanced subset.
func SelectTop(categorized Categorized, maxPerCategory int) []ScoredLink {
	var selected []ScoredLink
	for _, cat := range selectOrder {
		links := append([]ScoredLink(nil), categorized[cat]...)
		sort.SliceStable(links, func(i, j int) bool {
			return links[i].Priority > links[j].Priority
		})
		if len(links) > maxPerCategory {
			links = links[:maxPerCategory]
		}
		selected = append(selected, links...)
	}
	return selected
}
