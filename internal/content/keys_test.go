package content

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var keyTime = time.UnixMilli(1700000000000)

func TestBrandPrefix(t *testing.T) {
	assert.Equal(t, "brands/b1/acme.io", BrandPrefix("b1", "acme.io"))
	assert.Equal(t, "brands/b1/acme.io", BrandPrefix("b1", "https://www.Acme.IO"))
}

func TestBuildKey(t *testing.T) {
	ts := keyTime.UnixMilli()
	cases := []struct {
		name    string
		pageURL string
		want    string
	}{
		{
			"about page",
			"https://acme.io/about",
			fmt.Sprintf("brands/b1/acme.io/content/info/about-%d.md", ts),
		},
		{
			"extension stripped",
			"https://acme.io/docs/setup.html",
			fmt.Sprintf("brands/b1/acme.io/content/docs/setup-%d.md", ts),
		},
		{
			"homepage",
			"https://acme.io/",
			fmt.Sprintf("brands/b1/acme.io/content/info/index-%d.md", ts),
		},
		{
			"unsafe chars collapsed",
			"https://acme.io/blog/hello world!!",
			fmt.Sprintf("brands/b1/acme.io/content/blog/hello-world-%d.md", ts),
		},
		{
			"malformed url falls back",
			"://nope",
			fmt.Sprintf("brands/b1/acme.io/content/other/page-3-%d.md", ts),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BuildKey("b1", "acme.io", tc.pageURL, 3, keyTime))
		})
	}
}

func TestBuildKeyTenantIsolation(t *testing.T) {
	a := BuildKey("brand-a", "acme.io", "https://acme.io/about", 0, keyTime)
	b := BuildKey("brand-b", "acme.io", "https://acme.io/about", 0, keyTime)
	assert.NotEqual(t, a, b)
}
