package urlproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidContent(t *testing.T) {
	longBody := strings.Repeat("Useful product information. ", 5)

	assert.True(t, ValidContent(Page{URL: "https://acme.io/about", Title: "About", Markdown: longBody}))
	assert.True(t, ValidContent(Page{URL: "https://acme.io/about", Markdown: ""}))

	assert.False(t, ValidContent(Page{URL: "https://acme.io/404", Markdown: longBody}))
	assert.False(t, ValidContent(Page{URL: "https://acme.io/500", Markdown: longBody}))
	assert.False(t, ValidContent(Page{URL: "https://acme.io/error-page", Markdown: longBody}))
	assert.False(t, ValidContent(Page{URL: "https://acme.io/about", Markdown: "too short"}))
	assert.False(t, ValidContent(Page{URL: "https://acme.io/about", Title: "404 Not Found", Markdown: longBody}))
	assert.False(t, ValidContent(Page{URL: "https://acme.io/about", Title: "Server Error", Markdown: longBody}))
}

func TestCleanContent(t *testing.T) {
	in := "# Welcome\n\n\n\nHome\nSome real text [link](https://x.io) here.\n© Acme 2026 all rights reserved\n"
	out := CleanContent(in)

	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "[link]")
	assert.NotContains(t, out, "©")
	assert.Contains(t, out, "Some real text")
	assert.NotContains(t, out, "\nHome\n")
}

func TestTruncateProcessed(t *testing.T) {
	short := "short body"
	assert.Equal(t, short, TruncateProcessed(short))

	long := strings.Repeat("x", 6000)
	got := TruncateProcessed(long)
	assert.Len(t, got, 5000)
}
