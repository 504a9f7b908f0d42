// Package urlproc normalizes domains and classifies URLs into the content
// taxonomy. Everything here is pure; it runs on both the webhook hot path
// and the bulk mapping path.
package urlproc

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize canonicalizes a domain-like input: strips the protocol, a
// leading "www.", any path/query/fragment and port, then lower-cases and
// trims. Inputs whose normalized form contains no dot are rejected.
func Normalize(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("empty domain")
	}

	decoded := input
	if unescaped, err := url.QueryUnescape(input); err == nil {
		decoded = unescaped
	}
	decoded = strings.TrimPrefix(decoded, "https://")
	decoded = strings.TrimPrefix(decoded, "http://")
	decoded = strings.TrimPrefix(decoded, "www.")
	if i := strings.IndexByte(decoded, '/'); i >= 0 {
		decoded = decoded[:i]
	}
	if i := strings.IndexByte(decoded, '?'); i >= 0 {
		decoded = decoded[:i]
	}
	if i := strings.IndexByte(decoded, '#'); i >= 0 {
		decoded = decoded[:i]
	}
	if i := strings.IndexByte(decoded, ':'); i >= 0 {
		decoded = decoded[:i]
	}
	decoded = strings.TrimSpace(strings.ToLower(decoded))

	if decoded == "" || !strings.Contains(decoded, ".") {
		return "", fmt.Errorf("invalid domain format: %q", input)
	}
	return decoded, nil
}
