package cache

import "strings"

// EmbeddedNamespace is the URL slot used for loads with no registry URL,
// so embedded-only loads share one cache entry per cache path.
const EmbeddedNamespace = "__embedded"

// Key builds the deterministic cache key for a registry load:
// "<cachePath>::<url>", with an empty url mapped to EmbeddedNamespace.
func Key(cachePath, url string) string {
	if url == "" {
		url = EmbeddedNamespace
	}
	var b strings.Builder
	b.Grow(len(cachePath) + 2 + len(url))
	b.WriteString(cachePath)
	b.WriteString("::")
	b.WriteString(url)
	return b.String()
}
