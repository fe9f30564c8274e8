package registry

// Source records where a load result came from, for observability and for
// the fallback-chain guarantees.
type Source int

const (
	// SourceNone means no source yielded a registry.
	SourceNone Source = iota
	// SourceNetwork means a fresh document was fetched and parsed.
	SourceNetwork
	// SourceCache means the on-disk cache was used directly (no URL given).
	SourceCache
	// SourceCacheNotModified means the server confirmed the cached copy via
	// ETag revalidation.
	SourceCacheNotModified
	// SourceCacheFallback means the network failed and the on-disk cache
	// stood in.
	SourceCacheFallback
	// SourceEmbedded means the bundled fallback document was used.
	SourceEmbedded
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceNetwork:
		return "network"
	case SourceCache:
		return "cache"
	case SourceCacheNotModified:
		return "cache-not-modified"
	case SourceCacheFallback:
		return "cache-fallback"
	case SourceEmbedded:
		return "embedded"
	default:
		return "unknown"
	}
}

// LoadResult is the outcome of one registry load. Registry is nil only
// when every source in the chain came up empty.
type LoadResult struct {
	Registry *Registry
	Source   Source
	ETag     string
}
