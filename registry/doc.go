// Package registry loads and validates the provider/model catalog.
//
// A Loader resolves the catalog through a fallback chain (conditional
// network fetch with ETag revalidation, then the on-disk cache of the
// last good document, then an embedded document) and records where each
// result came from. Parse accepts both the canonical list-of-providers
// shape and the legacy map-keyed-by-slug shape, normalizing both into one
// model. A registry is usable only when its schema version matches and
// every provider carries a slug and at least one model.
//
// Loads degrade silently: a flaky network or a corrupt cache file yields
// the best remaining source, never an error. The one exception is
// cancellation, which always propagates to the caller.
package registry
