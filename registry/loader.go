package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/modelops/cache"
	"github.com/jonwraymond/modelops/observe"
)

// DefaultCachePath is where the loader persists the last good document
// when no path is configured.
func DefaultCachePath() string {
	return filepath.Join(os.TempDir(), "modelops", "registry.json")
}

// LoaderConfig configures a registry Loader.
type LoaderConfig struct {
	// URL is the remote registry document. Empty means offline: the
	// loader only consults the on-disk cache and the embedded fallback.
	URL string

	// CachePath is the on-disk cache file for the last good document.
	// The ETag sidecar lives at CachePath + ".etag".
	// Default: DefaultCachePath()
	CachePath string

	// Embedded is the bundled fallback document. Default: the registry
	// shipped with this module.
	Embedded []byte

	// EmbeddedPath, when set, names a fallback document shipped outside
	// the binary (e.g. "docs/models.example.json"). It is resolved by
	// walking upward from the working directory and takes precedence
	// over Embedded.
	EmbeddedPath string

	// HTTPClient is used for the conditional GET.
	// Default: a client with a 30s timeout.
	HTTPClient *http.Client

	// Shared, when non-nil, is the TTL-bounded shared cache consulted
	// before any real loading. Its per-key lock guarantees at most one
	// concurrent underlying load per (CachePath, URL) key.
	Shared cache.Store

	// SharedTTL bounds the age of a shared-cache hit. Zero or negative
	// means entries never expire.
	SharedTTL time.Duration

	// VerifyKey, when non-nil, turns on integrity signature checking.
	// Providers failing verification are dropped from the result.
	VerifyKey any

	// Logger receives fallback and persistence diagnostics.
	// Default: no-op.
	Logger observe.Logger

	// Metrics receives load provenance counts. Default: no-op.
	Metrics observe.Metrics
}

// Loader resolves the model registry through a fallback chain: network
// (with ETag revalidation) → on-disk cache → embedded document. Failures
// along the chain degrade silently; only cancellation is ever surfaced as
// an error.
type Loader struct {
	config LoaderConfig
}

// NewLoader creates a registry loader.
func NewLoader(config LoaderConfig) *Loader {
	if config.CachePath == "" {
		config.CachePath = DefaultCachePath()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.Embedded == nil {
		config.Embedded = DefaultEmbedded()
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	return &Loader{config: config}
}

// Load resolves the registry. The returned error is non-nil only for
// cancellation; every other failure degrades to the best available source
// and is reported through LoadResult.Source.
func (l *Loader) Load(ctx context.Context) (LoadResult, error) {
	if l.config.Shared == nil {
		return l.measure(ctx, l.load)
	}

	key := cache.Key(l.config.CachePath, l.config.URL)
	if err := cache.ValidateKey(key); err != nil {
		// An oversized URL can't enter the shared cache; load unshared
		// rather than surface a non-cancellation error.
		l.config.Logger.Warn(ctx, "shared cache key unusable, loading unshared",
			observe.F("error", err.Error()),
		)
		return l.measure(ctx, l.load)
	}
	if v, ok := l.config.Shared.TryGet(key, l.config.SharedTTL); ok {
		if res, ok := v.(LoadResult); ok {
			return res, nil
		}
	}

	var res LoadResult
	err := l.config.Shared.WithLock(ctx, key, func(ctx context.Context) error {
		// A concurrent winner may have populated the key while this
		// caller waited for the lock.
		if v, ok := l.config.Shared.TryGet(key, l.config.SharedTTL); ok {
			if cached, ok := v.(LoadResult); ok {
				res = cached
				return nil
			}
		}

		var err error
		res, err = l.measure(ctx, l.load)
		if err != nil {
			return err
		}
		l.config.Shared.Set(key, res)
		return nil
	})
	if err != nil {
		return LoadResult{}, err
	}
	return res, nil
}

func (l *Loader) measure(ctx context.Context, load func(context.Context) (LoadResult, error)) (LoadResult, error) {
	start := time.Now()
	res, err := load(ctx)
	if err == nil {
		l.config.Metrics.RecordRegistryLoad(ctx, res.Source.String(), time.Since(start))
	}
	return res, err
}

func (l *Loader) load(ctx context.Context) (LoadResult, error) {
	if l.config.URL == "" {
		if reg, ok := l.fromDisk(ctx); ok {
			return LoadResult{Registry: reg, Source: SourceCache}, nil
		}
		if reg, ok := l.fromEmbedded(ctx); ok {
			return LoadResult{Registry: reg, Source: SourceEmbedded}, nil
		}
		return LoadResult{Source: SourceNone}, nil
	}

	etag := l.readETag()

	body, respETag, status, err := l.fetch(ctx, etag)
	switch {
	case err != nil:
		// Caller intent beats resilience: a cancellation is never
		// reinterpreted as a fallback-worthy failure.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return LoadResult{}, err
		}
		l.config.Logger.Warn(ctx, "registry fetch failed, falling back",
			observe.F("url", l.config.URL),
			observe.F("error", err.Error()),
		)
		return l.fallback(ctx, etag), nil

	case status == http.StatusNotModified:
		if reg, ok := l.fromDisk(ctx); ok {
			return LoadResult{Registry: reg, Source: SourceCacheNotModified, ETag: etag}, nil
		}
		// 304 against a missing cache file: the sidecar outlived the
		// cached document. Drop the sidecar and fall through.
		l.deleteETag(ctx)
		return l.fallback(ctx, ""), nil

	case status != http.StatusOK:
		l.config.Logger.Warn(ctx, "registry fetch returned unexpected status, falling back",
			observe.F("url", l.config.URL),
			observe.F("status", status),
		)
		return l.fallback(ctx, etag), nil
	}

	reg, err := l.parseVerified(ctx, body)
	if err != nil {
		l.config.Logger.Warn(ctx, "registry document unusable, falling back",
			observe.F("url", l.config.URL),
			observe.F("error", err.Error()),
		)
		return l.fallback(ctx, etag), nil
	}

	l.persist(ctx, body, respETag)
	return LoadResult{Registry: reg, Source: SourceNetwork, ETag: respETag}, nil
}

// fetch issues the conditional GET. A stored ETag rides along as
// If-None-Match.
func (l *Loader) fetch(ctx context.Context, etag string) (body []byte, respETag string, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.URL, nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("registry: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := l.config.HTTPClient.Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("registry: fetch %s: %w", l.config.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", resp.StatusCode, nil
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", 0, fmt.Errorf("registry: read response: %w", err)
	}
	return body, resp.Header.Get("ETag"), resp.StatusCode, nil
}

// fallback works down the chain after a failed network attempt: on-disk
// cache first, then the embedded document, then an empty result.
func (l *Loader) fallback(ctx context.Context, etag string) LoadResult {
	if reg, ok := l.fromDisk(ctx); ok {
		return LoadResult{Registry: reg, Source: SourceCacheFallback, ETag: etag}
	}
	if reg, ok := l.fromEmbedded(ctx); ok {
		return LoadResult{Registry: reg, Source: SourceEmbedded}
	}
	return LoadResult{Source: SourceNone}
}

func (l *Loader) fromDisk(ctx context.Context) (*Registry, bool) {
	data, err := os.ReadFile(l.config.CachePath)
	if err != nil {
		return nil, false
	}
	reg, err := l.parseVerified(ctx, data)
	if err != nil {
		l.config.Logger.Warn(ctx, "cached registry unusable",
			observe.F("path", l.config.CachePath),
			observe.F("error", err.Error()),
		)
		return nil, false
	}
	return reg, true
}

func (l *Loader) fromEmbedded(ctx context.Context) (*Registry, bool) {
	data := l.config.Embedded

	if l.config.EmbeddedPath != "" {
		if wd, err := os.Getwd(); err == nil {
			if path, ok := findUpward(wd, l.config.EmbeddedPath); ok {
				if fileData, err := os.ReadFile(path); err == nil {
					data = fileData
				}
			}
		}
	}
	if len(data) == 0 {
		return nil, false
	}

	reg, err := l.parseVerified(ctx, data)
	if err != nil {
		l.config.Logger.Warn(ctx, "embedded registry unusable",
			observe.F("error", err.Error()),
		)
		return nil, false
	}
	return reg, true
}

// parseVerified parses a document and applies integrity checks, dropping
// providers that fail them. A registry left with no providers after
// filtering is unusable.
func (l *Loader) parseVerified(ctx context.Context, data []byte) (*Registry, error) {
	reg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	kept := reg.Providers[:0:len(reg.Providers)]
	for i := range reg.Providers {
		p := &reg.Providers[i]
		if err := VerifyIntegrity(p, l.config.VerifyKey); err != nil {
			l.config.Logger.Warn(ctx, "provider failed integrity check, dropping",
				observe.F("provider", p.Slug),
				observe.F("error", err.Error()),
			)
			continue
		}
		kept = append(kept, *p)
	}
	if len(kept) == 0 && len(reg.Providers) > 0 {
		return nil, fmt.Errorf("%w: all providers failed integrity verification", ErrInvalidProvider)
	}
	reg.Providers = kept
	return reg, nil
}

// persist writes the raw body to the cache file and keeps the ETag sidecar
// in step with it. Persistence is best-effort: a full disk must not break
// a successful load.
func (l *Loader) persist(ctx context.Context, body []byte, etag string) {
	if err := os.MkdirAll(filepath.Dir(l.config.CachePath), 0o755); err != nil {
		l.config.Logger.Warn(ctx, "create registry cache dir failed",
			observe.F("path", l.config.CachePath),
			observe.F("error", err.Error()),
		)
		return
	}
	if err := os.WriteFile(l.config.CachePath, body, 0o644); err != nil {
		l.config.Logger.Warn(ctx, "write registry cache failed",
			observe.F("path", l.config.CachePath),
			observe.F("error", err.Error()),
		)
		return
	}

	if etag == "" {
		l.deleteETag(ctx)
		return
	}
	if err := os.WriteFile(l.etagPath(), []byte(etag), 0o644); err != nil {
		l.config.Logger.Warn(ctx, "write etag sidecar failed",
			observe.F("path", l.etagPath()),
			observe.F("error", err.Error()),
		)
	}
}

func (l *Loader) etagPath() string {
	return l.config.CachePath + ".etag"
}

func (l *Loader) readETag() string {
	data, err := os.ReadFile(l.etagPath())
	if err != nil {
		return ""
	}
	return string(data)
}

func (l *Loader) deleteETag(ctx context.Context) {
	if err := os.Remove(l.etagPath()); err != nil && !os.IsNotExist(err) {
		l.config.Logger.Warn(ctx, "remove etag sidecar failed",
			observe.F("path", l.etagPath()),
			observe.F("error", err.Error()),
		)
	}
}
