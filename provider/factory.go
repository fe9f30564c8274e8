package provider

import (
	"context"

	"github.com/jonwraymond/modelops/registry"
)

// Client is an opaque provider client handle. The concrete type belongs
// to the per-vendor adapter; this core only moves it around.
type Client any

// Factory constructs provider clients from an effective configuration.
// Per-vendor adapters implement this.
type Factory interface {
	New(ctx context.Context, cfg Config) (Client, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, cfg Config) (Client, error)

// New calls f.
func (f FactoryFunc) New(ctx context.Context, cfg Config) (Client, error) {
	return f(ctx, cfg)
}

// RegistrySource yields the most recently loaded registry. *registry.Loader
// is the usual implementation; tests inject static ones.
type RegistrySource interface {
	Load(ctx context.Context) (registry.LoadResult, error)
}

// StaticRegistry adapts an already-loaded registry to RegistrySource.
type StaticRegistry struct {
	Registry *registry.Registry
}

// Load returns the wrapped registry tagged as a cache hit.
func (s StaticRegistry) Load(context.Context) (registry.LoadResult, error) {
	return registry.LoadResult{Registry: s.Registry, Source: registry.SourceCache}, nil
}

// RegistryFactory decorates a Factory with registry-driven configuration:
// each New resolves an effective config snapshot for the requested
// provider and model, then delegates to the wrapped factory. The base
// config it was built with is never modified.
type RegistryFactory struct {
	inner  Factory
	source RegistrySource
	base   Config
}

// NewRegistryFactory creates the decorator.
func NewRegistryFactory(inner Factory, source RegistrySource, base Config) *RegistryFactory {
	return &RegistryFactory{inner: inner, source: source, base: base}
}

// New resolves the effective configuration for (slug, modelID) from the
// current registry and delegates to the wrapped factory.
func (f *RegistryFactory) New(ctx context.Context, slug, modelID string) (Client, error) {
	res, err := f.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if res.Registry == nil {
		return nil, ErrNoRegistry
	}

	cfg, err := Effective(f.base, res.Registry, slug, modelID)
	if err != nil {
		return nil, err
	}
	return f.inner.New(ctx, cfg)
}
