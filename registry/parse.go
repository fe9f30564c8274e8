package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Parse errors. All of them mean "no registry from this document" to the
// loader, which then continues down the fallback chain.
var (
	ErrEmptyDocument      = errors.New("registry: empty document")
	ErrUnknownShape       = errors.New("registry: unrecognized document shape")
	ErrUnsupportedVersion = errors.New("registry: unsupported schema version")
	ErrInvalidProvider    = errors.New("registry: invalid provider")
)

// rawDocument defers the providers field so the two accepted shapes can be
// told apart before full decoding.
type rawDocument struct {
	Version   string          `json:"version"`
	Providers json.RawMessage `json:"providers"`
}

// Parse deserializes and validates a registry document.
//
// Two shapes are accepted: the canonical list of providers, and the legacy
// shape where providers is a map keyed by slug (the map key supplies the
// slug when the nested object omits it). Dispatch happens once, on the
// first token of the providers field; both shapes normalize into the
// canonical model before validation.
func Parse(data []byte) (*Registry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registry: decode document: %w", err)
	}

	providers, err := parseProviders(raw.Providers)
	if err != nil {
		return nil, err
	}

	reg := &Registry{Version: raw.Version, Providers: providers}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func parseProviders(raw json.RawMessage) ([]ProviderDescriptor, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrUnknownShape
	}

	switch trimmed[0] {
	case '[':
		var providers []ProviderDescriptor
		if err := json.Unmarshal(trimmed, &providers); err != nil {
			return nil, fmt.Errorf("registry: decode providers list: %w", err)
		}
		return providers, nil

	case '{':
		var bySlug map[string]ProviderDescriptor
		if err := json.Unmarshal(trimmed, &bySlug); err != nil {
			return nil, fmt.Errorf("registry: decode legacy providers map: %w", err)
		}

		slugs := make([]string, 0, len(bySlug))
		for slug := range bySlug {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)

		providers := make([]ProviderDescriptor, 0, len(bySlug))
		for _, slug := range slugs {
			p := bySlug[slug]
			if p.Slug == "" {
				p.Slug = slug
			}
			providers = append(providers, p)
		}
		return providers, nil

	default:
		return nil, ErrUnknownShape
	}
}

// Validate enforces the usability rules: supported version, and every
// provider carrying a non-blank slug and at least one model. A registry
// failing these is treated as unparseable by the loader.
func (r *Registry) Validate() error {
	if r.Version != SchemaVersion {
		return fmt.Errorf("%w: got %q, want %q", ErrUnsupportedVersion, r.Version, SchemaVersion)
	}
	for i := range r.Providers {
		p := &r.Providers[i]
		if strings.TrimSpace(p.Slug) == "" {
			return fmt.Errorf("%w: provider %d (%q) has a blank slug", ErrInvalidProvider, i, p.Name)
		}
		if len(p.Models) == 0 {
			return fmt.Errorf("%w: provider %q has no models", ErrInvalidProvider, p.Slug)
		}
	}
	return nil
}
