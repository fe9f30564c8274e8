package registry

import "strings"

// SchemaVersion is the registry document version this package understands.
const SchemaVersion = "1"

// Registry is a validated, immutable provider catalog. A successful load
// supersedes (never mutates) the previous Registry.
type Registry struct {
	Version   string               `json:"version"`
	Providers []ProviderDescriptor `json:"providers"`
}

// ProviderDescriptor describes one AI provider.
type ProviderDescriptor struct {
	Name      string               `json:"name"`
	Slug      string               `json:"slug"`
	Endpoint  string               `json:"endpoint"`
	Auth      AuthDescriptor       `json:"auth"`
	Models    []ModelDescriptor    `json:"models"`
	Timeouts  TimeoutDescriptor    `json:"timeouts"`
	Retries   RetryDescriptor      `json:"retries"`
	Integrity *IntegrityDescriptor `json:"integrity,omitempty"`
}

// AuthDescriptor describes how to authenticate against a provider. Env
// names the environment variable holding the credential; Header names the
// request header it is sent in.
type AuthDescriptor struct {
	Type   string `json:"type"`
	Env    string `json:"env"`
	Header string `json:"header"`
}

// TimeoutDescriptor carries provider timeouts in milliseconds.
type TimeoutDescriptor struct {
	ConnectMS int `json:"connect_ms"`
	RequestMS int `json:"request_ms"`
}

// RetryDescriptor carries the provider retry policy.
type RetryDescriptor struct {
	Max       int `json:"max"`
	BackoffMS int `json:"backoff_ms"`
}

// IntegrityDescriptor carries optional integrity metadata: the hex SHA-256
// of the provider's canonical models JSON and a detached JWS over it.
type IntegrityDescriptor struct {
	SHA256    string `json:"sha256,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// ModelDescriptor describes one model offered by a provider.
type ModelDescriptor struct {
	ID            string                 `json:"id"`
	Label         string                 `json:"label"`
	Aliases       []string               `json:"aliases,omitempty"`
	ContextTokens int                    `json:"context_tokens"`
	Pricing       PricingDescriptor      `json:"pricing"`
	Capabilities  CapabilitiesDescriptor `json:"capabilities"`
	Metadata      ModelMetadata          `json:"metadata"`
}

// PricingDescriptor carries per-1k-token prices.
type PricingDescriptor struct {
	InputPer1K  float64 `json:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k"`
}

// CapabilitiesDescriptor flags what a model supports.
type CapabilitiesDescriptor struct {
	Stream     bool `json:"stream"`
	JSONMode   bool `json:"json_mode"`
	Tools      bool `json:"tools"`
	ToolChoice bool `json:"tool_choice"`
}

// ModelMetadata carries free-form ranking hints.
type ModelMetadata struct {
	Tier    string `json:"tier,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// Provider looks up a provider by slug, case-insensitively. Returns nil
// when absent.
func (r *Registry) Provider(slug string) *ProviderDescriptor {
	if r == nil {
		return nil
	}
	for i := range r.Providers {
		if strings.EqualFold(r.Providers[i].Slug, slug) {
			return &r.Providers[i]
		}
	}
	return nil
}

// Model looks up a model by ID or alias, case-insensitively. Returns nil
// when absent.
func (p *ProviderDescriptor) Model(idOrAlias string) *ModelDescriptor {
	if p == nil {
		return nil
	}
	for i := range p.Models {
		m := &p.Models[i]
		if strings.EqualFold(m.ID, idOrAlias) {
			return m
		}
		for _, alias := range m.Aliases {
			if strings.EqualFold(alias, idOrAlias) {
				return m
			}
		}
	}
	return nil
}
