package provider

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonwraymond/modelops/registry"
)

// Config is the effective configuration for one provider call: endpoint,
// model, credential, and timeouts. It is a value type: resolving a new
// one never touches the inputs it was derived from.
type Config struct {
	Provider       string
	Model          string
	Endpoint       string
	APIKey         string
	AuthType       string
	AuthHeader     string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// Resolution errors.
var (
	ErrNoRegistry      = errors.New("provider: no registry available")
	ErrUnknownProvider = errors.New("provider: unknown provider")
	ErrUnknownModel    = errors.New("provider: unknown model")
	ErrMissingAPIKey   = errors.New("provider: missing API key")
)

// Effective resolves a configuration snapshot for (slug, modelID) from a
// loaded registry, overlaid on base. The base and the registry are read,
// never written: callers that previously mutated a shared settings object
// and restored it in a finally block get a fresh value instead.
//
// Resolution order: registry values win for endpoint, model identity,
// auth and timeouts; base supplies anything the registry leaves blank
// (including a pre-resolved APIKey, which skips the env lookup).
func Effective(base Config, reg *registry.Registry, slug, modelID string) (Config, error) {
	if reg == nil {
		return Config{}, ErrNoRegistry
	}

	p := reg.Provider(slug)
	if p == nil {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownProvider, slug)
	}
	m := p.Model(modelID)
	if m == nil {
		return Config{}, fmt.Errorf("%w: %q for provider %q", ErrUnknownModel, modelID, slug)
	}

	cfg := base
	cfg.Provider = p.Slug
	cfg.Model = m.ID // canonical id, even when looked up by alias

	if p.Endpoint != "" {
		cfg.Endpoint = p.Endpoint
	}
	if p.Auth.Type != "" {
		cfg.AuthType = p.Auth.Type
	}
	if p.Auth.Header != "" {
		cfg.AuthHeader = p.Auth.Header
	}
	if p.Timeouts.ConnectMS > 0 {
		cfg.ConnectTimeout = time.Duration(p.Timeouts.ConnectMS) * time.Millisecond
	}
	if p.Timeouts.RequestMS > 0 {
		cfg.RequestTimeout = time.Duration(p.Timeouts.RequestMS) * time.Millisecond
	}

	if cfg.APIKey == "" {
		key, err := ResolveAPIKey(p.Auth)
		if err != nil {
			return Config{}, err
		}
		cfg.APIKey = key
	}

	return cfg, nil
}

// ResolveAPIKey reads the provider credential from the environment
// variable named by the auth descriptor. The variable name may itself be
// a "${VAR}" reference, resolved one level deep. A descriptor with no env
// name resolves to an empty key without error (some providers are
// keyless).
func ResolveAPIKey(auth registry.AuthDescriptor) (string, error) {
	name := strings.TrimSpace(auth.Env)
	if name == "" {
		return "", nil
	}

	if strings.HasPrefix(name, "${") && strings.HasSuffix(name, "}") {
		name = name[2 : len(name)-1]
	}

	value, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrMissingAPIKey, name)
	}
	return value, nil
}
