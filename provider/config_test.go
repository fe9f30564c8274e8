package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/modelops/registry"
)

func testRegistry() *registry.Registry {
	return &registry.Registry{
		Version: registry.SchemaVersion,
		Providers: []registry.ProviderDescriptor{
			{
				Name:     "OpenAI",
				Slug:     "openai",
				Endpoint: "https://api.openai.com/v1",
				Auth: registry.AuthDescriptor{
					Type:   "bearer",
					Env:    "TEST_OPENAI_KEY",
					Header: "Authorization",
				},
				Models: []registry.ModelDescriptor{
					{ID: "gpt-4o", Aliases: []string{"gpt-4o-latest"}},
				},
				Timeouts: registry.TimeoutDescriptor{ConnectMS: 5000, RequestMS: 60000},
			},
			{
				Name:   "Local",
				Slug:   "local",
				Models: []registry.ModelDescriptor{{ID: "llama"}},
			},
		},
	}
}

func TestEffective_RegistryWins(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	base := Config{
		Endpoint:       "https://proxy.internal/v1",
		RequestTimeout: time.Second,
	}
	cfg, err := Effective(base, testRegistry(), "openai", "gpt-4o")
	if err != nil {
		t.Fatalf("Effective() = %v", err)
	}

	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want %q", cfg.Provider, "openai")
	}
	if cfg.Endpoint != "https://api.openai.com/v1" {
		t.Errorf("Endpoint = %q, want registry value", cfg.Endpoint)
	}
	if cfg.AuthType != "bearer" || cfg.AuthHeader != "Authorization" {
		t.Errorf("Auth = %q/%q, want bearer/Authorization", cfg.AuthType, cfg.AuthHeader)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
	}
	if cfg.RequestTimeout != time.Minute {
		t.Errorf("RequestTimeout = %v, want 1m", cfg.RequestTimeout)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want env value", cfg.APIKey)
	}
}

func TestEffective_BaseFillsBlanks(t *testing.T) {
	base := Config{
		Endpoint:       "http://localhost:8080",
		APIKey:         "preset",
		RequestTimeout: 2 * time.Second,
	}
	cfg, err := Effective(base, testRegistry(), "local", "llama")
	if err != nil {
		t.Fatalf("Effective() = %v", err)
	}

	// The local provider declares no endpoint, auth, or timeouts.
	if cfg.Endpoint != "http://localhost:8080" {
		t.Errorf("Endpoint = %q, want base value", cfg.Endpoint)
	}
	if cfg.APIKey != "preset" {
		t.Errorf("APIKey = %q, want preset base key", cfg.APIKey)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %v, want base value", cfg.RequestTimeout)
	}
}

func TestEffective_AliasResolvesToCanonicalID(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	cfg, err := Effective(Config{}, testRegistry(), "openai", "gpt-4o-latest")
	if err != nil {
		t.Fatalf("Effective() = %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q, want canonical %q", cfg.Model, "gpt-4o")
	}
}

func TestEffective_IsPure(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	base := Config{Endpoint: "http://base", RequestTimeout: time.Second}
	reg := testRegistry()
	before := *reg.Provider("openai")

	if _, err := Effective(base, reg, "openai", "gpt-4o"); err != nil {
		t.Fatalf("Effective() = %v", err)
	}

	if base.Endpoint != "http://base" || base.Provider != "" || base.APIKey != "" {
		t.Errorf("Base config was mutated: %+v", base)
	}
	after := *reg.Provider("openai")
	if before.Endpoint != after.Endpoint || before.Auth != after.Auth {
		t.Error("Registry descriptor was mutated")
	}
}

func TestEffective_Errors(t *testing.T) {
	reg := testRegistry()

	if _, err := Effective(Config{}, nil, "openai", "gpt-4o"); !errors.Is(err, ErrNoRegistry) {
		t.Errorf("Effective(nil registry) = %v, want ErrNoRegistry", err)
	}
	if _, err := Effective(Config{}, reg, "mistral", "m"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Effective(unknown provider) = %v, want ErrUnknownProvider", err)
	}
	if _, err := Effective(Config{}, reg, "openai", "gpt-5"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Effective(unknown model) = %v, want ErrUnknownModel", err)
	}
}

func TestEffective_MissingEnvKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")

	_, err := Effective(Config{}, testRegistry(), "openai", "gpt-4o")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Effective() = %v, want ErrMissingAPIKey", err)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "sk-123")

	tests := []struct {
		name    string
		auth    registry.AuthDescriptor
		want    string
		wantErr error
	}{
		{"plain env name", registry.AuthDescriptor{Env: "TEST_PROVIDER_KEY"}, "sk-123", nil},
		{"dollar-brace reference", registry.AuthDescriptor{Env: "${TEST_PROVIDER_KEY}"}, "sk-123", nil},
		{"padded name", registry.AuthDescriptor{Env: "  TEST_PROVIDER_KEY  "}, "sk-123", nil},
		{"keyless provider", registry.AuthDescriptor{}, "", nil},
		{"unset variable", registry.AuthDescriptor{Env: "TEST_NO_SUCH_KEY"}, "", ErrMissingAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAPIKey(tt.auth)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveAPIKey() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
