// Package config loads runtime settings for the registry loader and the
// resilience stack from a TOML file and the process environment.
// Environment variables override file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jonwraymond/modelops/registry"
	"github.com/jonwraymond/modelops/resilience"
)

// Environment variable names recognized by FromEnv and Load.
const (
	EnvSharedCache    = "MODELOPS_SHARED_CACHE"
	EnvSharedCacheTTL = "MODELOPS_SHARED_CACHE_TTL"
	EnvRegistryURL    = "MODELOPS_REGISTRY_URL"
	EnvRegistryCache  = "MODELOPS_REGISTRY_CACHE"
)

// BreakerDefaults mirrors the tunable fields of
// resilience.CircuitBreakerConfig in file-friendly units.
type BreakerDefaults struct {
	MaxFailures          int     `toml:"max_failures"`
	BreakSeconds         int     `toml:"break_seconds"`
	FailureRateThreshold float64 `toml:"failure_rate_threshold"`
	MinimumThroughput    int     `toml:"minimum_throughput"`
	WindowSize           int     `toml:"window_size"`
	HalfOpenSuccesses    int     `toml:"half_open_successes"`
}

// Limit is a declarative rate-limit policy for one resource.
type Limit struct {
	MaxRequests   int `toml:"max_requests"`
	PeriodSeconds int `toml:"period_seconds"`
}

// Config is the full runtime configuration.
type Config struct {
	// SharedCache enables the process-wide registry cache.
	SharedCache bool `toml:"shared_cache"`

	// SharedCacheTTL is the shared-cache entry lifetime in seconds.
	// Zero or negative means entries never expire.
	SharedCacheTTL int `toml:"shared_cache_ttl"`

	// RegistryURL is the remote registry document. Empty disables
	// network loading.
	RegistryURL string `toml:"registry_url"`

	// RegistryCachePath is the on-disk registry cache file.
	RegistryCachePath string `toml:"registry_cache_path"`

	// RateLimits maps resource names to policies, applied at startup.
	RateLimits map[string]Limit `toml:"rate_limits"`

	// Breaker holds defaults for every circuit breaker.
	Breaker BreakerDefaults `toml:"breaker"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		SharedCache:       false,
		SharedCacheTTL:    300,
		RegistryCachePath: registry.DefaultCachePath(),
	}
}

// FromEnv returns the default configuration with environment overrides
// applied.
func FromEnv() (Config, error) {
	return applyEnv(Default())
}

// Load reads a TOML configuration file and applies environment
// overrides on top. A missing file is not an error: defaults plus
// environment are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}
	return applyEnv(cfg)
}

func applyEnv(cfg Config) (Config, error) {
	if v, ok := os.LookupEnv(EnvSharedCache); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvSharedCache, err)
		}
		cfg.SharedCache = enabled
	}
	if v, ok := os.LookupEnv(EnvSharedCacheTTL); ok {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvSharedCacheTTL, err)
		}
		cfg.SharedCacheTTL = ttl
	}
	if v, ok := os.LookupEnv(EnvRegistryURL); ok {
		cfg.RegistryURL = v
	}
	if v, ok := os.LookupEnv(EnvRegistryCache); ok {
		cfg.RegistryCachePath = v
	}
	return cfg, nil
}

// SharedTTL converts SharedCacheTTL to a duration. Non-positive values
// return zero, meaning entries never expire.
func (c Config) SharedTTL() time.Duration {
	if c.SharedCacheTTL <= 0 {
		return 0
	}
	return time.Duration(c.SharedCacheTTL) * time.Second
}

// BreakerConfig converts the file-level breaker defaults into a
// resilience config, leaving zero fields to that package's defaults.
func (c Config) BreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		MaxFailures:          c.Breaker.MaxFailures,
		BreakDuration:        time.Duration(c.Breaker.BreakSeconds) * time.Second,
		FailureRateThreshold: c.Breaker.FailureRateThreshold,
		MinimumThroughput:    c.Breaker.MinimumThroughput,
		WindowSize:           c.Breaker.WindowSize,
		HalfOpenSuccesses:    c.Breaker.HalfOpenSuccesses,
	}
}

// Policies converts RateLimits into resilience policies.
func (c Config) Policies() map[string]resilience.Policy {
	if len(c.RateLimits) == 0 {
		return nil
	}
	out := make(map[string]resilience.Policy, len(c.RateLimits))
	for resource, l := range c.RateLimits {
		out[resource] = resilience.Policy{
			MaxRequests: l.MaxRequests,
			Period:      time.Duration(l.PeriodSeconds) * time.Second,
		}
	}
	return out
}
