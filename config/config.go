// Package config loads the discovery configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/kartta/ratelimit"
	"github.com/yairfalse/kartta/types"
)

// Config represents the main configuration
type Config struct {
	Version   string                    `yaml:"version"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Discovery Discovery                 `yaml:"discovery,omitempty"`
	Retry     ratelimit.Policy          `yaml:"retry,omitempty"`
	RateLimit RateLimit                 `yaml:"rate_limit,omitempty"`
	Cache     Cache                     `yaml:"cache,omitempty"`
	Resolver  Resolver                  `yaml:"resolver,omitempty"`
}

// ProviderConfig scopes one provider's discovery.
type ProviderConfig struct {
	Regions        []string `yaml:"regions,omitempty"`
	Account        string   `yaml:"account,omitempty"`
	ResourceGroups []string `yaml:"resource_groups,omitempty"`
}

// Discovery tunes the per provider worker pools.
type Discovery struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimit caps outgoing provider API calls.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Cache configures snapshot storage.
type Cache struct {
	TTL     time.Duration `yaml:"ttl"`
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path,omitempty"`
}

// Resolver overrides relation kinds per source resource type.
type Resolver struct {
	Relations map[string]string `yaml:"relations,omitempty"`
}

const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
)

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration usable without a config file.
func DefaultConfig() *Config {
	cfg := &Config{
		Version: "1",
		Providers: map[string]ProviderConfig{
			types.ProviderAWS: {},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Discovery.Workers <= 0 {
		c.Discovery.Workers = 4
	}
	if c.Discovery.Timeout <= 0 {
		c.Discovery.Timeout = 5 * time.Minute
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 5
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendMemory
	}
	if c.Retry.MaxAttempts <= 0 && c.Retry.BaseDelay <= 0 {
		c.Retry = ratelimit.DefaultPolicy()
	}
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	for name := range c.Providers {
		switch name {
		case types.ProviderAWS, types.ProviderAzure, types.ProviderGCP:
		default:
			return fmt.Errorf("unknown provider %q", name)
		}
	}
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendBolt:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// Scope builds the discovery scope described by the provider sections.
func (c *Config) Scope() types.Scope {
	scope := types.Scope{}
	for name, provider := range c.Providers {
		scope.Providers = append(scope.Providers, name)
		if len(provider.Regions) > 0 {
			if scope.Regions == nil {
				scope.Regions = map[string][]string{}
			}
			scope.Regions[name] = provider.Regions
		}
		if provider.Account != "" {
			if scope.Accounts == nil {
				scope.Accounts = map[string]string{}
			}
			scope.Accounts[name] = provider.Account
		}
		if name == types.ProviderAzure && len(provider.ResourceGroups) > 0 {
			scope.ResourceGroups = provider.ResourceGroups
		}
	}
	return scope
}
