package main

import (
	"context"
	"fmt"

	"github.com/yairfalse/kartta/cache"
	"github.com/yairfalse/kartta/config"
	"github.com/yairfalse/kartta/orchestrator"
	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/ratelimit"
	"github.com/yairfalse/kartta/resolver"

	// Provider adapters register themselves with the registry.
	_ "github.com/yairfalse/kartta/providers/aws"
	_ "github.com/yairfalse/kartta/providers/azure"
	_ "github.com/yairfalse/kartta/providers/gcp"
)

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(configPath)
}

// buildOrchestrator assembles the full discovery stack from config:
// adapters, cache store, rate limiting, and resolution rules.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, func(), error) {
	adapters := make(map[string]providers.Adapter, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		region := ""
		if len(pc.Regions) > 0 {
			region = pc.Regions[0]
		}
		adapter, err := providers.New(ctx, name, providers.Config{
			Region:         region,
			Account:        pc.Account,
			ResourceGroups: pc.ResourceGroups,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build %s adapter: %w", name, err)
		}
		adapters[name] = adapter
	}

	var store cache.Store
	switch cfg.Cache.Backend {
	case config.BackendBolt:
		boltStore, err := cache.NewBoltStore(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache at %s: %w", cfg.Cache.Path, err)
		}
		store = boltStore
	default:
		store = cache.NewMemoryStore()
	}

	rules, err := resolver.NewRuleSet(cfg.Resolver.Relations)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Adapters:    adapters,
		Store:       store,
		Coordinator: ratelimit.NewCoordinator(cfg.Retry, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		Rules:       rules,
		Workers:     cfg.Discovery.Workers,
		CacheTTL:    cfg.Cache.TTL,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() { _ = store.Close() }
	return orch, cleanup, nil
}
