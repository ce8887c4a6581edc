package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yairfalse/kartta/types"
)

var (
	discoverProviders []string
	discoverRegions   []string
	discoverTypes     []string
	discoverTags      []string
	discoverOutput    string
	discoverStats     bool
	discoverFresh     bool
)

// discoverCmd runs one discovery and writes the snapshot as JSON.
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover cloud resources and their dependencies",
	Long: `Run one discovery across the configured providers, resolve the
dependency graph, and print the snapshot as JSON.

Repeated invocations within the cache TTL are served from cache; pass
--fresh to force a new upstream scan.`,
	Example: `  kartta discover                                  # All configured providers
  kartta discover --providers aws                  # One provider
  kartta discover --regions us-east-1,eu-west-1    # Restrict regions
  kartta discover --types virtual_machine,subnet   # Restrict resource types
  kartta discover --tags env=prod                  # Restrict by tag
  kartta discover --stats                          # Print summary counts only
  kartta discover --output snapshot.json           # Write to a file`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringSliceVar(&discoverProviders, "providers", nil, "Providers to scan (default: all configured)")
	discoverCmd.Flags().StringSliceVar(&discoverRegions, "regions", nil, "Regions to scan")
	discoverCmd.Flags().StringSliceVar(&discoverTypes, "types", nil, "Canonical resource types to keep")
	discoverCmd.Flags().StringSliceVar(&discoverTags, "tags", nil, "Tag filters, key=value")
	discoverCmd.Flags().StringVar(&discoverOutput, "output", "", "Write snapshot JSON to this file instead of stdout")
	discoverCmd.Flags().BoolVar(&discoverStats, "stats", false, "Print summary counts instead of the full snapshot")
	discoverCmd.Flags().BoolVar(&discoverFresh, "fresh", false, "Bypass the snapshot cache")
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.Discovery.Timeout)
	defer cancelTimeout()

	orch, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	scope, err := buildScope(cfg.Scope())
	if err != nil {
		return err
	}

	if discoverFresh {
		if err := orch.Invalidate(scope); err != nil {
			return err
		}
	}

	snapshot, job, err := orch.Discover(ctx, scope)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if job.Status == types.JobPartial {
		for provider, messages := range job.PerProviderErrors {
			for _, msg := range messages {
				fmt.Fprintf(os.Stderr, "warning: %s: %s\n", provider, msg)
			}
		}
	}

	var payload any = snapshot
	if discoverStats {
		payload = snapshot.Stats()
	}

	out := os.Stdout
	if discoverOutput != "" {
		f, err := os.Create(discoverOutput) // #nosec G304 -- path is intentional user input
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// buildScope narrows the configured scope with command line flags.
func buildScope(base types.Scope) (types.Scope, error) {
	scope := base

	if len(discoverProviders) > 0 {
		scope.Providers = discoverProviders
	}
	if len(discoverRegions) > 0 {
		if scope.Regions == nil {
			scope.Regions = map[string][]string{}
		}
		for _, provider := range scope.Providers {
			scope.Regions[provider] = discoverRegions
		}
	}
	if len(discoverTypes) > 0 {
		scope.Types = discoverTypes
	}
	if len(discoverTags) > 0 {
		scope.Tags = map[string]string{}
		for _, pair := range discoverTags {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return types.Scope{}, fmt.Errorf("invalid tag filter %q, expected key=value", pair)
			}
			scope.Tags[key] = value
		}
	}

	return scope, nil
}
