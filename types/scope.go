package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Scope describes what one discovery request covers: which providers,
// which regions or provider-specific groupings, and any tag or type filters.
type Scope struct {
	Providers []string `yaml:"providers" json:"providers"`
	// Regions to scan per provider. A provider absent from the map scans
	// its adapter's default regions.
	Regions map[string][]string `yaml:"regions,omitempty" json:"regions,omitempty"`
	// Account, subscription or project identifier per provider.
	Accounts map[string]string `yaml:"accounts,omitempty" json:"accounts,omitempty"`
	// Azure resource groups to restrict to. Empty means whole subscription.
	ResourceGroups []string          `yaml:"resource_groups,omitempty" json:"resource_groups,omitempty"`
	Types          []string          `yaml:"types,omitempty" json:"types,omitempty"`
	Tags           map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// RegionsFor returns the configured regions for a provider, or nil when the
// adapter should fall back to its defaults.
func (s Scope) RegionsFor(provider string) []string {
	if s.Regions == nil {
		return nil
	}
	return s.Regions[provider]
}

// AccountFor returns the account/subscription/project for a provider.
func (s Scope) AccountFor(provider string) string {
	if s.Accounts == nil {
		return ""
	}
	return s.Accounts[provider]
}

// Filter converts the scope's tag and type constraints into a Filter.
func (s Scope) Filter() Filter {
	return Filter{Types: s.Types, Tags: s.Tags}
}

// CacheKey derives a stable key from every field that affects discovery
// output. Two scopes that would discover the same resources hash equal.
func (s Scope) CacheKey() string {
	var parts []string

	providers := append([]string(nil), s.Providers...)
	sort.Strings(providers)
	parts = append(parts, "providers:"+strings.Join(providers, ","))

	for _, p := range providers {
		if regions := s.RegionsFor(p); len(regions) > 0 {
			rs := append([]string(nil), regions...)
			sort.Strings(rs)
			parts = append(parts, fmt.Sprintf("regions:%s:%s", p, strings.Join(rs, ",")))
		}
		if account := s.AccountFor(p); account != "" {
			parts = append(parts, fmt.Sprintf("account:%s:%s", p, account))
		}
	}

	if len(s.ResourceGroups) > 0 {
		groups := append([]string(nil), s.ResourceGroups...)
		sort.Strings(groups)
		parts = append(parts, "groups:"+strings.Join(groups, ","))
	}
	if len(s.Types) > 0 {
		ts := append([]string(nil), s.Types...)
		sort.Strings(ts)
		parts = append(parts, "types:"+strings.Join(ts, ","))
	}
	if len(s.Tags) > 0 {
		keys := make([]string, 0, len(s.Tags))
		for k := range s.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("tag:%s=%s", k, s.Tags[k]))
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return "scope:" + hex.EncodeToString(sum[:])
}
