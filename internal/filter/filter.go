// Package filter narrows discovered resources to what the request scoped.
package filter

import (
	"github.com/yairfalse/kartta/types"
)

// Filter controls which resource types and tag combinations survive the
// merge into a snapshot.
type Filter struct {
	includeTypes map[string]bool
	includeTags  map[string]string
	excludeTags  map[string]string
}

// New creates a Filter. Empty includeTypes means all types pass.
func New(includeTypes []string, includeTags, excludeTags map[string]string) *Filter {
	typeMap := make(map[string]bool)
	for _, t := range includeTypes {
		typeMap[t] = true
	}

	return &Filter{
		includeTypes: typeMap,
		includeTags:  includeTags,
		excludeTags:  excludeTags,
	}
}

// FromScope builds a Filter from a discovery scope.
func FromScope(scope types.Scope) *Filter {
	return New(scope.Types, scope.Tags, nil)
}

// ShouldInclude returns true if the resource passes type and tag filters.
func (f *Filter) ShouldInclude(r types.Resource) bool {
	if len(f.includeTypes) > 0 && !f.includeTypes[r.Type] {
		return false
	}

	// Include tags (whitelist) - ALL must match
	for k, v := range f.includeTags {
		if r.Tags == nil || r.Tags[k] != v {
			return false
		}
	}

	// Exclude tags (blacklist) - ANY match excludes
	for k, v := range f.excludeTags {
		if r.Tags != nil && r.Tags[k] == v {
			return false
		}
	}

	return true
}

// Apply returns only resources that pass the filter.
func (f *Filter) Apply(resources []types.Resource) []types.Resource {
	if f.IsEmpty() {
		return resources
	}

	filtered := make([]types.Resource, 0, len(resources))
	for _, r := range resources {
		if f.ShouldInclude(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// IsEmpty returns true if no filters are configured.
func (f *Filter) IsEmpty() bool {
	return len(f.includeTypes) == 0 && len(f.includeTags) == 0 && len(f.excludeTags) == 0
}
