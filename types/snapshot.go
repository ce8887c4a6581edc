package types

import "time"

// ProviderError records a per-provider failure that did not abort the
// rest of the discovery. Scope names the region or grouping that failed.
type ProviderError struct {
	Provider string `json:"provider"`
	Scope    string `json:"scope,omitempty"`
	Message  string `json:"message"`
}

// Snapshot is the immutable, fully-merged result of one discovery job.
// It is the sole contract the visualization layer depends on. Resource
// ordering is insertion order of arrival and is not stable across runs;
// consumers must rely on IDs only.
type Snapshot struct {
	DiscoveryID    string           `json:"discovery_id"`
	Timestamp      time.Time        `json:"timestamp"`
	Resources      []Resource       `json:"resources"`
	Edges          []DependencyEdge `json:"edges"`
	ProviderErrors []ProviderError  `json:"provider_errors,omitempty"`
}

// Resource looks up a resource by ID.
func (s *Snapshot) Resource(id string) (Resource, bool) {
	for _, r := range s.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// Stats summarizes a snapshot for reporting.
type Stats struct {
	TotalResources int            `json:"total_resources"`
	TotalEdges     int            `json:"total_edges"`
	ByType         map[string]int `json:"by_type"`
	ByProvider     map[string]int `json:"by_provider"`
	ByRegion       map[string]int `json:"by_region"`
}

// Stats computes per-type, per-provider and per-region counts.
func (s *Snapshot) Stats() Stats {
	stats := Stats{
		TotalResources: len(s.Resources),
		TotalEdges:     len(s.Edges),
		ByType:         make(map[string]int),
		ByProvider:     make(map[string]int),
		ByRegion:       make(map[string]int),
	}
	for _, r := range s.Resources {
		stats.ByType[r.Type]++
		stats.ByProvider[r.Provider]++
		if r.Region != "" {
			stats.ByRegion[r.Region]++
		}
	}
	return stats
}
