package types

// Relation classifies a dependency edge between two resources.
type Relation string

const (
	RelationAttached Relation = "attached"
	RelationRoutesTo Relation = "routes-to"
	RelationContains Relation = "contains"
	// RelationUnresolvedExternal marks a reference whose target lies outside
	// the discovered scope. Informational, not an error; renderers treat
	// these as terminal leaf nodes.
	RelationUnresolvedExternal Relation = "unresolved-external"
)

// DependencyEdge is a directed reference between two resources in a
// snapshot. Built after the snapshot is frozen and never mutated.
// For unresolved-external edges TargetID holds the raw reference string.
type DependencyEdge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	Relation Relation `json:"relation"`
}
