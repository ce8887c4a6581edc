package resolver

import (
	"github.com/yairfalse/kartta/types"
)

// Resolve matches every resource's raw dependency references against ids
// present in the same resource set. Matches produce typed edges; unmatched
// references become unresolved-external edges, never errors. Cycles are
// legitimate (bidirectional routing) and pass through untouched.
func Resolve(resources []types.Resource, rules *RuleSet) []types.DependencyEdge {
	if rules == nil {
		rules = DefaultRules()
	}

	ids := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		ids[r.ID] = struct{}{}
	}

	var edges []types.DependencyEdge
	seen := make(map[types.DependencyEdge]struct{})

	add := func(e types.DependencyEdge) {
		if _, dup := seen[e]; dup {
			return
		}
		seen[e] = struct{}{}
		edges = append(edges, e)
	}

	for _, r := range resources {
		for _, ref := range r.DependencyRefs {
			if ref == "" || ref == r.ID {
				continue
			}
			if _, ok := ids[ref]; ok {
				add(types.DependencyEdge{
					SourceID: r.ID,
					TargetID: ref,
					Relation: rules.RelationFor(r.Type),
				})
			} else {
				add(types.DependencyEdge{
					SourceID: r.ID,
					TargetID: ref,
					Relation: types.RelationUnresolvedExternal,
				})
			}
		}
	}

	for _, e := range containmentEdges(resources) {
		add(e)
	}

	return edges
}

// containmentEdges links grouping resources (resource groups, projects) to
// the members that name them as their scope.
func containmentEdges(resources []types.Resource) []types.DependencyEdge {
	groups := make(map[string]string) // provider+name -> group resource id
	for _, r := range resources {
		if r.Type == types.TypeResourceGroup {
			groups[r.Provider+"/"+r.Name] = r.ID
		}
	}
	if len(groups) == 0 {
		return nil
	}

	var edges []types.DependencyEdge
	for _, r := range resources {
		if r.Type == types.TypeResourceGroup || r.Scope == "" {
			continue
		}
		if groupID, ok := groups[r.Provider+"/"+r.Scope]; ok {
			edges = append(edges, types.DependencyEdge{
				SourceID: groupID,
				TargetID: r.ID,
				Relation: types.RelationContains,
			})
		}
	}
	return edges
}
