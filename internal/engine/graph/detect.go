package graph

import (
	"sort"

	dgraph "github.com/dominikbraun/graph"
)

// RecursiveGroups returns the function IDs of every recursion: strongly
// connected components with more than one member plus self-recursive
// functions. Members follow insertion order, groups follow their first
// member.
func (c *CallGraph) RecursiveGroups() ([][]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureIndexes()

	components, err := dgraph.StronglyConnectedComponents(c.g)
	if err != nil {
		return nil, err
	}

	groups := make([][]string, 0)
	for _, component := range components {
		if len(component) == 1 {
			id := component[0]
			if _, self := c.adjacency[id][id]; !self {
				continue
			}
		}
		group := append([]string(nil), component...)
		sort.Slice(group, func(i, j int) bool {
			return c.position[group[i]] < c.position[group[j]]
		})
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return c.position[groups[i][0]] < c.position[groups[j][0]]
	})
	return groups, nil
}

// CallChain returns the shortest caller chain from one function to another,
// or nil when the target is unreachable.
func (c *CallGraph) CallChain(fromID, toID string) []string {
	path, err := dgraph.ShortestPath(c.g, fromID, toID)
	if err != nil {
		return nil
	}
	return path
}
