// Package cycles finds circular dependencies in directed gonum graphs.
package cycles

import (
	"slices"

	"gonum.org/v1/gonum/graph"
)

// Find returns one concrete cycle per cyclic component of g.
// Each cycle starts at the component's smallest node ID and its last node
// has an edge back to the first.
func Find(g graph.Directed) [][]int64 {
	sccs := NewTarjanSCC(g).FindSCCs()

	found := make([][]int64, 0, len(sccs))
	for _, scc := range sccs {
		if cycle := Trace(g, scc); len(cycle) > 0 {
			found = append(found, cycle)
		}
	}
	return found
}

// Trace walks the strongly connected component and returns a cycle through
// its smallest member, staying inside the component. It returns nil if the
// given nodes do not form a cycle.
func Trace(g graph.Directed, component []int64) []int64 {
	if len(component) == 0 {
		return nil
	}

	members := make(map[int64]bool, len(component))
	for _, id := range component {
		members[id] = true
	}
	start := slices.Min(component)

	visited := make(map[int64]bool)
	var path []int64

	var walk func(id int64) bool
	walk = func(id int64) bool {
		visited[id] = true
		path = append(path, id)
		for _, succ := range sortedIDs(g.From(id)) {
			if !members[succ] {
				continue
			}
			if succ == start {
				return true
			}
			if !visited[succ] && walk(succ) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if walk(start) {
		return path
	}
	return nil
}
