package agentgraph

import (
	"errors"
	"slices"

	"github.com/ritzau/agentgraph/pkg/cycles"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// ExecutionOrder returns every agent such that each one appears after all
// agents it depends on. Agents without a mutual constraint keep a stable,
// registration-based order. A cyclic graph yields a *CycleError.
func (m *Manager) ExecutionOrder() ([]string, error) {
	sorted, err := topo.SortStabilized(m.graph, newestFirst)
	if err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) && len(unorderable) > 0 {
			cycle := cycles.Trace(m.graph, nodeIDs(unorderable[0]))
			return nil, &CycleError{Cycle: m.idsFor(cycle)}
		}
		return nil, err
	}

	// topo returns dependents before their dependencies.
	order := make([]string, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		order = append(order, m.records[sorted[i].ID()].id)
	}
	return order, nil
}

// CriticalPath returns the longest chain of dependencies, counted in agents,
// starting at an agent nothing depends on and ending at an agent that depends
// on nothing. The chain is listed from the most dependent agent to its
// deepest dependency. Ties resolve towards earlier registered agents.
//
// Acyclic graphs are solved by dynamic programming over a topological order.
// Cyclic graphs fall back to enumerating simple paths, which is exponential
// in the worst case and only meant for graphs of a few dozen agents.
func (m *Manager) CriticalPath() []string {
	if m.EdgeCount() == 0 {
		return []string{}
	}

	var sources []int64
	sinks := make(map[int64]bool)
	for _, h := range m.sortedHandles() {
		in, out := m.graph.To(h).Len(), m.graph.From(h).Len()
		if in == 0 && out > 0 {
			sources = append(sources, h)
		}
		if out == 0 {
			sinks[h] = true
		}
	}
	if len(sources) == 0 || len(sinks) == 0 {
		return []string{}
	}

	var path []int64
	if sorted, err := topo.SortStabilized(m.graph, newestFirst); err == nil {
		path = m.longestPathAcyclic(sorted, sources)
	} else {
		path = m.longestSimplePath(sources, sinks)
	}
	return m.idsFor(path)
}

// longestPathAcyclic walks sorted (dependents first) backwards so that every
// agent's successors are settled before the agent itself.
func (m *Manager) longestPathAcyclic(sorted []graph.Node, sources []int64) []int64 {
	length := make(map[int64]int, len(sorted))
	next := make(map[int64]int64, len(sorted))

	for i := len(sorted) - 1; i >= 0; i-- {
		h := sorted[i].ID()
		length[h] = 1
		for _, succ := range m.successors(h) {
			if l := length[succ] + 1; l > length[h] {
				length[h] = l
				next[h] = succ
			}
		}
	}

	best := sources[0]
	for _, s := range sources[1:] {
		if length[s] > length[best] {
			best = s
		}
	}

	path := []int64{best}
	for h := best; ; {
		succ, ok := next[h]
		if !ok {
			break
		}
		path = append(path, succ)
		h = succ
	}
	return path
}

// longestSimplePath enumerates every simple path from each source to any sink.
func (m *Manager) longestSimplePath(sources []int64, sinks map[int64]bool) []int64 {
	var (
		best    []int64
		current []int64
		onPath  = make(map[int64]bool)
	)

	var walk func(h int64)
	walk = func(h int64) {
		current = append(current, h)
		onPath[h] = true
		if sinks[h] && len(current) > 1 && len(current) > len(best) {
			best = slices.Clone(current)
		}
		for _, succ := range m.successors(h) {
			if !onPath[succ] {
				walk(succ)
			}
		}
		onPath[h] = false
		current = current[:len(current)-1]
	}

	for _, s := range sources {
		walk(s)
	}
	return best
}

// successors returns the handles h depends on, in registration order.
func (m *Manager) successors(h int64) []int64 {
	return sortedIDs(m.graph.From(h))
}

func sortedIDs(it graph.Nodes) []int64 {
	ids := make([]int64, 0, it.Len())
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}

func nodeIDs(nodes []graph.Node) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids
}
