package agentgraph

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/topo"
)

// BottleneckPolicy holds the thresholds that flag an agent as a bottleneck.
// An agent is flagged when any single value is strictly exceeded.
type BottleneckPolicy struct {
	MaxCentrality float64
	MaxInDegree   int
	MaxOutDegree  int
}

// DefaultBottleneckPolicy returns the standard thresholds: betweenness above
// 0.5, more than two dependents or more than two dependencies.
func DefaultBottleneckPolicy() BottleneckPolicy {
	return BottleneckPolicy{
		MaxCentrality: 0.5,
		MaxInDegree:   2,
		MaxOutDegree:  2,
	}
}

// Centrality returns the normalised betweenness centrality of every agent.
// For n > 2 agents raw scores are scaled by 1/((n-1)(n-2)), the number of
// ordered pairs a node can sit between in a directed graph.
func (m *Manager) Centrality() map[string]float64 {
	raw := m.betweenness()
	scores := make(map[string]float64, len(m.records))
	for h, rec := range m.records {
		scores[rec.id] = raw[h]
	}
	return scores
}

func (m *Manager) betweenness() map[int64]float64 {
	cb := network.Betweenness(m.graph)
	if n := float64(len(m.records)); n > 2 {
		scale := 1 / ((n - 1) * (n - 2))
		for h := range cb {
			cb[h] *= scale
		}
	}
	return cb
}

// Bottlenecks returns, in registration order, the agents that exceed any
// threshold of the manager's BottleneckPolicy.
func (m *Manager) Bottlenecks() []string {
	centrality := m.betweenness()
	p := m.policy

	var flagged []int64
	for _, h := range m.sortedHandles() {
		in, out := m.graph.To(h).Len(), m.graph.From(h).Len()
		if centrality[h] > p.MaxCentrality || in > p.MaxInDegree || out > p.MaxOutDegree {
			flagged = append(flagged, h)
		}
	}
	return m.idsFor(flagged)
}

// IndependentSubgraphs returns the weakly connected components of the graph.
// Members are listed in registration order and components are ordered by
// their earliest registered member.
func (m *Manager) IndependentSubgraphs() [][]string {
	components := topo.ConnectedComponents(graph.Undirect{G: m.graph})

	handles := make([][]int64, 0, len(components))
	for _, c := range components {
		ids := nodeIDs(c)
		slices.Sort(ids)
		handles = append(handles, ids)
	}
	slices.SortFunc(handles, func(a, b []int64) int {
		return cmp.Compare(a[0], b[0])
	})

	subgraphs := make([][]string, len(handles))
	for i, c := range handles {
		subgraphs[i] = m.idsFor(c)
	}
	return subgraphs
}

// ArticulationPoints returns the agents whose removal would split the
// undirected view of the graph into more pieces.
func (m *Manager) ArticulationPoints() []string {
	return m.idsFor(m.articulationPoints())
}

// isolated returns the agents with neither dependencies nor dependents.
func (m *Manager) isolated() []int64 {
	var lonely []int64
	for _, h := range m.sortedHandles() {
		if m.graph.From(h).Len() == 0 && m.graph.To(h).Len() == 0 {
			lonely = append(lonely, h)
		}
	}
	return lonely
}
