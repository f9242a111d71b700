package agentgraph

import (
	"slices"

	"gonum.org/v1/gonum/graph"
)

// articulation finds cut vertices with a depth-first search tracking
// discovery times and low links over the undirected view of a graph.
type articulation struct {
	graph  graph.Graph
	time   int
	disc   map[int64]int
	low    map[int64]int
	points map[int64]bool
}

func (m *Manager) articulationPoints() []int64 {
	a := &articulation{
		graph:  graph.Undirect{G: m.graph},
		disc:   make(map[int64]int),
		low:    make(map[int64]int),
		points: make(map[int64]bool),
	}

	for _, h := range m.sortedHandles() {
		if _, seen := a.disc[h]; !seen {
			a.visit(h, -1)
		}
	}

	cut := make([]int64, 0, len(a.points))
	for h := range a.points {
		cut = append(cut, h)
	}
	slices.Sort(cut)
	return cut
}

// visit explores u, reached from parent (-1 for a search root).
func (a *articulation) visit(u, parent int64) {
	a.disc[u] = a.time
	a.low[u] = a.time
	a.time++

	children := 0
	for _, v := range sortedIDs(a.graph.From(u)) {
		if v == parent {
			continue
		}
		if _, seen := a.disc[v]; seen {
			a.low[u] = min(a.low[u], a.disc[v])
			continue
		}

		children++
		a.visit(v, u)
		a.low[u] = min(a.low[u], a.low[v])

		// A non-root u separates v's subtree unless it reaches above u.
		if parent != -1 && a.low[v] >= a.disc[u] {
			a.points[u] = true
		}
	}

	// A search root is a cut vertex only with more than one DFS child.
	if parent == -1 && children > 1 {
		a.points[u] = true
	}
}
