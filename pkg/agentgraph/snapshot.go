package agentgraph

import (
	"fmt"
	"slices"

	"github.com/ritzau/agentgraph/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// Snapshot converts the whole graph into the serialisable topology model.
func (m *Manager) Snapshot() *model.Topology {
	return m.topology(m.sortedHandles())
}

// Focus returns the part of the topology within depth hops of any of the
// selected agents, following dependencies in either direction. A negative
// depth selects everything reachable.
func (m *Manager) Focus(ids []string, depth int) (*model.Topology, error) {
	keep := make(map[int64]bool)
	undirected := graph.Undirect{G: m.graph}

	for _, id := range ids {
		start, err := m.lookup(id)
		if err != nil {
			return nil, err
		}

		var bf traverse.BreadthFirst
		bf.Walk(undirected, m.graph.Node(start), func(n graph.Node, d int) bool {
			if depth >= 0 && d > depth {
				return true
			}
			keep[n.ID()] = true
			return false
		})
	}

	handles := make([]int64, 0, len(keep))
	for h := range keep {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	return m.topology(handles), nil
}

// topology builds the model for the given handles, keeping only edges with
// both endpoints among them.
func (m *Manager) topology(handles []int64) *model.Topology {
	t := model.NewTopology()

	included := make(map[int64]bool, len(handles))
	for _, h := range handles {
		included[h] = true
	}

	for _, h := range handles {
		node := m.snapshot(h)
		t.AddAgent(model.Agent{
			ID:           node.ID,
			Name:         node.Name,
			Role:         node.Role,
			Status:       node.Status,
			LastActive:   node.LastActive,
			Metadata:     node.Metadata,
			Dependencies: node.Dependencies,
			Dependents:   node.Dependents,
		})
	}

	for _, h := range handles {
		for _, to := range m.successors(h) {
			if !included[to] {
				continue
			}
			e := m.graph.Edge(h, to).(dependency)
			t.AddDependency(model.Dependency{
				Source: m.records[h].id,
				Target: m.records[to].id,
				Type:   e.kind,
			})
		}
	}

	return t
}

// Load registers every agent of the topology and then every dependency.
// Statuses other than "initialized" and metadata are carried over.
func (m *Manager) Load(t *model.Topology) error {
	for _, a := range t.Agents {
		if err := m.AddAgent(a.ID, a.Name, a.Role, a.Metadata); err != nil {
			return err
		}
		if a.Status != "" && a.Status != StatusInitialized {
			if err := m.UpdateAgentStatus(a.ID, a.Status, nil); err != nil {
				return err
			}
		}
	}
	for _, d := range t.Dependencies {
		if err := m.AddDependency(d.Source, d.Target, d.Type); err != nil {
			return fmt.Errorf("dependency %s -> %s: %w", d.Source, d.Target, err)
		}
	}
	return nil
}
