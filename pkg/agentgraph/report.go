package agentgraph

import "errors"

// Report bundles every query result for one graph state.
type Report struct {
	Agents         int        `json:"agents"`
	Dependencies   int        `json:"dependencies"`
	ExecutionOrder []string   `json:"executionOrder"`
	Cycle          []string   `json:"cycle,omitempty"`
	CriticalPath   []string   `json:"criticalPath"`
	Bottlenecks    []string   `json:"bottlenecks"`
	Subgraphs      [][]string `json:"subgraphs"`
	Findings       []Finding  `json:"findings"`
}

// Report runs every query against the current graph. A cyclic graph leaves
// ExecutionOrder empty and records the offending cycle instead.
func (m *Manager) Report() Report {
	r := Report{
		Agents:         m.Len(),
		Dependencies:   m.EdgeCount(),
		ExecutionOrder: []string{},
		CriticalPath:   m.CriticalPath(),
		Bottlenecks:    m.Bottlenecks(),
		Subgraphs:      m.IndependentSubgraphs(),
		Findings:       m.Validate(),
	}

	order, err := m.ExecutionOrder()
	var cycleErr *CycleError
	switch {
	case err == nil:
		r.ExecutionOrder = order
	case errors.As(err, &cycleErr):
		r.Cycle = cycleErr.Cycle
	}
	return r
}
