package model

import (
	"maps"
	"slices"
)

// Diff describes how one topology differs from another.
type Diff struct {
	AddedAgents         []string     `json:"addedAgents"`
	RemovedAgents       []string     `json:"removedAgents"`
	ModifiedAgents      []string     `json:"modifiedAgents"` // name, role, status or metadata changed
	AddedDependencies   []Dependency `json:"addedDependencies"`
	RemovedDependencies []Dependency `json:"removedDependencies"`
}

// Empty reports whether the two topologies were equivalent.
func (d *Diff) Empty() bool {
	return len(d.AddedAgents) == 0 && len(d.RemovedAgents) == 0 && len(d.ModifiedAgents) == 0 &&
		len(d.AddedDependencies) == 0 && len(d.RemovedDependencies) == 0
}

// Compare computes the changes that turn from into to. A nil from topology
// counts as empty. Results follow the order of the topology they come from.
func Compare(from, to *Topology) *Diff {
	if from == nil {
		from = NewTopology()
	}

	diff := &Diff{
		AddedAgents:         make([]string, 0),
		RemovedAgents:       make([]string, 0),
		ModifiedAgents:      make([]string, 0),
		AddedDependencies:   make([]Dependency, 0),
		RemovedDependencies: make([]Dependency, 0),
	}

	oldAgents := make(map[string]Agent, len(from.Agents))
	for _, a := range from.Agents {
		oldAgents[a.ID] = a
	}
	newAgents := make(map[string]bool, len(to.Agents))

	// Find added and modified agents
	for _, a := range to.Agents {
		newAgents[a.ID] = true
		prev, exists := oldAgents[a.ID]
		switch {
		case !exists:
			diff.AddedAgents = append(diff.AddedAgents, a.ID)
		case !agentsEqual(prev, a):
			diff.ModifiedAgents = append(diff.ModifiedAgents, a.ID)
		}
	}

	// Find removed agents
	for _, a := range from.Agents {
		if !newAgents[a.ID] {
			diff.RemovedAgents = append(diff.RemovedAgents, a.ID)
		}
	}

	// A changed dependency type shows up as one removal and one addition
	oldEdges := edgeSet(from.Dependencies)
	newEdges := edgeSet(to.Dependencies)
	for _, d := range to.Dependencies {
		if !oldEdges[d] {
			diff.AddedDependencies = append(diff.AddedDependencies, d)
		}
	}
	for _, d := range from.Dependencies {
		if !newEdges[d] {
			diff.RemovedDependencies = append(diff.RemovedDependencies, d)
		}
	}

	return diff
}

func edgeSet(deps []Dependency) map[Dependency]bool {
	set := make(map[Dependency]bool, len(deps))
	for _, d := range deps {
		set[d] = true
	}
	return set
}

// agentsEqual compares the fields a manifest controls. Activity timestamps
// and neighbour lists are ignored; edges are compared separately.
func agentsEqual(a, b Agent) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Role == b.Role &&
		a.Status == b.Status &&
		maps.Equal(a.Metadata, b.Metadata)
}

// Summary returns the number of changed agents and dependencies, for logging.
func (d *Diff) Summary() []any {
	return []any{
		"added_agents", len(d.AddedAgents),
		"removed_agents", len(d.RemovedAgents),
		"modified_agents", len(d.ModifiedAgents),
		"added_dependencies", len(d.AddedDependencies),
		"removed_dependencies", len(d.RemovedDependencies),
	}
}

// Agents returns every agent ID touched by the diff, sorted.
func (d *Diff) Agents() []string {
	ids := slices.Concat(d.AddedAgents, d.RemovedAgents, d.ModifiedAgents)
	slices.Sort(ids)
	return slices.Compact(ids)
}
