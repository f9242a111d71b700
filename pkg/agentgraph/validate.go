package agentgraph

import (
	"fmt"
	"strings"

	"github.com/ritzau/agentgraph/pkg/cycles"
)

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one structural problem reported by Validate.
type Finding struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Agents   []string `json:"agents,omitempty"`
}

// Validate reports structural problems without failing:
//   - an error for each cyclic component, carrying one concrete cycle;
//   - a warning listing agents with no dependencies and no dependents;
//   - a warning listing articulation points, for graphs of more than two agents.
//
// An empty slice means the graph is sound.
func (m *Manager) Validate() []Finding {
	findings := make([]Finding, 0)

	for _, cycle := range cycles.Find(m.graph) {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Message:  "Circular dependency detected",
			Agents:   m.idsFor(cycle),
		})
	}

	if lonely := m.idsFor(m.isolated()); len(lonely) > 0 {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Isolated agents found: %s", strings.Join(lonely, ", ")),
			Agents:   lonely,
		})
	}

	if m.Len() > 2 {
		if cut := m.ArticulationPoints(); len(cut) > 0 {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Articulation points found: %s", strings.Join(cut, ", ")),
				Agents:   cut,
			})
		}
	}

	return findings
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
