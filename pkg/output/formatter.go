package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/agentgraph/pkg/agentgraph"
)

// Write renders the manager in the given format: "text", "json" or "dot".
func Write(w io.Writer, format, source string, m *agentgraph.Manager) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m.Report())
	case "dot":
		out, err := m.DOT()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case "text", "":
		PrintReport(w, source, m.Report())
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// PrintReport prints a nicely formatted graph report with colors
func PrintReport(w io.Writer, source string, r agentgraph.Report) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Agent Dependency Graph - Report")
	bold.Fprintln(w, "==============================")
	if source != "" {
		fmt.Fprintf(w, "Manifest: %s\n", source)
	}
	fmt.Fprintf(w, "Agents: %d\n", r.Agents)
	fmt.Fprintf(w, "Dependencies: %d\n", r.Dependencies)
	fmt.Fprintln(w)

	if len(r.Cycle) > 0 {
		red.Fprintln(w, "EXECUTION ORDER: none, the graph has a cycle")
		red.Fprintf(w, "  %s -> %s\n", strings.Join(r.Cycle, " -> "), r.Cycle[0])
	} else {
		cyan.Fprintln(w, "EXECUTION ORDER:")
		for i, id := range r.ExecutionOrder {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, id)
		}
	}
	fmt.Fprintln(w)

	if len(r.CriticalPath) > 0 {
		cyan.Fprintln(w, "CRITICAL PATH:")
		fmt.Fprintf(w, "  %s (%d agents)\n", strings.Join(r.CriticalPath, " -> "), len(r.CriticalPath))
		fmt.Fprintln(w)
	}

	if len(r.Bottlenecks) > 0 {
		yellow.Fprintln(w, "BOTTLENECKS:")
		for _, id := range r.Bottlenecks {
			yellow.Fprintf(w, "  %s\n", id)
		}
		fmt.Fprintln(w)
	}

	if len(r.Subgraphs) > 1 {
		cyan.Fprintf(w, "INDEPENDENT SUBGRAPHS: %d\n", len(r.Subgraphs))
		for _, sg := range r.Subgraphs {
			fmt.Fprintf(w, "  [%s]\n", strings.Join(sg, ", "))
		}
		fmt.Fprintln(w)
	}

	// Summary with color based on findings
	errs, warnings := 0, 0
	for _, f := range r.Findings {
		if f.Severity == agentgraph.SeverityError {
			errs++
			red.Fprintf(w, "ERROR: %s", f.Message)
			if len(f.Agents) > 0 {
				red.Fprintf(w, " (%s)", strings.Join(f.Agents, ", "))
			}
			fmt.Fprintln(w)
		} else {
			warnings++
			yellow.Fprintf(w, "WARNING: %s\n", f.Message)
		}
	}

	switch {
	case errs > 0:
		red.Fprintf(w, "Summary: %d error(s), %d warning(s)\n", errs, warnings)
	case warnings > 0:
		yellow.Fprintf(w, "Summary: %d warning(s)\n", warnings)
	default:
		green.Fprintln(w, "✓ Graph is valid")
	}
}
