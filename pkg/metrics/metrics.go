// Package metrics exposes Prometheus collectors for the agent graph.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ritzau/agentgraph/pkg/agentgraph"
)

const namespace = "agentgraph"

var (
	agents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "agents",
		Help:      "Number of registered agents",
	})

	dependencies = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dependencies",
		Help:      "Number of dependency edges",
	})

	// Labels: severity (error, warning)
	findings = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validation_findings",
		Help:      "Validation findings of the current graph by severity",
	}, []string{"severity"})

	// Labels: op (add_agent, remove_agent, ...), result (ok, error)
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Graph mutations by operation and result",
	}, []string{"op", "result"})

	// Labels: result (ok, error)
	reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "manifest_reloads_total",
		Help:      "Manifest reloads by result",
	}, []string{"result"})

	// Labels: query (order, critical_path, bottlenecks, ...)
	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Time spent answering graph queries",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"query"})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordGraph refreshes the size gauges and the findings gauge from the
// given manager and its validation findings.
func RecordGraph(m *agentgraph.Manager, fs []agentgraph.Finding) {
	agents.Set(float64(m.Len()))
	dependencies.Set(float64(m.EdgeCount()))

	counts := map[agentgraph.Severity]int{
		agentgraph.SeverityError:   0,
		agentgraph.SeverityWarning: 0,
	}
	for _, f := range fs {
		counts[f.Severity]++
	}
	for severity, n := range counts {
		findings.WithLabelValues(string(severity)).Set(float64(n))
	}
}

// RecordMutation counts one mutation attempt.
func RecordMutation(op string, err error) {
	mutations.WithLabelValues(op, result(err)).Inc()
}

// RecordReload counts one manifest reload attempt.
func RecordReload(err error) {
	reloads.WithLabelValues(result(err)).Inc()
}

// TimeQuery starts timing a graph query; call the returned function when
// the query is done.
func TimeQuery(query string) func() {
	start := time.Now()
	return func() {
		analysisDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}
