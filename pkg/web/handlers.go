package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/ritzau/agentgraph/pkg/agentgraph"
	"github.com/ritzau/agentgraph/pkg/logging"
	"github.com/ritzau/agentgraph/pkg/model"
	"github.com/ritzau/agentgraph/pkg/pubsub"
)

// AddAgentRequest is the body of POST /api/agents
type AddAgentRequest struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Role     string            `json:"role"`
	Metadata map[string]string `json:"metadata"`
}

// UpdateStatusRequest is the body of PUT /api/agents/{id}/status
type UpdateStatusRequest struct {
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// AddDependencyRequest is the body of POST /api/dependencies
type AddDependencyRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string   `json:"error"`
	Cycle []string `json:"cycle,omitempty"`
}

// errBadRequest marks request decoding and parameter errors.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

// writeError maps graph errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: err.Error()}

	var cycleErr *agentgraph.CycleError
	switch {
	case errors.Is(err, agentgraph.ErrNotFound), errors.Is(err, pubsub.ErrUnknownTopic):
		status = http.StatusNotFound
	case errors.As(err, &cycleErr):
		status = http.StatusConflict
		resp.Cycle = cycleErr.Cycle
	case errors.Is(err, agentgraph.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, agentgraph.ErrSelfDependency),
		errors.Is(err, agentgraph.ErrInvalidAgent),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	var agents []agentgraph.AgentNode
	s.read("agents", func(m *agentgraph.Manager) {
		agents = m.Agents()
	})
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleAddAgent(w http.ResponseWriter, r *http.Request) {
	var req AddAgentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var node agentgraph.AgentNode
	err := s.mutate("add_agent", func(m *agentgraph.Manager) error {
		if err := m.AddAgent(req.ID, req.Name, req.Role, req.Metadata); err != nil {
			return err
		}
		node, _ = m.Agent(req.ID)
		return nil
	}, "agent", req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var (
		node agentgraph.AgentNode
		err  error
	)
	s.read("agent", func(m *agentgraph.Manager) {
		node, err = m.Agent(id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.mutate("remove_agent", func(m *agentgraph.Manager) error {
		return m.RemoveAgent(id)
	}, "agent", id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req UpdateStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Status == "" {
		writeError(w, fmt.Errorf("%w: status is required", errBadRequest))
		return
	}

	var node agentgraph.AgentNode
	err := s.mutate("update_status", func(m *agentgraph.Manager) error {
		if err := m.UpdateAgentStatus(id, req.Status, req.Metadata); err != nil {
			return err
		}
		node, _ = m.Agent(id)
		return nil
	}, "agent", id, "status", req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	s.handleNeighbours(w, r, "dependencies", (*agentgraph.Manager).Dependencies)
}

func (s *Server) handleDependents(w http.ResponseWriter, r *http.Request) {
	s.handleNeighbours(w, r, "dependents", (*agentgraph.Manager).Dependents)
}

func (s *Server) handleNeighbours(w http.ResponseWriter, r *http.Request, query string, fn func(*agentgraph.Manager, string) ([]string, error)) {
	id := mux.Vars(r)["id"]

	var (
		ids []string
		err error
	)
	s.read(query, func(m *agentgraph.Manager) {
		ids, err = fn(m, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	depth := 1
	if raw := r.URL.Query().Get("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: depth must be an integer", errBadRequest))
			return
		}
		depth = d
	}

	var (
		topo *model.Topology
		err  error
	)
	s.read("focus", func(m *agentgraph.Manager) {
		topo, err = m.Focus([]string{id}, depth)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topo)
}

func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	var req AddDependencyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := s.mutate("add_dependency", func(m *agentgraph.Manager) error {
		return m.AddDependency(req.Source, req.Target, req.Type)
	}, "agent", req.Source, "target", req.Target)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Type == "" {
		req.Type = agentgraph.DefaultDependencyType
	}
	writeJSON(w, http.StatusCreated, model.Dependency{Source: req.Source, Target: req.Target, Type: req.Type})
}

func (s *Server) handleRemoveDependency(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	source, target := vars["source"], vars["target"]

	err := s.mutate("remove_dependency", func(m *agentgraph.Manager) error {
		return m.RemoveDependency(source, target)
	}, "agent", source, "target", target)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	var topo *model.Topology
	s.read("topology", func(m *agentgraph.Manager) {
		topo = m.Snapshot()
	})
	writeJSON(w, http.StatusOK, topo)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var (
		order []string
		err   error
	)
	s.read("order", func(m *agentgraph.Manager) {
		order, err = m.ExecutionOrder()
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"order": order})
}

func (s *Server) handleCriticalPath(w http.ResponseWriter, r *http.Request) {
	var path []string
	s.read("critical_path", func(m *agentgraph.Manager) {
		path = m.CriticalPath()
	})
	writeJSON(w, http.StatusOK, map[string][]string{"path": path})
}

func (s *Server) handleBottlenecks(w http.ResponseWriter, r *http.Request) {
	var (
		flagged    []string
		centrality map[string]float64
		policy     agentgraph.BottleneckPolicy
	)
	s.read("bottlenecks", func(m *agentgraph.Manager) {
		flagged = m.Bottlenecks()
		centrality = m.Centrality()
		policy = m.Policy()
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"bottlenecks": flagged,
		"centrality":  centrality,
		"policy": map[string]any{
			"maxCentrality": policy.MaxCentrality,
			"maxInDegree":   policy.MaxInDegree,
			"maxOutDegree":  policy.MaxOutDegree,
		},
	})
}

func (s *Server) handleSubgraphs(w http.ResponseWriter, r *http.Request) {
	var subgraphs [][]string
	s.read("subgraphs", func(m *agentgraph.Manager) {
		subgraphs = m.IndependentSubgraphs()
	})
	writeJSON(w, http.StatusOK, map[string][][]string{"subgraphs": subgraphs})
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	var findings []agentgraph.Finding
	s.read("validation", func(m *agentgraph.Manager) {
		findings = m.Validate()
	})
	writeJSON(w, http.StatusOK, pubsub.ValidationData{Findings: findings, HasErrors: agentgraph.HasErrors(findings)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var report agentgraph.Report
	s.read("report", func(m *agentgraph.Manager) {
		report = m.Report()
	})
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	var (
		out string
		err error
	)
	s.read("dot", func(m *agentgraph.Manager) {
		out, err = m.DOT()
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	fmt.Fprint(w, out)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	flusher, _ := w.(http.Flusher)

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
