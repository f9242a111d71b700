package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ritzau/agentgraph/pkg/agentgraph"
	"github.com/ritzau/agentgraph/pkg/logging"
	"github.com/ritzau/agentgraph/pkg/metrics"
	"github.com/ritzau/agentgraph/pkg/model"
	"github.com/ritzau/agentgraph/pkg/pubsub"
)

// Server exposes one agent graph over HTTP.
//
// The manager itself is not synchronised; every handler goes through the
// server's RWMutex, queries under the read lock and mutations under the
// write lock. Writers also hold publishMu from the change until its events
// are published, so events leave in the order the changes were applied.
// Lock order: publishMu, then mu.
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher

	publishMu sync.Mutex
	mu        sync.RWMutex
	manager   *agentgraph.Manager
}

// NewServer creates a new web server serving m
func NewServer(m *agentgraph.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		publisher: pubsub.NewGraphPublisher(),
		manager:   m,
	}
	s.setupRoutes()

	s.mu.RLock()
	topo, findings := s.stateLocked()
	s.mu.RUnlock()
	s.publishState(pubsub.EventSnapshot, topo, findings)

	return s
}

// SetManager replaces the served graph, e.g. after a manifest reload, and
// publishes the new state and the changes to subscribers. Nothing is
// published when the new graph is equivalent to the old one.
func (s *Server) SetManager(m *agentgraph.Manager) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	previous := s.manager.Snapshot()
	s.manager = m
	topo, findings := s.stateLocked()
	s.mu.Unlock()

	diff := model.Compare(previous, topo)
	if diff.Empty() {
		logging.Debug("graph replaced without changes")
		return
	}
	logging.Info("graph replaced", diff.Summary()...)

	s.publishState(pubsub.EventSnapshot, topo, findings)
	if err := s.publisher.Publish(pubsub.TopicChanges, pubsub.EventDiff, diff); err != nil {
		logging.Warn("failed to publish changes", "error", err)
	}
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publisher returns the server's event publisher
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// Agents
	s.router.HandleFunc("/api/agents", s.handleListAgents).Methods("GET")
	s.router.HandleFunc("/api/agents", s.handleAddAgent).Methods("POST")
	s.router.HandleFunc("/api/agents/{id}", s.handleGetAgent).Methods("GET")
	s.router.HandleFunc("/api/agents/{id}", s.handleRemoveAgent).Methods("DELETE")
	s.router.HandleFunc("/api/agents/{id}/status", s.handleUpdateStatus).Methods("PUT")
	s.router.HandleFunc("/api/agents/{id}/dependencies", s.handleDependencies).Methods("GET")
	s.router.HandleFunc("/api/agents/{id}/dependents", s.handleDependents).Methods("GET")
	s.router.HandleFunc("/api/agents/{id}/focus", s.handleFocus).Methods("GET")

	// Dependencies
	s.router.HandleFunc("/api/dependencies", s.handleAddDependency).Methods("POST")
	s.router.HandleFunc("/api/dependencies/{source}/{target}", s.handleRemoveDependency).Methods("DELETE")

	// Whole-graph queries
	s.router.HandleFunc("/api/topology", s.handleTopology).Methods("GET")
	s.router.HandleFunc("/api/order", s.handleOrder).Methods("GET")
	s.router.HandleFunc("/api/critical-path", s.handleCriticalPath).Methods("GET")
	s.router.HandleFunc("/api/bottlenecks", s.handleBottlenecks).Methods("GET")
	s.router.HandleFunc("/api/subgraphs", s.handleSubgraphs).Methods("GET")
	s.router.HandleFunc("/api/validation", s.handleValidation).Methods("GET")
	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/graph.dot", s.handleDOT).Methods("GET")

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// read runs fn under the read lock and records how long the query took.
func (s *Server) read(query string, fn func(m *agentgraph.Manager)) {
	defer metrics.TimeQuery(query)()
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.manager)
}

// mutate runs fn under the write lock. On success the new state is
// published to subscribers; args describe the mutation in the log.
func (s *Server) mutate(op string, fn func(m *agentgraph.Manager) error, args ...any) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	err := fn(s.manager)
	var (
		topo     *model.Topology
		findings []agentgraph.Finding
	)
	if err == nil {
		topo, findings = s.stateLocked()
	}
	s.mu.Unlock()

	metrics.RecordMutation(op, err)
	if err != nil {
		return err
	}

	logging.Debug("graph mutated", append([]any{"op", op}, args...)...)
	if err := s.publisher.Publish(pubsub.TopicTopology, pubsub.EventMutation, topo); err != nil {
		logging.Warn("failed to publish topology", "error", err)
	}
	s.publishFindings(findings)
	return nil
}

// stateLocked captures the published state; s.mu must be held.
func (s *Server) stateLocked() (*model.Topology, []agentgraph.Finding) {
	findings := s.manager.Validate()
	metrics.RecordGraph(s.manager, findings)
	return s.manager.Snapshot(), findings
}

func (s *Server) publishState(eventType string, topo *model.Topology, findings []agentgraph.Finding) {
	if err := s.publisher.Publish(pubsub.TopicTopology, eventType, topo); err != nil {
		logging.Warn("failed to publish topology", "error", err)
	}
	s.publishFindings(findings)
}

func (s *Server) publishFindings(findings []agentgraph.Finding) {
	data := pubsub.ValidationData{Findings: findings, HasErrors: agentgraph.HasErrors(findings)}
	if err := s.publisher.Publish(pubsub.TopicValidation, pubsub.EventFindings, data); err != nil {
		logging.Warn("failed to publish findings", "error", err)
	}
}

// Start serves on the given port until ctx is done, then shuts down
// gracefully and closes all subscriptions.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.publisher.Close()
		return err
	case <-ctx.Done():
	}

	// Close subscriptions first so SSE handlers return
	s.publisher.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("web server stopped")
	return nil
}
