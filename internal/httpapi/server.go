// Package httpapi exposes the background agent manager and local tool
// registry over HTTP so the agentrt CLI (and any other caller) can
// drive a running server without linking against its in-process types.
//
// Grounded on the teacher's internal/gateway/http_server.go: a
// net/http.ServeMux built once at startup, promhttp.Handler mounted at
// /metrics, a context-bound http.Server started on its own listener so
// Start can report a bind error synchronously, and a context-bound
// Shutdown for graceful termination.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftloop/agentrt/internal/background"
	"github.com/driftloop/agentrt/internal/errs"
	"github.com/driftloop/agentrt/internal/tools"
	"github.com/driftloop/agentrt/pkg/models"
)

// Server is the process's HTTP surface: agent lifecycle management,
// local tool introspection, and Prometheus scraping.
type Server struct {
	manager    *background.Manager
	registry   *tools.Registry
	registerer prometheus.Gatherer
	logger     *slog.Logger

	httpServer   *http.Server
	httpListener net.Listener
}

// Config wires a Server to the components it fronts.
type Config struct {
	Manager  *background.Manager
	Registry *tools.Registry
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{manager: cfg.Manager, registry: cfg.Registry, registerer: cfg.Gatherer, logger: logger}
}

func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	if s.registerer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registerer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/agents/", s.handleAgentByID)

	mux.HandleFunc("/tools", s.handleTools)

	return mux
}

// Start binds addr and serves in the background, returning once the
// listener is established so a caller can observe a bind error
// synchronously.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.httpServer = server
	s.httpListener = listener

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("http api listening", "addr", addr)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.manager.List())
	case http.MethodPost:
		var cfg models.AgentConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec, err := s.manager.CreateAgent(cfg)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAgentByID serves GET/PUT/DELETE /agents/{id} and
// POST /agents/{id}/{action} for action in {pause, resume}.
func (s *Server) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/agents/")
	parts := strings.SplitN(path, "/", 2)
	agentID := parts[0]
	if agentID == "" {
		http.Error(w, "agent id required", http.StatusBadRequest)
		return
	}

	if len(parts) == 2 {
		s.handleAgentAction(w, r, agentID, parts[1])
		return
	}

	switch r.Method {
	case http.MethodGet:
		status, err := s.manager.Status(agentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	case http.MethodPut:
		var cfg models.AgentConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec, err := s.manager.UpdateConfig(agentID, cfg)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := s.manager.DeleteAgent(agentID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAgentAction(w http.ResponseWriter, r *http.Request, agentID, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var err error
	switch action {
	case "pause":
		err = s.manager.Pause(agentID)
	case "resume":
		err = s.manager.Resume(agentID)
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if kind, ok := errs.KindOf(err); ok {
		switch kind {
		case models.ErrNotFound:
			status = http.StatusNotFound
		case models.ErrDuplicateID, models.ErrBadArguments:
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
