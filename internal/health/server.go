// Package health serves liveness, readiness and metrics endpoints for the
// long-running retrain scheduler.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Check reports whether one dependency is usable
type Check func(ctx context.Context) error

// HealthResponse represents the JSON response for liveness endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ReadyResponse represents the JSON response for the readiness endpoint.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Addr        string
	Logger      logrus.FieldLogger
	// Metrics, when set, is served on /metrics
	Metrics http.Handler
}

// Server answers /health, /live and /ready, and optionally /metrics.
type Server struct {
	cfg    Config
	server *http.Server

	mu     sync.RWMutex
	checks map[string]Check
}

// NewServer creates a health server. Addr defaults to ":8080".
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Server{cfg: cfg, checks: make(map[string]Check)}
}

// AddCheck registers a readiness check under name, replacing any previous one
func (s *Server) AddCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Handler returns the endpoint mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics)
	}
	return mux
}

// Start serves in the background until Shutdown
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		s.cfg.Logger.WithFields(logrus.Fields{
			"addr":    s.cfg.Addr,
			"service": s.cfg.ServiceName,
		}).Info("Health check server starting")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.cfg.Logger.WithError(err).Error("Health check server error")
		}
	}()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.cfg.Logger.Info("Health check server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.cfg.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.cfg.ServiceName})
}

// handleReady runs every check with a shared timeout. Any failure answers 503.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make(map[string]Check, len(s.checks))
	for name, c := range s.checks {
		checks[name] = c
	}
	s.mu.RUnlock()

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			healthy = false
			results[name] = fmt.Sprintf("error: %v", err)
		} else {
			results[name] = "ok"
		}
	}

	response := ReadyResponse{
		Status:   "ok",
		Service:  s.cfg.ServiceName,
		Checks:   results,
		Duration: time.Since(start).String(),
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
