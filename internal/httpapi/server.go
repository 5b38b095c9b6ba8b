// Package httpapi exposes the strictly-read-only HTTP surface spec.md
// §6 names: one endpoint per agent's trade feed and one cross-agent
// summary. It never touches an upstream adapter and never mutates
// persistence or cache state; every handler reads what the scheduler
// already wrote.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/synthetic-markets/agent-engine/internal/domain"
	"github.com/synthetic-markets/agent-engine/internal/observ"
	"github.com/synthetic-markets/agent-engine/internal/persistence"
	"github.com/synthetic-markets/agent-engine/internal/portfolio"
)

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the read-only HTTP API. It holds no business logic: every
// handler delegates to persistence/cache/leaderboard and shapes the
// result into a view type.
type Server struct {
	router *mux.Router
	server *http.Server
	config ServerConfig

	agents     []domain.AgentProfile
	store      persistence.Store
	portfolios *portfolio.Manager

	startingCapitalUsd float64
}

func NewServer(config ServerConfig, agents []domain.AgentProfile, store persistence.Store, portfolios *portfolio.Manager, startingCapitalUsd float64) *Server {
	s := &Server{
		router:             mux.NewRouter(),
		config:             config,
		agents:             agents,
		store:              store,
		portfolios:         portfolios,
		startingCapitalUsd: startingCapitalUsd,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.jsonContentTypeMiddleware)

	s.router.HandleFunc("/api/agents/summary", s.AgentsSummary).Methods("GET")
	s.router.HandleFunc("/api/agents/{agentId}/trades", s.AgentTrades).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.NotFound)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		observ.Log("http_request", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"ms":     time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// writeJSON never lets an encoding failure reach the client as a torn
// body; it falls back to a minimal inline error object.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}

func (s *Server) Start() error {
	observ.Log("http_server_starting", map[string]any{"addr": s.server.Addr})
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
