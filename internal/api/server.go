// Package api serves the schema operations over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vtable/vtable/internal/engine"
	"github.com/vtable/vtable/internal/ws"
)

// Server is the HTTP JSON API server.
type Server struct {
	engine  *engine.Engine
	hub     *ws.Hub
	logger  *slog.Logger
	port    int
	server  *http.Server
	devMode bool
}

// Option configures the API server.
type Option func(*Server)

// WithDevMode enables CORS for development.
func WithDevMode(dev bool) Option {
	return func(s *Server) {
		s.devMode = dev
	}
}

// WithHub sets the WebSocket hub.
func WithHub(hub *ws.Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// New creates a new API server.
func New(eng *engine.Engine, logger *slog.Logger, port int, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		logger: logger,
		port:   port,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	if s.devMode {
		handler = s.corsMiddleware(handler)
	}
	return requestLogger(s.logger, handler)
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info("starting API server", "port", s.port, "dev_mode", s.devMode)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /v1/schema/list/", s.handleListSchemas)
	mux.HandleFunc("POST /v1/schema/add/", s.handleAddSchema)
	mux.HandleFunc("POST /v1/schema/drop/", s.handleDropSchema)
	mux.HandleFunc("POST /v1/schema/get_fields/", s.handleGetFields)
	mux.HandleFunc("POST /v1/schema/used/", s.handleSchemaUsed)
	mux.HandleFunc("POST /v1/schema/field/add/", s.handleAddField)
	mux.HandleFunc("POST /v1/schema/describe/", s.handleDescribe)

	if s.hub != nil {
		mux.HandleFunc("/api/ws", s.hub.HandleWebSocket)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
