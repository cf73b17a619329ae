// Package server implements the mission control HTTP server, auth, and SSE
// change events.
package server

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openclaw/mission-control/config"
	"github.com/openclaw/mission-control/server/api"
	"github.com/openclaw/mission-control/server/ws"
)

// Server is the mission control HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	handlers *api.Handlers
	hub      *ws.Hub
	static   fs.FS

	// JWT secret caching
	secretOnce      sync.Once
	generatedSecret string

	routesOnce sync.Once
	startTime  time.Time
	version    string
}

// New creates a new Server with the given config and logger.
func New(cfg config.Config, ver string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		logger:    logger,
		hub:       ws.NewHub(logger),
		startTime: time.Now(),
		version:   ver,
	}
}

// SetHandlers attaches the API handlers. Their Events publisher defaults to
// the server's SSE hub.
func (s *Server) SetHandlers(h *api.Handlers) {
	if h.Events == nil {
		h.Events = s.hub
	}
	if h.Logger == nil {
		h.Logger = s.logger
	}
	if h.Version == "" {
		h.Version = s.version
	}
	if h.StartAt.IsZero() {
		h.StartAt = s.startTime
	}
	s.handlers = h
}

// Hub returns the SSE hub that change events are broadcast on.
func (s *Server) Hub() *ws.Hub { return s.hub }

// SetStaticFS sets the filesystem to serve the dashboard UI from.
// Call before Start.
func (s *Server) SetStaticFS(fsys fs.FS) {
	s.static = fsys
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	s.routesOnce.Do(s.registerRoutes)
	return requestID(s.accessLog(s.mux))
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":3000"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening",
		slog.String("addr", addr),
		slog.Bool("auth", s.cfg.Auth.Enabled()),
	)
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	h := s.handlers
	if h == nil {
		h = &api.Handlers{}
		s.SetHandlers(h)
	}

	// Public routes (no auth required)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	h.RegisterPublic(s.mux)

	// SSE: auth handled inline because EventSource can't set headers
	s.mux.HandleFunc("GET /events", s.handleSSE)

	apiMux := http.NewServeMux()
	h.RegisterRoutes(apiMux)
	apiMux.HandleFunc("GET /api/auth/me", s.handleMe)

	if s.cfg.Auth.Enabled() {
		s.mux.Handle("/api/", s.authMiddleware(apiMux))
	} else {
		s.mux.Handle("/api/", apiMux)
	}

	if s.static != nil {
		s.mux.Handle("/", http.FileServerFS(s.static))
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// handleSSE streams change events. With auth enabled the token comes from
// the query string.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Auth.Enabled() {
		if _, err := verifyJWT(s.jwtSecret(), r.URL.Query().Get("token")); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	s.hub.ServeSSE(w, r)
}
