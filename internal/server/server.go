// Package server hosts the chi router that the workspace API is mounted on.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string // extra allowed origins on top of localhost
	AllowAll    bool     // allow all CORS origins (dev mode)
	Logger      *slog.Logger
}

// Server is the HTTP front of a workspace.
type Server struct {
	cfg        Config
	cache      *render.Cache
	log        *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. cache may be nil when rendering is not cached.
func New(cfg Config, cache *render.Cache) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:   cfg,
		cache: cache,
		log:   log.With("component", "server"),
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", s.handleHealth)

	// API routes are registered by the api package via RegisterRoutes.

	return r
}

// allowedOrigins returns the origin patterns browsers may call from. A
// pattern may hold one "*" wildcard.
func (s *Server) allowedOrigins() []string {
	if s.cfg.AllowAll {
		return []string{"*"}
	}
	return append([]string{"http://localhost:*", "http://127.0.0.1:*"}, s.cfg.CORSOrigins...)
}

// OriginAllowed reports whether r may be served under the same origin
// policy the CORS middleware enforces. Requests without an Origin header
// and same-origin requests are always allowed. The websocket upgrade uses
// it since browsers do not apply CORS to websockets.
func (s *Server) OriginAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, pattern := range s.allowedOrigins() {
		if matchOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

func matchOrigin(pattern, origin string) bool {
	pattern, origin = strings.ToLower(pattern), strings.ToLower(origin)
	i := strings.IndexByte(pattern, '*')
	if i < 0 {
		return pattern == origin
	}
	prefix, suffix := pattern[:i], pattern[i+1:]
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix)
}

type healthResponse struct {
	Status string             `json:"status"`
	Cache  *render.CacheStats `json:"cache,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.cache != nil {
		stats, err := s.cache.Stats(r.Context())
		if err != nil {
			s.log.Warn("cache stats", "error", err)
		} else {
			resp.Cache = &stats
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start begins listening on the configured address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info("mstudio server listening", "addr", s.Addr())
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
