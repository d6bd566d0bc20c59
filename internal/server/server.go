package server

import (
	"log/slog"
	"net/http"

	"sales-kpi-dashboard/internal/config"
	"sales-kpi-dashboard/internal/handlers"
	"sales-kpi-dashboard/internal/services"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	pageHandlers *handlers.PageHandlers
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	metrics      http.Handler
}

// NewServer wires the routes. metricsHandler serves the Prometheus scrape
// endpoint; nil leaves /metrics unrouted.
func NewServer(cfg *config.Config, analytics *services.Analytics, sessions *services.SessionStore, metricsHandler http.Handler, logger *slog.Logger) *Server {
	sm := handlers.NewSessionManager(sessions, cfg.Sessions)
	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		pageHandlers: handlers.NewPageHandlers(analytics, sm, cfg, logger),
		apiHandlers:  handlers.NewAPIHandlers(analytics, sm, cfg, logger),
		sseHandlers:  handlers.NewSSEHandlers(analytics, sm, cfg, logger),
		metrics:      metricsHandler,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard page and form upload
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleIndex)
	s.mux.HandleFunc("POST /upload", s.pageHandlers.HandleUpload)

	// Datastar SSE endpoint
	s.mux.HandleFunc("GET /sse/dashboard", s.sseHandlers.HandleDashboard)

	// REST API endpoints
	s.mux.HandleFunc("POST /api/upload", s.apiHandlers.HandleUpload)
	s.mux.HandleFunc("GET /api/dashboard", s.apiHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /api/filters", s.apiHandlers.HandleFilters)

	// Operations
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
